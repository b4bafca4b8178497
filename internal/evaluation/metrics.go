// Package evaluation scores a binarized page against a ground-truth page
// using the pixel metrics of the DIBCO document binarization contests.
// Text is the foreground: a pixel counts as foreground when its intensity is
// below ForegroundCutoff in the red channel.
package evaluation

import (
	"errors"
	"fmt"
	"math"

	"glyphprep/internal/raster"
)

const ForegroundCutoff = 128

const (
	drdWindow = 5
	nubnBlock = 8
)

var ErrDimensionMismatch = errors.New("ground truth and result dimensions differ")

// Metrics holds the confusion counts of one comparison plus the
// neighbourhood-weighted scores computed alongside them.
type Metrics struct {
	TruePositives  int
	TrueNegatives  int
	FalsePositives int
	FalseNegatives int
	TotalPixels    int

	drdValue float64
}

// Compare scores result against groundTruth. Both buffers must have the same
// dimensions; neither is modified.
func Compare(groundTruth, result *raster.PixelBuffer) (*Metrics, error) {
	if err := groundTruth.Validate(); err != nil {
		return nil, fmt.Errorf("ground truth validation: %w", err)
	}
	if err := result.Validate(); err != nil {
		return nil, fmt.Errorf("result validation: %w", err)
	}
	if groundTruth.Width != result.Width || groundTruth.Height != result.Height {
		return nil, fmt.Errorf("%w: %dx%d vs %dx%d", ErrDimensionMismatch,
			groundTruth.Width, groundTruth.Height, result.Width, result.Height)
	}

	gt := foregroundMask(groundTruth)
	res := foregroundMask(result)

	m := &Metrics{TotalPixels: len(gt)}
	m.calculateConfusionMatrix(gt, res)
	m.drdValue = distanceReciprocalDistortion(gt, res, groundTruth.Width, groundTruth.Height)

	return m, nil
}

func foregroundMask(buf *raster.PixelBuffer) []bool {
	mask := make([]bool, buf.Width*buf.Height)
	for i := range mask {
		mask[i] = buf.Pix[i*raster.Channels] < ForegroundCutoff
	}
	return mask
}

func (m *Metrics) calculateConfusionMatrix(gt, res []bool) {
	for i := range gt {
		switch {
		case gt[i] && res[i]:
			m.TruePositives++
		case !gt[i] && !res[i]:
			m.TrueNegatives++
		case !gt[i] && res[i]:
			m.FalsePositives++
		default:
			m.FalseNegatives++
		}
	}
}

func (m *Metrics) Precision() float64 {
	if m.TruePositives+m.FalsePositives == 0 {
		return 0
	}
	return float64(m.TruePositives) / float64(m.TruePositives+m.FalsePositives)
}

func (m *Metrics) Recall() float64 {
	if m.TruePositives+m.FalseNegatives == 0 {
		return 0
	}
	return float64(m.TruePositives) / float64(m.TruePositives+m.FalseNegatives)
}

// FMeasure is the harmonic mean of precision and recall, in [0,1].
func (m *Metrics) FMeasure() float64 {
	return m.FBeta(1)
}

// FBeta weights recall beta times as much as precision. Beta 0.5 favours
// precision, which punishes speckle noise that recognition engines misread.
func (m *Metrics) FBeta(beta float64) float64 {
	precision := m.Precision()
	recall := m.Recall()

	betaSquared := beta * beta
	denominator := betaSquared*precision + recall
	if denominator == 0 {
		return 0
	}

	return (1 + betaSquared) * precision * recall / denominator
}

// NRM is the negative rate metric; 0 is a perfect match.
func (m *Metrics) NRM() float64 {
	fn := float64(m.FalseNegatives)
	fp := float64(m.FalsePositives)
	tp := float64(m.TruePositives)
	tn := float64(m.TrueNegatives)

	var nrfn, nrfp float64
	if fn+tp > 0 {
		nrfn = fn / (fn + tp)
	}
	if fp+tn > 0 {
		nrfp = fp / (fp + tn)
	}

	return (nrfn + nrfp) / 2
}

// PSNR treats both pages as binary images with peak value 1. Identical pages
// have infinite PSNR.
func (m *Metrics) PSNR() float64 {
	if m.TotalPixels == 0 {
		return 0
	}

	mse := float64(m.FalsePositives+m.FalseNegatives) / float64(m.TotalPixels)
	if mse == 0 {
		return math.Inf(1)
	}

	return 10 * math.Log10(1/mse)
}

// DRD is the distance reciprocal distortion; lower is better.
func (m *Metrics) DRD() float64 {
	return m.drdValue
}
