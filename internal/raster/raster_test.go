package raster

import (
	"image"
	"image/color"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomBuffer(t *testing.T, rng *rand.Rand, width, height int) *PixelBuffer {
	t.Helper()

	buf, err := NewPixelBuffer(width, height)
	require.NoError(t, err)
	rng.Read(buf.Pix)
	return buf
}

func uniformBuffer(t *testing.T, width, height int, value uint8) *PixelBuffer {
	t.Helper()

	buf, err := NewPixelBuffer(width, height)
	require.NoError(t, err)
	for i := 0; i < len(buf.Pix); i += Channels {
		buf.Pix[i] = value
		buf.Pix[i+1] = value
		buf.Pix[i+2] = value
		buf.Pix[i+3] = 255
	}
	return buf
}

func TestNewPixelBufferRejectsBadDimensions(t *testing.T) {
	_, err := NewPixelBuffer(0, 10)
	assert.Error(t, err)

	_, err = NewPixelBuffer(10, -1)
	assert.Error(t, err)

	_, err = NewPixelBuffer(maxDimension+1, 1)
	assert.Error(t, err)
}

func TestValidateDetectsMalformedLength(t *testing.T) {
	buf := &PixelBuffer{Width: 2, Height: 2, Pix: make([]uint8, 15)}
	assert.ErrorIs(t, buf.Validate(), ErrMalformedBuffer)

	var nilBuf *PixelBuffer
	assert.ErrorIs(t, nilBuf.Validate(), ErrMalformedBuffer)

	assert.ErrorIs(t, Grayscale(buf), ErrMalformedBuffer)
	assert.ErrorIs(t, MedianDenoise(buf), ErrMalformedBuffer)
	_, err := BuildIntegral(buf)
	assert.ErrorIs(t, err, ErrMalformedBuffer)
}

func TestFromImageRoundTrip(t *testing.T) {
	src := image.NewRGBA(image.Rect(10, 20, 14, 23))
	src.Set(10, 20, color.RGBA{R: 10, G: 20, B: 30, A: 255})
	src.Set(13, 22, color.RGBA{R: 200, G: 100, B: 50, A: 255})

	buf, err := FromImage(src)
	require.NoError(t, err)
	require.NoError(t, buf.Validate())
	assert.Equal(t, 4, buf.Width)
	assert.Equal(t, 3, buf.Height)

	assert.Equal(t, []uint8{10, 20, 30, 255}, buf.Pix[buf.Offset(0, 0):buf.Offset(0, 0)+4])
	assert.Equal(t, []uint8{200, 100, 50, 255}, buf.Pix[buf.Offset(3, 2):buf.Offset(3, 2)+4])

	view := buf.NRGBA()
	assert.Equal(t, color.NRGBA{R: 200, G: 100, B: 50, A: 255}, view.NRGBAAt(3, 2))
}

func TestCloneIsIndependent(t *testing.T) {
	buf := uniformBuffer(t, 3, 3, 90)
	clone := buf.Clone()
	clone.SetGray(1, 1, 7)

	assert.Equal(t, uint8(90), buf.Intensity(1, 1))
	assert.Equal(t, uint8(7), clone.Intensity(1, 1))
}

func TestGrayscaleEqualizesColorChannels(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	buf := randomBuffer(t, rng, 37, 23)
	alpha := make([]uint8, 0, buf.Width*buf.Height)
	for i := 3; i < len(buf.Pix); i += Channels {
		alpha = append(alpha, buf.Pix[i])
	}

	require.NoError(t, Grayscale(buf))
	assert.True(t, buf.IsGray())

	for i, j := 3, 0; i < len(buf.Pix); i, j = i+Channels, j+1 {
		require.Equal(t, alpha[j], buf.Pix[i], "opacity changed at pixel %d", j)
	}
}

func TestLuminanceWeights(t *testing.T) {
	assert.Equal(t, uint8(255), Luminance(255, 255, 255))
	assert.Equal(t, uint8(0), Luminance(0, 0, 0))
	assert.Equal(t, uint8(76), Luminance(255, 0, 0))
	assert.Equal(t, uint8(150), Luminance(0, 255, 0))
	assert.Equal(t, uint8(29), Luminance(0, 0, 255))
	assert.Equal(t, uint8(128), Luminance(128, 128, 128))
}

func TestIntegralMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for _, size := range [][2]int{{1, 1}, {1, 9}, {9, 1}, {17, 11}, {32, 32}} {
		buf := randomBuffer(t, rng, size[0], size[1])
		require.NoError(t, Grayscale(buf))

		ii, err := BuildIntegral(buf)
		require.NoError(t, err)

		for y := 0; y < buf.Height; y++ {
			for x := 0; x < buf.Width; x++ {
				var want int64
				for yy := 0; yy <= y; yy++ {
					for xx := 0; xx <= x; xx++ {
						want += int64(buf.Intensity(xx, yy))
					}
				}
				require.Equal(t, want, ii.At(x, y), "size %v at (%d,%d)", size, x, y)
			}
		}
	}
}

func TestIntegralIsMonotonic(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	buf := randomBuffer(t, rng, 20, 15)

	ii, err := BuildIntegral(buf)
	require.NoError(t, err)

	for y := 0; y < ii.Height; y++ {
		for x := 0; x < ii.Width; x++ {
			if x > 0 {
				require.GreaterOrEqual(t, ii.At(x, y), ii.At(x-1, y))
			}
			if y > 0 {
				require.GreaterOrEqual(t, ii.At(x, y), ii.At(x, y-1))
			}
		}
	}
}

func TestWindowedMeanMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	buf := randomBuffer(t, rng, 40, 30)
	require.NoError(t, Grayscale(buf))

	ii, err := BuildIntegral(buf)
	require.NoError(t, err)

	for n := 0; n < 200; n++ {
		x0 := rng.Intn(buf.Width)
		y0 := rng.Intn(buf.Height)
		x1 := x0 + rng.Intn(buf.Width-x0)
		y1 := y0 + rng.Intn(buf.Height-y0)

		var sum int64
		for y := y0; y <= y1; y++ {
			for x := x0; x <= x1; x++ {
				sum += int64(buf.Intensity(x, y))
			}
		}
		area := int64((x1 - x0 + 1) * (y1 - y0 + 1))

		require.Equal(t, sum, ii.Sum(x0, y0, x1, y1))
		require.Equal(t, sum/area, ii.Mean(x0, y0, x1, y1))
	}
}

func TestAdaptiveThresholdUniformGray(t *testing.T) {
	tests := []struct {
		name     string
		constant int
		want     uint8
	}{
		{name: "positive constant whitens", constant: 10, want: 255},
		{name: "negative constant blackens", constant: -10, want: 0},
		{name: "zero constant ties to black", constant: 0, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := uniformBuffer(t, 3, 3, 128)
			ii, err := BuildIntegral(buf)
			require.NoError(t, err)

			require.NoError(t, AdaptiveThreshold(buf, ii, 3, tt.constant))
			for y := 0; y < 3; y++ {
				for x := 0; x < 3; x++ {
					i := buf.Offset(x, y)
					assert.Equal(t, []uint8{tt.want, tt.want, tt.want, 255}, buf.Pix[i:i+4])
				}
			}
		})
	}
}

func TestAdaptiveThresholdClampsWindowAtBorders(t *testing.T) {
	// Column 0 is dark, the rest bright. With a 3x3 window the corner pixel
	// (0,0) sees a 2x2 clamped window: mean (10+10+200+200)/4 = 105.
	buf := uniformBuffer(t, 5, 5, 200)
	for y := 0; y < 5; y++ {
		buf.SetGray(0, y, 10)
	}

	ii, err := BuildIntegral(buf)
	require.NoError(t, err)
	require.NoError(t, AdaptiveThreshold(buf, ii, 3, 5))

	for y := 0; y < 5; y++ {
		assert.Equal(t, uint8(0), buf.Intensity(0, y), "dark column at row %d", y)
		assert.Equal(t, uint8(255), buf.Intensity(1, y), "bright pixel beside dark column at row %d", y)
		assert.Equal(t, uint8(255), buf.Intensity(4, y), "bright interior at row %d", y)
	}
}

func TestAdaptiveThresholdSetsOpaque(t *testing.T) {
	buf := uniformBuffer(t, 4, 4, 50)
	for i := 3; i < len(buf.Pix); i += Channels {
		buf.Pix[i] = 17
	}

	ii, err := BuildIntegral(buf)
	require.NoError(t, err)
	require.NoError(t, AdaptiveThreshold(buf, ii, 3, 10))

	for i := 3; i < len(buf.Pix); i += Channels {
		require.Equal(t, uint8(255), buf.Pix[i])
	}
}

func TestAdaptiveThresholdRejectsBadArguments(t *testing.T) {
	buf := uniformBuffer(t, 4, 4, 50)
	ii, err := BuildIntegral(buf)
	require.NoError(t, err)

	assert.Error(t, AdaptiveThreshold(buf, ii, 4, 10))
	assert.Error(t, AdaptiveThreshold(buf, ii, 0, 10))
	assert.Error(t, AdaptiveThreshold(buf, nil, 3, 10))

	other := uniformBuffer(t, 5, 4, 50)
	assert.Error(t, AdaptiveThreshold(other, ii, 3, 10))
}

// documentBuffer draws thin dark strokes on a light, unevenly lit page.
func documentBuffer(t *testing.T, width, height int) *PixelBuffer {
	t.Helper()

	buf, err := NewPixelBuffer(width, height)
	require.NoError(t, err)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			background := uint8(170 + 60*x/width)
			v := background
			if y%12 < 2 && x%9 != 0 {
				v = background - 120
			}
			if x%15 == 7 && y%12 < 8 {
				v = background - 110
			}
			i := buf.Offset(x, y)
			buf.Pix[i] = v
			buf.Pix[i+1] = v
			buf.Pix[i+2] = v
			buf.Pix[i+3] = 255
		}
	}

	return buf
}

func TestAdaptiveThresholdIsIdempotent(t *testing.T) {
	for _, preset := range [][2]int{{21, 10}, {41, 15}, {3, 10}} {
		buf := documentBuffer(t, 90, 60)

		ii, err := BuildIntegral(buf)
		require.NoError(t, err)
		require.NoError(t, AdaptiveThreshold(buf, ii, preset[0], preset[1]))
		first := buf.Clone()

		ii, err = BuildIntegral(buf)
		require.NoError(t, err)
		require.NoError(t, AdaptiveThreshold(buf, ii, preset[0], preset[1]))

		assert.Equal(t, first.Pix, buf.Pix, "window %d constant %d", preset[0], preset[1])
	}
}

func TestAdaptiveThresholdOutputIsBinary(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	buf := randomBuffer(t, rng, 31, 17)
	require.NoError(t, Grayscale(buf))

	ii, err := BuildIntegral(buf)
	require.NoError(t, err)
	require.NoError(t, AdaptiveThreshold(buf, ii, 21, 10))

	assert.True(t, buf.IsGray())
	for i := 0; i < len(buf.Pix); i += Channels {
		v := buf.Pix[i]
		require.True(t, v == 0 || v == 255, "pixel %d has value %d", i/Channels, v)
	}
}

func TestMedianDenoiseKeepsBorder(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	buf := randomBuffer(t, rng, 12, 9)
	require.NoError(t, Grayscale(buf))
	before := buf.Clone()

	require.NoError(t, MedianDenoise(buf))

	pixel := func(b *PixelBuffer, x, y int) []uint8 {
		i := b.Offset(x, y)
		return b.Pix[i : i+Channels]
	}
	for x := 0; x < buf.Width; x++ {
		assert.Equal(t, pixel(before, x, 0), pixel(buf, x, 0))
		assert.Equal(t, pixel(before, x, buf.Height-1), pixel(buf, x, buf.Height-1))
	}
	for y := 0; y < buf.Height; y++ {
		assert.Equal(t, pixel(before, 0, y), pixel(buf, 0, y))
		assert.Equal(t, pixel(before, buf.Width-1, y), pixel(buf, buf.Width-1, y))
	}
}

func TestMedianDenoiseRemovesImpulse(t *testing.T) {
	buf := uniformBuffer(t, 5, 5, 100)
	buf.SetGray(2, 2, 255)
	buf.SetGray(1, 3, 0)

	require.NoError(t, MedianDenoise(buf))

	for y := 1; y < 4; y++ {
		for x := 1; x < 4; x++ {
			assert.Equal(t, uint8(100), buf.Intensity(x, y), "pixel (%d,%d)", x, y)
		}
	}
}

func TestMedianDenoiseReadsFromSnapshot(t *testing.T) {
	// A vertical step edge: a filter that reused freshly written values would
	// drag the edge sideways.
	buf := uniformBuffer(t, 6, 4, 0)
	for y := 0; y < 4; y++ {
		for x := 3; x < 6; x++ {
			buf.SetGray(x, y, 200)
		}
	}
	before := buf.Clone()

	require.NoError(t, MedianDenoise(buf))
	assert.Equal(t, before.Pix, buf.Pix)
}

func TestMedianDenoiseKeepsOpacityAndTinyBuffers(t *testing.T) {
	buf := uniformBuffer(t, 4, 4, 10)
	buf.Pix[buf.Offset(1, 1)+3] = 33
	require.NoError(t, MedianDenoise(buf))
	assert.Equal(t, uint8(33), buf.Pix[buf.Offset(1, 1)+3])

	tiny := uniformBuffer(t, 2, 5, 10)
	tiny.SetGray(1, 2, 250)
	before := tiny.Clone()
	require.NoError(t, MedianDenoise(tiny))
	assert.Equal(t, before.Pix, tiny.Pix)
}
