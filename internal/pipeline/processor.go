package pipeline

import (
	"fmt"
	"time"

	"glyphprep/internal/config"
	"glyphprep/internal/logger"
	"glyphprep/internal/raster"
)

// stage is one preprocessing step. Stages may replace the buffer (upscale) or
// mutate it in place and return it.
type stage struct {
	name string
	run  func(buf *raster.PixelBuffer) (*raster.PixelBuffer, error)
}

type imageProcessor struct {
	logger   logger.Logger
	upscaler *Upscaler
}

// plan returns the enabled stages in their fixed order: upscale, grayscale,
// median, then integral plus threshold.
func (p *imageProcessor) plan(cfg config.ProcessingConfig) []stage {
	cfg = cfg.Normalized()

	var stages []stage
	if cfg.Upscale {
		stages = append(stages, stage{name: "upscale", run: p.upscaler.Apply})
	}

	if cfg.Grayscale {
		stages = append(stages, stage{name: "grayscale", run: inPlace(raster.Grayscale)})
	}

	if cfg.Denoise {
		stages = append(stages, stage{name: "denoise", run: inPlace(raster.MedianDenoise)})
	}

	if cfg.Binarize {
		window, constant := cfg.WindowSize, cfg.ThresholdConstant
		stages = append(stages, stage{name: "binarize", run: inPlace(func(buf *raster.PixelBuffer) error {
			integral, err := raster.BuildIntegral(buf)
			if err != nil {
				return err
			}
			return raster.AdaptiveThreshold(buf, integral, window, constant)
		})})
	}

	return stages
}

// Run executes stages in order. checkpoint is consulted before every stage and
// its error aborts the run as is; stage failures come back as StageError.
func (p *imageProcessor) Run(buf *raster.PixelBuffer, stages []stage, checkpoint func() error, tracker *progressTracker) (*raster.PixelBuffer, []string, error) {
	completed := make([]string, 0, len(stages))

	for _, s := range stages {
		if err := checkpoint(); err != nil {
			return nil, completed, err
		}

		start := time.Now()
		next, err := s.run(buf)
		if err != nil {
			return nil, completed, &StageError{Stage: s.name, Err: err}
		}
		if next == nil {
			return nil, completed, &StageError{Stage: s.name, Err: fmt.Errorf("stage returned nil buffer")}
		}
		buf = next

		completed = append(completed, s.name)
		tracker.step(s.name)

		p.logger.Debug("ImageProcessor", "stage completed", map[string]interface{}{
			"stage":    s.name,
			"size":     fmt.Sprintf("%dx%d", buf.Width, buf.Height),
			"duration": time.Since(start),
		})
	}

	return buf, completed, nil
}

func inPlace(fn func(buf *raster.PixelBuffer) error) func(*raster.PixelBuffer) (*raster.PixelBuffer, error) {
	return func(buf *raster.PixelBuffer) (*raster.PixelBuffer, error) {
		if err := fn(buf); err != nil {
			return nil, err
		}
		return buf, nil
	}
}
