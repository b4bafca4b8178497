package pipeline

import (
	"fmt"

	"glyphprep/internal/codec"
	"glyphprep/internal/logger"
	"glyphprep/internal/raster"
)

const (
	ResolutionFloor = 1500
	UpscaleFactor   = 2
)

// Upscaler doubles images whose longer side is below ResolutionFloor. The
// resampling itself is done by the codec.
type Upscaler struct {
	codec  codec.Codec
	logger logger.Logger
}

func NewUpscaler(c codec.Codec, log logger.Logger) *Upscaler {
	return &Upscaler{codec: c, logger: log}
}

// NeedsUpscale reports whether the longer side is below ResolutionFloor, so
// 1400x1600 and 1800x900 are both left alone.
func NeedsUpscale(width, height int) bool {
	return max(width, height) < ResolutionFloor
}

// Apply returns buf unchanged when it already meets the floor, otherwise a new
// buffer UpscaleFactor times larger in both dimensions.
func (u *Upscaler) Apply(buf *raster.PixelBuffer) (*raster.PixelBuffer, error) {
	if err := buf.Validate(); err != nil {
		return nil, err
	}

	if !NeedsUpscale(buf.Width, buf.Height) {
		u.logger.Debug("Upscaler", "resolution floor met", map[string]interface{}{
			"width":  buf.Width,
			"height": buf.Height,
		})
		return buf, nil
	}

	width, height := buf.Width*UpscaleFactor, buf.Height*UpscaleFactor
	resized, err := u.codec.Resize(buf, width, height)
	if err != nil {
		return nil, fmt.Errorf("resize to %dx%d failed: %w", width, height, err)
	}

	if resized.Width != width || resized.Height != height {
		return nil, fmt.Errorf("codec returned %dx%d, expected %dx%d", resized.Width, resized.Height, width, height)
	}

	u.logger.Debug("Upscaler", "image upscaled", map[string]interface{}{
		"input_size":  fmt.Sprintf("%dx%d", buf.Width, buf.Height),
		"output_size": fmt.Sprintf("%dx%d", width, height),
		"codec":       u.codec.Name(),
	})

	return resized, nil
}
