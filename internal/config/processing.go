package config

// ProcessingConfig selects the preprocessing stages and tunes the adaptive
// threshold. Binarize and Denoise both require a grayscale pass, which
// Normalized turns on.
type ProcessingConfig struct {
	Grayscale         bool `toml:"grayscale"`
	Binarize          bool `toml:"binarize"`
	Denoise           bool `toml:"denoise"`
	Upscale           bool `toml:"upscale"`
	WindowSize        int  `toml:"window_size"`
	ThresholdConstant int  `toml:"threshold_constant"`
}

// Normalized returns a copy with implied stages enabled.
func (p ProcessingConfig) Normalized() ProcessingConfig {
	if p.Binarize || p.Denoise {
		p.Grayscale = true
	}
	return p
}

// Validate checks the threshold parameters, also when binarization is off.
func (p ProcessingConfig) Validate() error {
	if p.WindowSize <= 0 {
		return &ConfigError{
			Context: "processing config",
			Field:   "window_size",
			Value:   p.WindowSize,
			Reason:  "must be a positive odd number",
		}
	}

	if p.WindowSize%2 == 0 {
		return &ConfigError{
			Context: "processing config",
			Field:   "window_size",
			Value:   p.WindowSize,
			Reason:  "must be odd number",
		}
	}

	// |C| >= 255 classifies every pixel the same way whatever its neighborhood.
	if p.ThresholdConstant <= -255 || p.ThresholdConstant >= 255 {
		return &ConfigError{
			Context: "processing config",
			Field:   "threshold_constant",
			Value:   p.ThresholdConstant,
			Reason:  "must be between -254 and 254",
		}
	}

	return nil
}

// Stages lists the enabled stages in execution order.
func (p ProcessingConfig) Stages() []string {
	p = p.Normalized()

	var stages []string
	if p.Upscale {
		stages = append(stages, "upscale")
	}
	if p.Grayscale {
		stages = append(stages, "grayscale")
	}
	if p.Denoise {
		stages = append(stages, "denoise")
	}
	if p.Binarize {
		stages = append(stages, "binarize")
	}
	return stages
}
