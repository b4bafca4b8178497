// Package config holds the typed processing configuration, the named threshold
// presets and the application config file.
package config

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	PolicyIndependent = "independent"
	PolicyLatestWins  = "latest_wins"

	BackendStandard = "standard"
	BackendOpenCV   = "opencv"

	ResamplerCatmullRom = "catmullrom"
	ResamplerLanczos    = "lanczos"

	LogBackendZerolog = "zerolog"
	LogBackendLogrus  = "logrus"
)

var outputFormats = []string{"png", "jpeg", "tiff", "bmp"}

type Config struct {
	Preset      string            `toml:"preset"`
	Processing  ProcessingConfig  `toml:"processing"`
	Pipeline    PipelineConfig    `toml:"pipeline"`
	Codec       CodecConfig       `toml:"codec"`
	Recognition RecognitionConfig `toml:"recognition"`
	Watch       WatchConfig       `toml:"watch"`
	Log         LogConfig         `toml:"log"`
}

type PipelineConfig struct {
	OutputFormat string `toml:"output_format"`
	Policy       string `toml:"policy"`
}

type CodecConfig struct {
	Backend     string `toml:"backend"`
	Resampler   string `toml:"resampler"`
	JPEGQuality int    `toml:"jpeg_quality"`
}

type RecognitionConfig struct {
	Enabled     bool   `toml:"enabled"`
	Language    string `toml:"language"`
	PageSegMode int    `toml:"page_seg_mode"`
	DPI         int    `toml:"dpi"`
}

type WatchConfig struct {
	InboxDir  string `toml:"inbox_dir"`
	OutputDir string `toml:"output_dir"`
}

type LogConfig struct {
	Level   string `toml:"level"`
	Backend string `toml:"backend"`
	Debug   bool   `toml:"debug"`
}

// Default returns a config with every ambient setting filled in. The preset is
// deliberately empty: callers pick general or document themselves.
func Default() Config {
	return Config{
		Processing: ProcessingConfig{
			Grayscale: true,
			Binarize:  true,
			Upscale:   true,
		},
		Pipeline: PipelineConfig{
			OutputFormat: "png",
			Policy:       PolicyIndependent,
		},
		Codec: CodecConfig{
			Backend:     BackendStandard,
			Resampler:   ResamplerCatmullRom,
			JPEGQuality: 95,
		},
		Recognition: RecognitionConfig{
			Language:    "eng",
			PageSegMode: 3,
			DPI:         300,
		},
		Log: LogConfig{
			Level:   "info",
			Backend: LogBackendZerolog,
		},
	}
}

// Load reads a TOML file over Default. A preset named in the file supplies the
// window size and constant unless the [processing] table sets them itself.
func Load(path string) (Config, error) {
	cfg := Default()

	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Config{}, &ConfigError{
			Context: "config file",
			Field:   "key",
			Value:   undecoded[0].String(),
			Reason:  "unknown setting",
		}
	}

	if cfg.Preset != "" {
		preset, err := LookupPreset(cfg.Preset)
		if err != nil {
			return Config{}, err
		}
		if !md.IsDefined("processing", "window_size") {
			cfg.Processing.WindowSize = preset.WindowSize
		}
		if !md.IsDefined("processing", "threshold_constant") {
			cfg.Processing.ThresholdConstant = preset.ThresholdConstant
		}
	}

	return cfg, nil
}

// ApplyPreset selects a preset and overwrites the threshold parameters.
func (c *Config) ApplyPreset(name string) error {
	preset, err := LookupPreset(name)
	if err != nil {
		return err
	}

	c.Preset = preset.Name
	c.Processing.WindowSize = preset.WindowSize
	c.Processing.ThresholdConstant = preset.ThresholdConstant
	return nil
}

// ApplyEnv honors LOG_LEVEL and GLYPHPREP_DEBUG.
func (c *Config) ApplyEnv() {
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.Log.Level = strings.ToLower(level)
	}

	if os.Getenv("GLYPHPREP_DEBUG") == "true" {
		c.Log.Debug = true
		c.Log.Level = "debug"
	}
}

func (c Config) Validate() error {
	if c.Preset == "" && c.Processing.WindowSize == 0 {
		return &ConfigError{
			Context: "config",
			Field:   "preset",
			Value:   `""`,
			Reason:  "choose one of " + strings.Join(PresetNames(), ", ") + " or set window_size explicitly",
		}
	}

	if c.Preset != "" {
		if _, err := LookupPreset(c.Preset); err != nil {
			return err
		}
	}

	if err := c.Processing.Validate(); err != nil {
		return err
	}

	if !slices.Contains(outputFormats, strings.ToLower(c.Pipeline.OutputFormat)) {
		return &ConfigError{
			Context: "pipeline config",
			Field:   "output_format",
			Value:   c.Pipeline.OutputFormat,
			Reason:  "must be one of " + strings.Join(outputFormats, ", "),
		}
	}

	if err := oneOf("pipeline config", "policy", c.Pipeline.Policy, PolicyIndependent, PolicyLatestWins); err != nil {
		return err
	}

	if err := oneOf("codec config", "backend", c.Codec.Backend, BackendStandard, BackendOpenCV); err != nil {
		return err
	}

	if err := oneOf("codec config", "resampler", c.Codec.Resampler, ResamplerCatmullRom, ResamplerLanczos); err != nil {
		return err
	}

	if c.Codec.JPEGQuality < 1 || c.Codec.JPEGQuality > 100 {
		return &ConfigError{
			Context: "codec config",
			Field:   "jpeg_quality",
			Value:   c.Codec.JPEGQuality,
			Reason:  "must be between 1 and 100",
		}
	}

	if c.Recognition.Enabled && c.Recognition.Language == "" {
		return &ConfigError{
			Context: "recognition config",
			Field:   "language",
			Value:   `""`,
			Reason:  "required when recognition is enabled",
		}
	}

	if c.Recognition.PageSegMode < 0 || c.Recognition.PageSegMode > 13 {
		return &ConfigError{
			Context: "recognition config",
			Field:   "page_seg_mode",
			Value:   c.Recognition.PageSegMode,
			Reason:  "must be between 0 and 13",
		}
	}

	return oneOf("log config", "backend", c.Log.Backend, LogBackendZerolog, LogBackendLogrus)
}

func oneOf(context, field, value string, allowed ...string) error {
	if slices.Contains(allowed, value) {
		return nil
	}

	return &ConfigError{
		Context: context,
		Field:   field,
		Value:   value,
		Reason:  "must be one of " + strings.Join(allowed, ", "),
	}
}
