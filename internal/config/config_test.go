package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "glyphprep.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestProcessingValidateRejectsBadWindow(t *testing.T) {
	for _, window := range []int{0, -3, 4, 40} {
		err := ProcessingConfig{WindowSize: window, ThresholdConstant: 10}.Validate()

		var cfgErr *ConfigError
		require.ErrorAs(t, err, &cfgErr, "window %d", window)
		assert.Equal(t, "window_size", cfgErr.Field)
		assert.Equal(t, window, cfgErr.Value)
	}
}

func TestProcessingValidateRejectsDegenerateConstant(t *testing.T) {
	for _, c := range []int{255, -255, 1000} {
		err := ProcessingConfig{WindowSize: 21, ThresholdConstant: c}.Validate()

		var cfgErr *ConfigError
		require.ErrorAs(t, err, &cfgErr)
		assert.Equal(t, "threshold_constant", cfgErr.Field)
	}

	assert.NoError(t, ProcessingConfig{WindowSize: 1, ThresholdConstant: -254}.Validate())
	assert.NoError(t, ProcessingConfig{WindowSize: 3, ThresholdConstant: 0}.Validate())
}

func TestConfigErrorMessage(t *testing.T) {
	err := &ConfigError{Context: "processing config", Field: "window_size", Value: 4, Reason: "must be odd number"}
	assert.Equal(t, "processing config: invalid window_size value 4 - must be odd number", err.Error())
}

func TestNormalizedEnablesGrayscale(t *testing.T) {
	assert.True(t, ProcessingConfig{Binarize: true}.Normalized().Grayscale)
	assert.True(t, ProcessingConfig{Denoise: true}.Normalized().Grayscale)
	assert.False(t, ProcessingConfig{Upscale: true}.Normalized().Grayscale)

	stages := ProcessingConfig{Binarize: true, Denoise: true, Upscale: true}.Stages()
	assert.Equal(t, []string{"upscale", "grayscale", "denoise", "binarize"}, stages)
}

func TestPresets(t *testing.T) {
	general, err := LookupPreset("general")
	require.NoError(t, err)
	assert.Equal(t, 21, general.WindowSize)
	assert.Equal(t, 10, general.ThresholdConstant)

	document, err := LookupPreset("Document")
	require.NoError(t, err)
	assert.Equal(t, 41, document.WindowSize)
	assert.Equal(t, 15, document.ThresholdConstant)

	_, err = LookupPreset("receipt")
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "preset", cfgErr.Field)

	assert.Equal(t, []string{"document", "general"}, PresetNames())
	assert.True(t, document.Processing().Binarize)
	assert.False(t, document.Processing().Denoise)
}

func TestDefaultRequiresExplicitPreset(t *testing.T) {
	cfg := Default()

	var cfgErr *ConfigError
	require.ErrorAs(t, cfg.Validate(), &cfgErr)
	assert.Equal(t, "preset", cfgErr.Field)

	require.NoError(t, cfg.ApplyPreset("general"))
	assert.NoError(t, cfg.Validate())
}

func TestLoadDocumentPreset(t *testing.T) {
	path := writeConfig(t, `
preset = "document"

[processing]
denoise = true

[pipeline]
policy = "latest_wins"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 41, cfg.Processing.WindowSize)
	assert.Equal(t, 15, cfg.Processing.ThresholdConstant)
	assert.True(t, cfg.Processing.Denoise)
	assert.True(t, cfg.Processing.Binarize, "defaults survive a partial table")
	assert.Equal(t, PolicyLatestWins, cfg.Pipeline.Policy)
	assert.Equal(t, "png", cfg.Pipeline.OutputFormat)
}

func TestLoadExplicitWindowOverridesPreset(t *testing.T) {
	path := writeConfig(t, `
preset = "general"

[processing]
window_size = 31
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 31, cfg.Processing.WindowSize)
	assert.Equal(t, 10, cfg.Processing.ThresholdConstant)
}

func TestLoadRejectsUnknownKeysAndPresets(t *testing.T) {
	_, err := Load(writeConfig(t, "preset = \"general\"\nwindow = 3\n"))
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "window", cfgErr.Value)

	_, err = Load(writeConfig(t, `preset = "poster"`))
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "preset", cfgErr.Field)

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
	assert.False(t, errors.As(err, &cfgErr))
}

func TestValidateRejectsUnknownSettings(t *testing.T) {
	base := Default()
	require.NoError(t, base.ApplyPreset("document"))

	cases := map[string]func(c *Config){
		"output_format": func(c *Config) { c.Pipeline.OutputFormat = "gif" },
		"policy":        func(c *Config) { c.Pipeline.Policy = "first_wins" },
		"backend":       func(c *Config) { c.Codec.Backend = "vips" },
		"resampler":     func(c *Config) { c.Codec.Resampler = "nearest" },
		"jpeg_quality":  func(c *Config) { c.Codec.JPEGQuality = 0 },
		"language":      func(c *Config) { c.Recognition.Enabled = true; c.Recognition.Language = "" },
		"page_seg_mode": func(c *Config) { c.Recognition.PageSegMode = 14 },
	}

	for field, mutate := range cases {
		t.Run(field, func(t *testing.T) {
			cfg := base
			mutate(&cfg)

			var cfgErr *ConfigError
			require.ErrorAs(t, cfg.Validate(), &cfgErr)
			assert.Equal(t, field, cfgErr.Field)
		})
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "WARN")
	t.Setenv("GLYPHPREP_DEBUG", "")

	cfg := Default()
	cfg.ApplyEnv()
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.False(t, cfg.Log.Debug)

	t.Setenv("GLYPHPREP_DEBUG", "true")
	cfg.ApplyEnv()
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.Debug)
}

func TestLoadExampleConfig(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "glyphprep.example.toml"))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, PresetDocument.WindowSize, cfg.Processing.WindowSize)
	assert.Equal(t, PresetDocument.ThresholdConstant, cfg.Processing.ThresholdConstant)
	assert.Equal(t, "amh", cfg.Recognition.Language)
}
