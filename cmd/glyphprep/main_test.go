package main

import (
	"bytes"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"glyphprep/internal/config"
)

func TestBuildConfigLayersFlagsOverFile(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("GLYPHPREP_DEBUG", "")

	path := filepath.Join(t.TempDir(), "glyphprep.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
preset = "document"

[pipeline]
output_format = "tiff"
`), 0o644))

	f, err := parseFlags([]string{"-config", path, "-window", "15", "-denoise", "-debug", "scan.jpg"}, io.Discard)
	require.NoError(t, err)

	cfg, err := buildConfig(f)
	require.NoError(t, err)

	assert.Equal(t, 15, cfg.Processing.WindowSize)
	assert.Equal(t, 15, cfg.Processing.ThresholdConstant)
	assert.True(t, cfg.Processing.Denoise)
	assert.Equal(t, "tiff", cfg.Pipeline.OutputFormat)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, []string{"scan.jpg"}, f.inputs)
}

func TestBuildConfigRequiresPreset(t *testing.T) {
	f, err := parseFlags([]string{"scan.jpg"}, io.Discard)
	require.NoError(t, err)

	_, err = buildConfig(f)
	var cfgErr *config.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "preset", cfgErr.Field)
}

func TestBuildConfigRejectsEvenWindow(t *testing.T) {
	f, err := parseFlags([]string{"-preset", "general", "-window", "20"}, io.Discard)
	require.NoError(t, err)

	_, err = buildConfig(f)
	var cfgErr *config.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "window_size", cfgErr.Field)
}

func TestRunProcessesFiles(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "page.png")

	img := image.NewGray(image.Rect(0, 0, 12, 12))
	for i := range img.Pix {
		img.Pix[i] = uint8(100 + i%50)
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	require.NoError(t, os.WriteFile(in, buf.Bytes(), 0o644))

	var stdout bytes.Buffer
	require.NoError(t, run([]string{"-preset", "general", "-no-upscale", in}, &stdout))

	assert.True(t, strings.HasPrefix(stdout.String(), in+" -> "))
	assert.Contains(t, stdout.String(), "12x12")

	out, err := os.ReadFile(filepath.Join(dir, "page.prep.png"))
	require.NoError(t, err)
	decoded, err := png.Decode(bytes.NewReader(out))
	require.NoError(t, err)

	r, _, _, _ := decoded.At(5, 5).RGBA()
	assert.Contains(t, []uint32{0, 0xffff}, r)
}

func TestRunRejectsMissingInputs(t *testing.T) {
	assert.ErrorContains(t, run([]string{"-preset", "general"}, io.Discard), "no input")
	assert.ErrorContains(t, run([]string{"-preset", "general", "-out", "x.png", "a.png", "b.png"}, io.Discard), "single input")
}

func TestRunVersion(t *testing.T) {
	var stdout bytes.Buffer
	require.NoError(t, run([]string{"-version"}, &stdout))
	assert.Equal(t, "glyphprep 1.0.0\n", stdout.String())
}
