//go:build !ocr

package app

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"glyphprep/internal/recognition"
)

func TestRecognitionRequiresOCRBuild(t *testing.T) {
	cfg := testConfig(t)
	cfg.Recognition.Enabled = true

	_, err := NewApplication(cfg, WithLogOutput(&syncBuffer{}))
	assert.ErrorIs(t, err, recognition.ErrNotEnabled)
}
