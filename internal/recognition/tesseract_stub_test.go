//go:build !ocr

package recognition

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewWithoutOCRTag(t *testing.T) {
	r, err := New()
	assert.Nil(t, r)
	assert.ErrorIs(t, err, ErrNotEnabled)
}
