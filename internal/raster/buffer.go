// Package raster holds the in-memory pixel representation and the pixel-level
// transforms of the preprocessing pipeline. Every transform mutates a
// PixelBuffer in place and runs synchronously on the calling goroutine.
package raster

import (
	"errors"
	"fmt"
	"image"

	"golang.org/x/image/draw"
)

// Channels is the number of interleaved channels per pixel (R, G, B, A).
const Channels = 4

const maxDimension = 32768

// ErrMalformedBuffer is returned when a buffer's channel array does not match
// its declared dimensions.
var ErrMalformedBuffer = errors.New("malformed pixel buffer")

// PixelBuffer is a non-premultiplied RGBA raster. Pix is laid out row-major
// with four bytes per pixel, which is the layout of image.NRGBA.
type PixelBuffer struct {
	Width  int
	Height int
	Pix    []uint8
}

func NewPixelBuffer(width, height int) (*PixelBuffer, error) {
	if err := validateDimensions(width, height); err != nil {
		return nil, err
	}

	return &PixelBuffer{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height*Channels),
	}, nil
}

// FromImage copies any image.Image into a new PixelBuffer anchored at (0,0).
func FromImage(img image.Image) (*PixelBuffer, error) {
	if img == nil {
		return nil, fmt.Errorf("input image is nil")
	}

	bounds := img.Bounds()
	buf, err := NewPixelBuffer(bounds.Dx(), bounds.Dy())
	if err != nil {
		return nil, err
	}

	if nrgba, ok := img.(*image.NRGBA); ok && nrgba.Stride == bounds.Dx()*Channels {
		start := nrgba.PixOffset(bounds.Min.X, bounds.Min.Y)
		copy(buf.Pix, nrgba.Pix[start:start+len(buf.Pix)])
		return buf, nil
	}

	dst := buf.NRGBA()
	draw.Draw(dst, dst.Bounds(), img, bounds.Min, draw.Src)
	return buf, nil
}

// NRGBA returns an image view sharing the buffer's pixel storage.
func (b *PixelBuffer) NRGBA() *image.NRGBA {
	return &image.NRGBA{
		Pix:    b.Pix,
		Stride: b.Width * Channels,
		Rect:   image.Rect(0, 0, b.Width, b.Height),
	}
}

func (b *PixelBuffer) Clone() *PixelBuffer {
	pix := make([]uint8, len(b.Pix))
	copy(pix, b.Pix)
	return &PixelBuffer{Width: b.Width, Height: b.Height, Pix: pix}
}

// Validate checks the length invariant: len(Pix) == Width*Height*4.
func (b *PixelBuffer) Validate() error {
	if b == nil {
		return fmt.Errorf("%w: buffer is nil", ErrMalformedBuffer)
	}

	if b.Width <= 0 || b.Height <= 0 {
		return fmt.Errorf("%w: invalid dimensions %dx%d", ErrMalformedBuffer, b.Width, b.Height)
	}

	if expected := b.Width * b.Height * Channels; len(b.Pix) != expected {
		return fmt.Errorf("%w: channel array has %d bytes, expected %d for %dx%d",
			ErrMalformedBuffer, len(b.Pix), expected, b.Width, b.Height)
	}

	return nil
}

// Offset returns the index of the red channel of pixel (x, y).
func (b *PixelBuffer) Offset(x, y int) int {
	return (y*b.Width + x) * Channels
}

// Intensity returns the red channel of (x, y), which equals the luminance once
// the buffer has been reduced to grayscale.
func (b *PixelBuffer) Intensity(x, y int) uint8 {
	return b.Pix[b.Offset(x, y)]
}

// SetGray writes v into the three color channels of (x, y), leaving opacity.
func (b *PixelBuffer) SetGray(x, y int, v uint8) {
	i := b.Offset(x, y)
	b.Pix[i] = v
	b.Pix[i+1] = v
	b.Pix[i+2] = v
}

// IsGray reports whether R, G and B are equal at every pixel.
func (b *PixelBuffer) IsGray() bool {
	for i := 0; i+2 < len(b.Pix); i += Channels {
		if b.Pix[i] != b.Pix[i+1] || b.Pix[i] != b.Pix[i+2] {
			return false
		}
	}
	return true
}

func validateDimensions(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid dimensions: %dx%d", width, height)
	}

	if width > maxDimension || height > maxDimension {
		return fmt.Errorf("dimensions %dx%d exceed maximum size", width, height)
	}

	return nil
}
