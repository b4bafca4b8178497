//go:build opencv

// Package bridge copies pixels between raster buffers and OpenCV Mats.
package bridge

import (
	"fmt"

	"glyphprep/internal/opencv/conversion"
	"glyphprep/internal/opencv/safe"
	"glyphprep/internal/raster"

	"gocv.io/x/gocv"
)

// MatToBuffer copies any 1, 3 or 4 channel 8-bit Mat into a new PixelBuffer.
func MatToBuffer(mat *safe.Mat, alloc conversion.Allocator) (*raster.PixelBuffer, error) {
	if err := safe.ValidateMatForOperation(mat, "MatToBuffer"); err != nil {
		return nil, err
	}

	rgba, err := conversion.ToRGBA(mat, alloc)
	if err != nil {
		return nil, err
	}
	defer alloc.ReleaseMat(rgba, "rgba")

	buf, err := raster.NewPixelBuffer(rgba.Cols(), rgba.Rows())
	if err != nil {
		return nil, err
	}

	data, err := rgba.Bytes()
	if err != nil {
		return nil, err
	}

	if len(data) != len(buf.Pix) {
		return nil, fmt.Errorf("Mat holds %d bytes, expected %d for %dx%d",
			len(data), len(buf.Pix), buf.Width, buf.Height)
	}

	copy(buf.Pix, data)
	return buf, nil
}

// BufferToMat builds a BGRA (or BGR) Mat from a PixelBuffer. The result is
// tracked by alloc and must be released through it.
func BufferToMat(buf *raster.PixelBuffer, alloc conversion.Allocator, keepAlpha bool) (*safe.Mat, error) {
	if err := buf.Validate(); err != nil {
		return nil, err
	}

	view, err := gocv.NewMatFromBytes(buf.Height, buf.Width, gocv.MatTypeCV8UC4, buf.Pix)
	if err != nil {
		return nil, fmt.Errorf("failed to wrap pixel buffer: %w", err)
	}

	rgba, err := safe.Adopt(view, nil, "rgba_view")
	if err != nil {
		return nil, err
	}
	defer rgba.Close()

	return conversion.FromRGBA(rgba, alloc, keepAlpha)
}
