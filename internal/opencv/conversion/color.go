//go:build opencv

package conversion

import (
	"fmt"

	"glyphprep/internal/opencv/safe"

	"gocv.io/x/gocv"
)

// Allocator hands out tracked Mats. memory.Manager implements it.
type Allocator interface {
	GetMat(rows, cols int, matType gocv.MatType, tag string) (*safe.Mat, error)
	ReleaseMat(mat *safe.Mat, tag string)
}

func CvtColorSafe(src *safe.Mat, dst *safe.Mat, code gocv.ColorConversionCode) error {
	if err := safe.ValidateColorConversion(src, code); err != nil {
		return fmt.Errorf("color conversion validation failed: %w", err)
	}

	if err := safe.ValidateMatForOperation(dst, "CvtColor destination"); err != nil {
		return fmt.Errorf("destination mat validation failed: %w", err)
	}

	srcMat := src.GetMat()
	dstMat := dst.GetMat()

	gocv.CvtColor(srcMat, &dstMat, code)

	return nil
}

// ToRGBA converts a decoded 1, 3 or 4 channel Mat into RGBA channel order.
func ToRGBA(src *safe.Mat, alloc Allocator) (*safe.Mat, error) {
	if err := safe.ValidateMatForOperation(src, "ToRGBA"); err != nil {
		return nil, err
	}

	var conversionCode gocv.ColorConversionCode
	switch channels := src.Channels(); channels {
	case 1:
		conversionCode = gocv.ColorGrayToRGBA
	case 3:
		conversionCode = gocv.ColorBGRToRGBA
	case 4:
		conversionCode = gocv.ColorBGRAToRGBA
	default:
		return nil, fmt.Errorf("unsupported channel count for RGBA conversion: %d", channels)
	}

	dst, err := alloc.GetMat(src.Rows(), src.Cols(), gocv.MatTypeCV8UC4, "rgba")
	if err != nil {
		return nil, fmt.Errorf("failed to create destination Mat: %w", err)
	}

	if err := CvtColorSafe(src, dst, conversionCode); err != nil {
		alloc.ReleaseMat(dst, "rgba")
		return nil, fmt.Errorf("color conversion failed: %w", err)
	}

	return dst, nil
}

// FromRGBA converts an RGBA Mat into OpenCV's native BGRA order, or BGR when
// keepAlpha is false.
func FromRGBA(src *safe.Mat, alloc Allocator, keepAlpha bool) (*safe.Mat, error) {
	if err := safe.ValidateMatForOperation(src, "FromRGBA"); err != nil {
		return nil, err
	}

	matType, code, tag := gocv.MatTypeCV8UC4, gocv.ColorRGBAToBGRA, "bgra"
	if !keepAlpha {
		matType, code, tag = gocv.MatTypeCV8UC3, gocv.ColorRGBAToBGR, "bgr"
	}

	dst, err := alloc.GetMat(src.Rows(), src.Cols(), matType, tag)
	if err != nil {
		return nil, fmt.Errorf("failed to create destination Mat: %w", err)
	}

	if err := CvtColorSafe(src, dst, code); err != nil {
		alloc.ReleaseMat(dst, tag)
		return nil, fmt.Errorf("color conversion failed: %w", err)
	}

	return dst, nil
}
