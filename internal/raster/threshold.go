package raster

import "fmt"

const (
	black = 0
	white = 255
)

// AdaptiveThreshold binarizes a grayscale buffer against the mean of a
// windowSize x windowSize neighborhood centered on each pixel. The window is
// clamped to the image, so it shrinks near borders. A pixel becomes white when
// its intensity is strictly greater than mean - constant, black otherwise, and
// every pixel is made fully opaque.
func AdaptiveThreshold(buf *PixelBuffer, integral *IntegralImage, windowSize, constant int) error {
	if err := buf.Validate(); err != nil {
		return err
	}

	if integral == nil || integral.Width != buf.Width || integral.Height != buf.Height {
		return fmt.Errorf("integral image does not match %dx%d buffer", buf.Width, buf.Height)
	}

	if windowSize <= 0 || windowSize%2 == 0 {
		return fmt.Errorf("window size must be a positive odd number, got %d", windowSize)
	}

	width, height := buf.Width, buf.Height
	halfWindow := windowSize / 2
	c := int64(constant)

	for y := 0; y < height; y++ {
		y1 := max(0, y-halfWindow)
		y2 := min(height-1, y+halfWindow)

		for x := 0; x < width; x++ {
			x1 := max(0, x-halfWindow)
			x2 := min(width-1, x+halfWindow)

			count := int64((x2 - x1 + 1) * (y2 - y1 + 1))
			sum := integral.Sum(x1, y1, x2, y2)

			// v > sum/count - c, kept in integers
			i := buf.Offset(x, y)
			value := black
			if int64(buf.Pix[i])*count > sum-c*count {
				value = white
			}

			buf.Pix[i] = uint8(value)
			buf.Pix[i+1] = uint8(value)
			buf.Pix[i+2] = uint8(value)
			buf.Pix[i+3] = 255
		}
	}

	return nil
}
