package raster

// Luminance weights scaled by 1000 (0.299, 0.587, 0.114).
const (
	lumaRed   = 299
	lumaGreen = 587
	lumaBlue  = 114
)

// Grayscale replaces R, G and B of every pixel with its luminance
// 0.299R + 0.587G + 0.114B, rounded to the nearest integer. Opacity is kept.
func Grayscale(buf *PixelBuffer) error {
	if err := buf.Validate(); err != nil {
		return err
	}

	pix := buf.Pix
	for i := 0; i < len(pix); i += Channels {
		l := Luminance(pix[i], pix[i+1], pix[i+2])
		pix[i] = l
		pix[i+1] = l
		pix[i+2] = l
	}

	return nil
}

func Luminance(r, g, b uint8) uint8 {
	sum := lumaRed*int(r) + lumaGreen*int(g) + lumaBlue*int(b)
	return uint8((sum + 500) / 1000)
}
