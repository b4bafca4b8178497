package raster

import "slices"

// MedianDenoise replaces every interior pixel with the median of its 3x3
// neighborhood. Neighbors are read from a snapshot taken before any write, the
// outermost one-pixel ring is left untouched and opacity is never modified.
func MedianDenoise(buf *PixelBuffer) error {
	if err := buf.Validate(); err != nil {
		return err
	}

	width, height := buf.Width, buf.Height
	if width < 3 || height < 3 {
		return nil
	}

	snapshot := make([]uint8, len(buf.Pix))
	copy(snapshot, buf.Pix)

	stride := width * Channels
	var window [9]uint8

	for y := 1; y < height-1; y++ {
		for x := 1; x < width-1; x++ {
			center := buf.Offset(x, y)

			n := 0
			for dy := -1; dy <= 1; dy++ {
				row := center + dy*stride
				for dx := -1; dx <= 1; dx++ {
					window[n] = snapshot[row+dx*Channels]
					n++
				}
			}

			slices.Sort(window[:])
			median := window[4]

			buf.Pix[center] = median
			buf.Pix[center+1] = median
			buf.Pix[center+2] = median
		}
	}

	return nil
}
