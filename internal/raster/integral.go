package raster

// IntegralImage is a summed-area table over the red channel of a buffer.
// Sums[y*Width+x] holds the sum of intensities in the rectangle (0,0)-(x,y).
type IntegralImage struct {
	Width  int
	Height int
	Sums   []int64
}

// BuildIntegral builds the table in one pass per row: a running horizontal
// sum plus the value of the cell directly above.
func BuildIntegral(buf *PixelBuffer) (*IntegralImage, error) {
	if err := buf.Validate(); err != nil {
		return nil, err
	}

	width, height := buf.Width, buf.Height
	sums := make([]int64, width*height)

	for y := 0; y < height; y++ {
		var rowSum int64
		row := y * width
		for x := 0; x < width; x++ {
			rowSum += int64(buf.Pix[(row+x)*Channels])
			if y > 0 {
				sums[row+x] = sums[row-width+x] + rowSum
			} else {
				sums[row+x] = rowSum
			}
		}
	}

	return &IntegralImage{Width: width, Height: height, Sums: sums}, nil
}

// At returns the table value at (x, y). Coordinates left of or above the
// image yield zero so that inclusion-exclusion needs no special cases.
func (ii *IntegralImage) At(x, y int) int64 {
	if x < 0 || y < 0 {
		return 0
	}
	return ii.Sums[y*ii.Width+x]
}

// Sum returns the intensity sum over the inclusive rectangle (x0,y0)-(x1,y1),
// computed as D + A - B - C from the four corner values.
func (ii *IntegralImage) Sum(x0, y0, x1, y1 int) int64 {
	a := ii.At(x0-1, y0-1)
	b := ii.At(x1, y0-1)
	c := ii.At(x0-1, y1)
	d := ii.At(x1, y1)
	return d + a - b - c
}

// Mean returns the integer mean intensity of the inclusive rectangle.
func (ii *IntegralImage) Mean(x0, y0, x1, y1 int) int64 {
	count := int64((x1 - x0 + 1) * (y1 - y0 + 1))
	return ii.Sum(x0, y0, x1, y1) / count
}
