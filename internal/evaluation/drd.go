package evaluation

import "math"

// drdWeights is the normalized 5x5 reciprocal-distance matrix with a zero
// center.
var drdWeights = func() [drdWindow][drdWindow]float64 {
	var w [drdWindow][drdWindow]float64
	center := drdWindow / 2
	total := 0.0

	for i := range drdWindow {
		for j := range drdWindow {
			if i == center && j == center {
				continue
			}
			dx := float64(i - center)
			dy := float64(j - center)
			w[i][j] = 1 / math.Sqrt(dx*dx+dy*dy)
			total += w[i][j]
		}
	}

	for i := range drdWindow {
		for j := range drdWindow {
			w[i][j] /= total
		}
	}

	return w
}()

// distanceReciprocalDistortion sums, over every flipped pixel, the weighted
// disagreement between the result value and the ground-truth neighbourhood,
// normalized by the number of non-uniform 8x8 ground-truth blocks.
func distanceReciprocalDistortion(gt, res []bool, width, height int) float64 {
	center := drdWindow / 2
	total := 0.0

	for y := range height {
		for x := range width {
			k := y*width + x
			if gt[k] == res[k] {
				continue
			}

			for i := range drdWindow {
				for j := range drdWindow {
					nx := x + j - center
					ny := y + i - center
					if nx < 0 || nx >= width || ny < 0 || ny >= height {
						continue
					}
					if gt[ny*width+nx] != res[k] {
						total += drdWeights[i][j]
					}
				}
			}
		}
	}

	if total == 0 {
		return 0
	}

	return total / float64(max(nonUniformBlocks(gt, width, height), 1))
}

func nonUniformBlocks(gt []bool, width, height int) int {
	count := 0

	for by := 0; by+nubnBlock <= height; by += nubnBlock {
		for bx := 0; bx+nubnBlock <= width; bx += nubnBlock {
			first := gt[by*width+bx]
			uniform := true

			for y := by; y < by+nubnBlock && uniform; y++ {
				for x := bx; x < bx+nubnBlock; x++ {
					if gt[y*width+x] != first {
						uniform = false
						break
					}
				}
			}

			if !uniform {
				count++
			}
		}
	}

	return count
}
