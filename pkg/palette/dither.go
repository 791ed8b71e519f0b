package palette

// Bayer threshold matrices in their canonical form. Thresholds repeat
// with period len(m) in both axes, so lookups stay pixel-exact at any
// resolution.
var (
	Bayer2x2 = [][]int{
		{0, 2},
		{3, 1},
	}
	Bayer4x4 = [][]int{
		{0, 8, 2, 10},
		{12, 4, 14, 6},
		{3, 11, 1, 9},
		{15, 7, 13, 5},
	}
)

// Threshold reads the matrix entry for a pixel coordinate and maps it
// into (0,1). The +0.5 centres the threshold set on one half so the
// dither adds no net bias.
func Threshold(m [][]int, x, y int) float64 {
	n := len(m)
	cells := float64(n * n)
	return (float64(m[y%n][x%n]) + 0.5) / cells
}

// OrderedIndex quantizes luminance in [0,1] to one of the 4 palette
// indices, nudged by an ordered-dither threshold t in (0,1).
func OrderedIndex(l, t float64) int {
	return clampIndex(int(fastFloor(l*float64(Size-1) + t)))
}

// QuantizeIndex quantizes luminance in [0,1] to the nearest of the 4
// evenly spaced palette levels, without dithering.
func QuantizeIndex(l float64) int {
	return clampIndex(int(fastFloor(l*float64(Size-1) + 0.5)))
}

// IndexLevel is the luminance a palette index represents.
func IndexLevel(i int) float64 {
	return float64(i) / float64(Size-1)
}

// FloydSteinberg dithers a row-major luminance buffer into palette
// indices. Quantization error is pushed into not-yet-visited
// neighbours: right 7/16, bottom-left 3/16, bottom 5/16, bottom-right
// 1/16, skipping targets outside the image. The buffer accumulates
// error unclamped; values clamp to [0,1] only at the moment a pixel is
// read for quantization. The input buffer is used as the working
// buffer and is left modified.
func FloydSteinberg(lum []float64, w, h int) []int {
	indices := make([]int, w*h)
	for y := 0; y < h; y++ {
		row := y * w
		for x := 0; x < w; x++ {
			value := clamp01(lum[row+x])
			idx := QuantizeIndex(value)
			indices[row+x] = idx
			err := value - IndexLevel(idx)

			if x+1 < w {
				lum[row+x+1] += err * 7.0 / 16.0
			}
			if y+1 < h {
				below := row + w + x
				if x-1 >= 0 {
					lum[below-1] += err * 3.0 / 16.0
				}
				lum[below] += err * 5.0 / 16.0
				if x+1 < w {
					lum[below+1] += err * 1.0 / 16.0
				}
			}
		}
	}
	return indices
}

func clampIndex(i int) int {
	if i < 0 {
		return 0
	}
	if i > Size-1 {
		return Size - 1
	}
	return i
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// fastFloor avoids the float->int truncation-towards-zero trap for the
// small negative values a threshold nudge can produce.
func fastFloor(v float64) float64 {
	f := float64(int(v))
	if v < 0 && f != v {
		f--
	}
	return f
}
