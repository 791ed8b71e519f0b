package palette_test

import (
	"testing"

	"github.com/matryer/is"
	"github.com/tauraamui/pocketcam/pkg/palette"
)

func TestBayerMatricesContainEachThresholdOnce(t *testing.T) {
	is := is.New(t)
	for _, m := range [][][]int{palette.Bayer2x2, palette.Bayer4x4} {
		n := len(m)
		seen := make(map[int]bool)
		for _, row := range m {
			is.Equal(len(row), n)
			for _, v := range row {
				is.True(v >= 0 && v < n*n)
				is.True(!seen[v])
				seen[v] = true
			}
		}
		is.Equal(len(seen), n*n)
	}
}

func TestThresholdStaysInsideUnitInterval(t *testing.T) {
	is := is.New(t)
	for _, m := range [][][]int{palette.Bayer2x2, palette.Bayer4x4} {
		for y := 0; y < 16; y++ {
			for x := 0; x < 16; x++ {
				tv := palette.Threshold(m, x, y)
				is.True(tv > 0 && tv < 1)
			}
		}
	}
}

func TestThresholdTilesWithMatrixPeriod(t *testing.T) {
	is := is.New(t)
	n := len(palette.Bayer4x4)
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			is.Equal(palette.Threshold(palette.Bayer4x4, x, y), palette.Threshold(palette.Bayer4x4, x+n, y+n*3))
		}
	}
}

func TestOrderedIndexExtremes(t *testing.T) {
	is := is.New(t)
	for _, m := range [][][]int{palette.Bayer2x2, palette.Bayer4x4} {
		n := len(m)
		for y := 0; y < n; y++ {
			for x := 0; x < n; x++ {
				tv := palette.Threshold(m, x, y)
				is.Equal(palette.OrderedIndex(0, tv), 0)
				is.Equal(palette.OrderedIndex(1, tv), 3)
			}
		}
	}
}

func TestQuantizeIndexRoundTripsPaletteLevels(t *testing.T) {
	is := is.New(t)
	for i := 0; i < palette.Size; i++ {
		is.Equal(palette.QuantizeIndex(palette.IndexLevel(i)), i)
	}
}

func TestQuantizeIndexSplitsRangeEvenly(t *testing.T) {
	is := is.New(t)
	is.Equal(palette.QuantizeIndex(0.1), 0)
	is.Equal(palette.QuantizeIndex(0.3), 1)
	is.Equal(palette.QuantizeIndex(0.6), 2)
	is.Equal(palette.QuantizeIndex(0.9), 3)
}

func TestFloydSteinbergKeepsExactLevels(t *testing.T) {
	is := is.New(t)
	w, h := 4, 2
	lum := make([]float64, w*h)
	for i := range lum {
		lum[i] = palette.IndexLevel(i % palette.Size)
	}
	indices := palette.FloydSteinberg(lum, w, h)
	for i, idx := range indices {
		is.Equal(idx, i%palette.Size)
	}
}

func TestFloydSteinbergClampsNegativeCarry(t *testing.T) {
	is := is.New(t)
	// 0.5 rounds up to level 2/3, pushing negative error into
	// neighbours which must clamp to zero rather than underflow.
	lum := []float64{0.5, 0, 0, 0}
	indices := palette.FloydSteinberg(lum, 2, 2)
	is.Equal(indices, []int{2, 0, 0, 0})
}

func TestFloydSteinbergPreservesMeanBrightness(t *testing.T) {
	is := is.New(t)
	w, h := 64, 64
	lum := make([]float64, w*h)
	for i := range lum {
		lum[i] = 0.5
	}
	indices := palette.FloydSteinberg(lum, w, h)
	sum := 0.0
	for _, idx := range indices {
		sum += palette.IndexLevel(idx)
	}
	mean := sum / float64(w*h)
	is.True(mean > 0.48 && mean < 0.52)
}

func TestFloydSteinbergDivergesFromOrderedDither(t *testing.T) {
	is := is.New(t)
	w, h := 8, 8
	lum := make([]float64, w*h)
	ordered := make([]int, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			l := float64(x) / float64(w-1)
			lum[y*w+x] = l
			ordered[y*w+x] = palette.OrderedIndex(l, palette.Threshold(palette.Bayer4x4, x, y))
		}
	}
	diffused := palette.FloydSteinberg(lum, w, h)
	same := true
	for i := range diffused {
		if diffused[i] != ordered[i] {
			same = false
			break
		}
	}
	is.True(!same)
}
