package audio

import (
	"math"
	"testing"

	"github.com/matryer/is"
)

func TestBiquadDCResponse(t *testing.T) {
	is := is.New(t)

	lp := newLowpass(1000, 44100)
	hp := newHighpass(1000, 44100)

	var lpOut, hpOut float64
	for i := 0; i < 44100; i++ {
		lpOut = lp.process(0.5)
		hpOut = hp.process(0.5)
	}
	is.True(math.Abs(lpOut-0.5) < 1e-6)
	is.True(math.Abs(hpOut) < 1e-6)
}

func TestBitcrusherHoldsQuantizedSample(t *testing.T) {
	is := is.New(t)

	c := newBitcrusher(2)
	in := []float64{0.3, 0.9, -0.9, 0.1, -0.6, 0, 0, 0, 0.9}
	want := []float64{0.5, 0.5, 0.5, 0.5, -0.5, -0.5, -0.5, -0.5, 1}

	got := make([]float64, len(in))
	for i, x := range in {
		got[i] = c.process(x)
	}
	is.Equal(got, want)
}

func TestSoftclipIdentityAtZeroDrive(t *testing.T) {
	is := is.New(t)

	clip := newSoftclip(0)
	for x := -1.0; x <= 1.0; x += 0.01 {
		is.True(math.Abs(clip.process(x)-x) < 1e-9)
	}
}

func TestSoftclipCompressesAtFullDrive(t *testing.T) {
	is := is.New(t)

	clip := newSoftclip(100)

	is.True(clip.process(0.2) < clip.process(0.5))
	is.True(clip.process(0.5) < clip.process(1))

	// Incremental gain falls as the input level rises.
	is.True(clip.process(0.5)/0.5 > clip.process(1)/1)

	y := clip.process(1)
	is.True(y > 1 && y < 1.1)
}
