package audio_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/matryer/is"
	"github.com/stretchr/testify/require"

	"github.com/tauraamui/pocketcam/pkg/audio"
)

func testSignal(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		t := float64(i)
		out[i] = 0.6*math.Sin(t*0.071) + 0.3*math.Sin(t*0.407+1.3) + 0.05*math.Sin(t*2.9)
	}
	return out
}

func maxAbs(pcm []int16) int {
	m := 0
	for _, v := range pcm {
		a := int(v)
		if a < 0 {
			a = -a
		}
		if a > m {
			m = a
		}
	}
	return m
}

func rms(pcm []int16) float64 {
	var sum float64
	for _, v := range pcm {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum / float64(len(pcm)))
}

func distinct(pcm []int16) int {
	seen := map[int16]struct{}{}
	for _, v := range pcm {
		seen[v] = struct{}{}
	}
	return len(seen)
}

func TestClampForcesFilterStableBounds(t *testing.T) {
	is := is.New(t)

	s := audio.Settings{HighpassHz: 0, LowpassHz: 99999, BitDepth: 0, DistortionPct: -5}.Clamp()
	is.Equal(s, audio.Settings{HighpassHz: 10, LowpassHz: 12000, BitDepth: 2, DistortionPct: 0})

	s = audio.Settings{HighpassHz: 5000, LowpassHz: 100, BitDepth: 99, DistortionPct: 150}.Clamp()
	is.Equal(s, audio.Settings{HighpassHz: 1000, LowpassHz: 500, BitDepth: 12, DistortionPct: 100})
}

func TestChunkedProcessingMatchesWholeBuffer(t *testing.T) {
	is := is.New(t)

	s := audio.Settings{HighpassHz: 120, LowpassHz: 5500, BitDepth: 6, DistortionPct: 35}

	// Odd length on purpose so chunk splits land mid frame.
	whole := testSignal(9001)
	chunked := testSignal(9001)

	a, err := audio.NewChain(s, 44100, 2)
	require.NoError(t, err)
	a.Process(whole)

	b, err := audio.NewChain(s, 44100, 2)
	require.NoError(t, err)
	r := rand.New(rand.NewSource(99))
	for off := 0; off < len(chunked); {
		n := 1 + r.Intn(513)
		if off+n > len(chunked) {
			n = len(chunked) - off
		}
		b.Process(chunked[off : off+n])
		off += n
	}

	is.Equal(whole, chunked)
}

func TestRenderKeepsSilenceSilent(t *testing.T) {
	is := is.New(t)

	out, err := audio.Render(make([]int16, 2048), 44100, 2, audio.DefaultSettings())
	is.NoErr(err)
	is.Equal(len(out), 2048)
	is.Equal(maxAbs(out), 0)
}

func TestRenderOutputStaysBounded(t *testing.T) {
	is := is.New(t)

	square := make([]int16, 8192)
	for i := range square {
		if i/64%2 == 0 {
			square[i] = 32000
		} else {
			square[i] = -32000
		}
	}

	out, err := audio.Render(square, 44100, 1, audio.Settings{
		HighpassHz: 10, LowpassHz: 12000, BitDepth: 12, DistortionPct: 100,
	})
	is.NoErr(err)
	is.True(maxAbs(out) > 1000)
	is.True(maxAbs(out) < 31500)
}

func TestBitDepthControlsLevelCount(t *testing.T) {
	is := is.New(t)

	sine := make([]int16, 8192)
	for i := range sine {
		sine[i] = int16(28000 * math.Sin(float64(i)*0.0123))
	}

	low, err := audio.Render(sine, 44100, 1, audio.Settings{
		HighpassHz: 10, LowpassHz: 12000, BitDepth: 2,
	})
	require.NoError(t, err)
	high, err := audio.Render(sine, 44100, 1, audio.Settings{
		HighpassHz: 10, LowpassHz: 12000, BitDepth: 12,
	})
	require.NoError(t, err)

	is.True(distinct(low) <= 5)
	is.True(distinct(high) > 50)
}

func TestHighpassRemovesConstantOffset(t *testing.T) {
	is := is.New(t)

	dc := make([]int16, 8820)
	for i := range dc {
		dc[i] = 16384
	}

	out, err := audio.Render(dc, 44100, 1, audio.Settings{
		HighpassHz: 80, LowpassHz: 12000, BitDepth: 8,
	})
	is.NoErr(err)
	is.True(maxAbs(out[len(out)-100:]) <= 1)
}

func TestLowpassAttenuatesBuzz(t *testing.T) {
	is := is.New(t)

	buzz := make([]int16, 8820)
	for i := range buzz {
		if i%2 == 0 {
			buzz[i] = 26000
		} else {
			buzz[i] = -26000
		}
	}

	out, err := audio.Render(buzz, 44100, 1, audio.Settings{
		HighpassHz: 10, LowpassHz: 500, BitDepth: 12,
	})
	is.NoErr(err)
	is.True(rms(out[1000:]) < 500)
}

func TestDistortionFlattensPeaks(t *testing.T) {
	is := is.New(t)

	sine := make([]int16, 8820)
	for i := range sine {
		sine[i] = int16(29000 * math.Sin(float64(i)*0.05))
	}

	clean, err := audio.Render(sine, 44100, 1, audio.Settings{
		HighpassHz: 10, LowpassHz: 12000, BitDepth: 12, DistortionPct: 0,
	})
	require.NoError(t, err)
	driven, err := audio.Render(sine, 44100, 1, audio.Settings{
		HighpassHz: 10, LowpassHz: 12000, BitDepth: 12, DistortionPct: 100,
	})
	require.NoError(t, err)

	crest := func(pcm []int16) float64 {
		settled := pcm[500:]
		return float64(maxAbs(settled)) / rms(settled)
	}
	is.True(crest(driven) < crest(clean))
}

func TestChainRejectsBadParams(t *testing.T) {
	is := is.New(t)

	_, err := audio.NewChain(audio.DefaultSettings(), 0, 2)
	is.True(err != nil)

	_, err = audio.NewChain(audio.DefaultSettings(), 44100, 0)
	is.True(err != nil)

	_, err = audio.Render(nil, -1, 2, audio.DefaultSettings())
	is.True(err != nil)
}
