package audio

import (
	"math"

	"github.com/tauraamui/xerror"
)

const (
	// Butterworth response for both shaping filters.
	filterQ = 1 / math.Sqrt2

	// Bitcrush sample-and-hold length in ticks.
	holdTicks = 4

	outputGain = 0.85
)

// biquad is a second-order IIR section with RBJ cookbook coefficients,
// evaluated in direct form I. Coefficients are pre-normalized by a0.
type biquad struct {
	b0, b1, b2, a1, a2 float64
	x1, x2, y1, y2     float64
}

func newLowpass(cutoffHz, sampleRate float64) *biquad {
	w0 := 2 * math.Pi * cutoffHz / sampleRate
	cosw, sinw := math.Cos(w0), math.Sin(w0)
	alpha := sinw / (2 * filterQ)

	a0 := 1 + alpha
	return &biquad{
		b0: ((1 - cosw) / 2) / a0,
		b1: (1 - cosw) / a0,
		b2: ((1 - cosw) / 2) / a0,
		a1: (-2 * cosw) / a0,
		a2: (1 - alpha) / a0,
	}
}

func newHighpass(cutoffHz, sampleRate float64) *biquad {
	w0 := 2 * math.Pi * cutoffHz / sampleRate
	cosw, sinw := math.Cos(w0), math.Sin(w0)
	alpha := sinw / (2 * filterQ)

	a0 := 1 + alpha
	return &biquad{
		b0: ((1 + cosw) / 2) / a0,
		b1: (-(1 + cosw)) / a0,
		b2: ((1 + cosw) / 2) / a0,
		a1: (-2 * cosw) / a0,
		a2: (1 - alpha) / a0,
	}
}

func (f *biquad) process(x float64) float64 {
	y := f.b0*x + f.b1*f.x1 + f.b2*f.x2 - f.a1*f.y1 - f.a2*f.y2
	f.x2, f.x1 = f.x1, x
	f.y2, f.y1 = f.y1, y
	return y
}

// bitcrusher quantizes a captured sample to 2^bitDepth levels and holds
// it for holdTicks ticks.
type bitcrusher struct {
	levels  float64
	held    float64
	counter int
}

func newBitcrusher(bitDepth int) *bitcrusher {
	return &bitcrusher{levels: math.Pow(2, float64(bitDepth-1))}
}

func (c *bitcrusher) process(x float64) float64 {
	if c.counter == 0 {
		c.held = math.Round(x*c.levels) / c.levels
	}
	c.counter = (c.counter + 1) % holdTicks
	return c.held
}

// softclip is the waveshaper y = (3+k)*x*c / (pi + k*|x|) with c = pi/3,
// an identity at zero drive.
type softclip struct {
	k float64
}

func newSoftclip(distortionPct float64) softclip {
	return softclip{k: (distortionPct / 100) * 50}
}

func (s softclip) process(x float64) float64 {
	const c = math.Pi / 3
	return (3 + s.k) * x * c / (math.Pi + s.k*math.Abs(x))
}

// Chain is the live lo-fi graph: highpass, lowpass, bitcrush, soft clip,
// fixed output gain. Filter state persists across Process calls so
// chunked streaming and whole-buffer processing agree sample for sample.
type Chain struct {
	channels int
	pos      int

	hp, lp []*biquad
	crush  []*bitcrusher
	clip   softclip
}

func NewChain(s Settings, sampleRate float64, channels int) (*Chain, error) {
	if sampleRate <= 0 {
		return nil, xerror.Errorf("sample rate must be positive, got %f", sampleRate)
	}
	if channels < 1 {
		return nil, xerror.Errorf("need at least one channel, got %d", channels)
	}
	s = s.Clamp()

	c := Chain{
		channels: channels,
		hp:       make([]*biquad, channels),
		lp:       make([]*biquad, channels),
		crush:    make([]*bitcrusher, channels),
		clip:     newSoftclip(s.DistortionPct),
	}
	for ch := 0; ch < channels; ch++ {
		c.hp[ch] = newHighpass(s.HighpassHz, sampleRate)
		c.lp[ch] = newLowpass(s.LowpassHz, sampleRate)
		c.crush[ch] = newBitcrusher(s.BitDepth)
	}
	return &c, nil
}

// Process runs the chain over interleaved samples in place. Chunks do
// not need to be channel-aligned; the chain tracks its own position.
func (c *Chain) Process(samples []float64) {
	for i, x := range samples {
		ch := c.pos % c.channels
		x = c.hp[ch].process(x)
		x = c.lp[ch].process(x)
		x = c.crush[ch].process(x)
		x = c.clip.process(x)
		samples[i] = x * outputGain
		c.pos++
	}
}

// Render is the offline replica: it processes a whole decoded PCM
// buffer through a fresh chain in one call.
func Render(pcm []int16, sampleRate float64, channels int, s Settings) ([]int16, error) {
	chain, err := NewChain(s, sampleRate, channels)
	if err != nil {
		return nil, err
	}

	buf := make([]float64, len(pcm))
	for i, v := range pcm {
		buf[i] = float64(v) / 32768
	}
	chain.Process(buf)

	out := make([]int16, len(buf))
	for i, v := range buf {
		out[i] = clampPCM(v)
	}
	return out, nil
}

func clampPCM(v float64) int16 {
	v = math.Round(v * 32767)
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}
