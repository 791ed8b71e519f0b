package audio

// PCM boundary format shared by extraction, processing and muxing.
const (
	SampleRate = 44100
	Channels   = 2
)

type Settings struct {
	HighpassHz    float64
	LowpassHz     float64
	BitDepth      int
	DistortionPct float64
}

func DefaultSettings() Settings {
	return Settings{
		HighpassHz:    80,
		LowpassHz:     6500,
		BitDepth:      8,
		DistortionPct: 10,
	}
}

// Clamp returns the settings forced into filter-stable bounds.
func (s Settings) Clamp() Settings {
	s.HighpassHz = clampf(s.HighpassHz, 10, 1000)
	s.LowpassHz = clampf(s.LowpassHz, 500, 12000)
	if s.BitDepth < 2 {
		s.BitDepth = 2
	}
	if s.BitDepth > 12 {
		s.BitDepth = 12
	}
	s.DistortionPct = clampf(s.DistortionPct, 0, 100)
	return s
}

func clampf(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
