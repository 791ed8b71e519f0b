package render

import (
	"strings"

	"github.com/tauraamui/xerror"

	"github.com/tauraamui/pocketcam/pkg/palette"
)

type DitherMode string

const (
	DitherNone           DitherMode = "none"
	DitherBayer2x2       DitherMode = "bayer2x2"
	DitherBayer4x4       DitherMode = "bayer4x4"
	DitherFloydSteinberg DitherMode = "floydSteinberg"
	// DitherSensorCrop locks processing to the fixed sensor resolution
	// and aspect, dithers with the 4x4 matrix and enables the windowed
	// tone response curve.
	DitherSensorCrop DitherMode = "sensorCrop4x4"
)

var ErrUnknownDitherMode = xerror.New("unknown dither mode")

func DitherModes() []string {
	return []string{
		string(DitherNone),
		string(DitherBayer2x2),
		string(DitherBayer4x4),
		string(DitherFloydSteinberg),
		string(DitherSensorCrop),
	}
}

func ParseDitherMode(v string) (DitherMode, error) {
	for _, m := range DitherModes() {
		if v == m || strings.EqualFold(v, m) {
			return DitherMode(m), nil
		}
	}
	return "", xerror.Errorf("%w: %q", ErrUnknownDitherMode, v)
}

// CropRegion is a sampling window normalised to the unit square.
type CropRegion struct {
	X, Y, W, H float64
}

func (c CropRegion) normalized(sensor bool) CropRegion {
	minW := 0.05
	if sensor {
		minW = 0.15
	}
	c.W = clampf(c.W, minW, 1)
	c.H = clampf(c.H, 0.05, 1)
	c.X = clampf(c.X, 0, 1-c.W)
	c.Y = clampf(c.Y, 0, 1-c.H)
	return c
}

type LCDSettings struct {
	Enabled          bool
	GridIntensity    float64
	ShadowOpacity    float64
	GhostingStrength float64
	BlackLevelLift   float64
}

// Settings is the full per-job processing configuration. The pipeline
// reads one consistent snapshot per render, so callers replace the
// whole value rather than mutating fields mid-pass.
type Settings struct {
	Contrast       float64
	ResponseAmount float64
	Crop           *CropRegion
	Dither         DitherMode
	PaletteName    string
	InvertPalette  bool
	LCD            LCDSettings
}

func DefaultSettings() Settings {
	return Settings{
		Contrast:       1,
		ResponseAmount: 0.65,
		Dither:         DitherBayer4x4,
		PaletteName:    palette.DefaultName,
		LCD: LCDSettings{
			Enabled:          true,
			GridIntensity:    0.35,
			ShadowOpacity:    0.25,
			GhostingStrength: 0.4,
			BlackLevelLift:   0.2,
		},
	}
}

// Normalized clamps every field into its working bounds and fills in
// defaults for zero values.
func (s Settings) Normalized() Settings {
	s.Contrast = clampf(s.Contrast, 0.5, 3)
	s.ResponseAmount = clampf(s.ResponseAmount, 0, 1)
	if s.Dither == "" {
		s.Dither = DitherNone
	}
	if s.PaletteName == "" {
		s.PaletteName = palette.DefaultName
	}
	s.LCD.GridIntensity = clampf(s.LCD.GridIntensity, 0, 1)
	s.LCD.ShadowOpacity = clampf(s.LCD.ShadowOpacity, 0, 1)
	s.LCD.GhostingStrength = clampf(s.LCD.GhostingStrength, 0, 0.9)
	s.LCD.BlackLevelLift = clampf(s.LCD.BlackLevelLift, 0, 1)
	if s.Crop != nil {
		c := s.Crop.normalized(s.Dither == DitherSensorCrop)
		s.Crop = &c
	}
	return s
}

func (s Settings) validate() error {
	if _, err := palette.ByName(s.PaletteName); err != nil {
		return err
	}
	if _, err := ParseDitherMode(string(s.Dither)); err != nil {
		return err
	}
	return nil
}

func cropEqual(a, b *CropRegion) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
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
