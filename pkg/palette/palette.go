package palette

import (
	"image/color"
	"sort"

	"github.com/tauraamui/xerror"
)

// Palette is an ordered run of exactly 4 opaque colors, darkest first.
type Palette [4]color.RGBA

const Size = 4

var registry = map[string]Palette{
	"dmg": {
		{R: 15, G: 56, B: 15, A: 255},
		{R: 48, G: 98, B: 48, A: 255},
		{R: 139, G: 172, B: 15, A: 255},
		{R: 155, G: 188, B: 15, A: 255},
	},
	"pocket": {
		{R: 24, G: 30, B: 26, A: 255},
		{R: 86, G: 98, B: 90, A: 255},
		{R: 155, G: 170, B: 160, A: 255},
		{R: 214, G: 224, B: 218, A: 255},
	},
	"gray": {
		{R: 0, G: 0, B: 0, A: 255},
		{R: 85, G: 85, B: 85, A: 255},
		{R: 170, G: 170, B: 170, A: 255},
		{R: 255, G: 255, B: 255, A: 255},
	},
	"amber": {
		{R: 31, G: 16, B: 0, A: 255},
		{R: 112, G: 56, B: 2, A: 255},
		{R: 196, G: 112, B: 8, A: 255},
		{R: 255, G: 186, B: 64, A: 255},
	},
}

const DefaultName = "dmg"

func ByName(name string) (Palette, error) {
	p, ok := registry[name]
	if !ok {
		return Palette{}, xerror.Errorf("unknown palette: %s", name)
	}
	return p, nil
}

func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Inverted returns the palette read in reverse order. Inverting twice
// round-trips back to the original.
func (p Palette) Inverted() Palette {
	return Palette{p[3], p[2], p[1], p[0]}
}

// Nearest finds the palette index minimising squared euclidean RGB
// distance to the given color. Ties resolve to the lowest index.
func (p Palette) Nearest(r, g, b uint8) int {
	best := 0
	bestDist := -1
	for i := 0; i < Size; i++ {
		dr := int(r) - int(p[i].R)
		dg := int(g) - int(p[i].G)
		db := int(b) - int(p[i].B)
		dist := dr*dr + dg*dg + db*db
		if bestDist < 0 || dist < bestDist {
			best, bestDist = i, dist
		}
	}
	return best
}

// Luma converts an RGB triple to linear-ish luminance in [0,1] using
// the standard BT.601 weights.
func Luma(r, g, b uint8) float64 {
	return (0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)) / 255.0
}
