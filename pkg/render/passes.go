package render

import (
	"image"
	"image/color"
	"math"

	xdraw "golang.org/x/image/draw"

	"github.com/tauraamui/pocketcam/pkg/palette"
	"github.com/tauraamui/pocketcam/pkg/video/videoframe"
)

const (
	procRows    = 144
	minProcCols = 32
	maxProcCols = 512

	sensorW      = 128
	sensorH      = 112
	sensorAspect = 8.0 / 7.0

	toneWindowLow  = 0.10
	toneWindowHigh = 0.90
	tonePower      = 1.6

	gridDarkening = 0.5
	maxBlackLift  = 0.25
)

// processingSize derives the internal resolution from the sampled
// region's aspect only; display scaling never feeds back into it.
func processingSize(crop image.Rectangle, s Settings) (int, int) {
	if s.Dither == DitherSensorCrop {
		return sensorW, sensorH
	}
	aspect := float64(crop.Dx()) / float64(crop.Dy())
	w := int(math.Round(procRows*aspect/2)) * 2
	if w < minProcCols {
		w = minProcCols
	}
	if w > maxProcCols {
		w = maxProcCols
	}
	return w, procRows
}

// resolveCrop maps the configured crop onto source pixels. Sensor mode
// locks the sampled region to the sensor aspect; a nil region means
// auto-centre.
func resolveCrop(srcW, srcH int, s Settings) image.Rectangle {
	if s.Dither == DitherSensorCrop {
		return resolveSensorCrop(srcW, srcH, s.Crop)
	}
	if s.Crop == nil {
		return image.Rect(0, 0, srcW, srcH)
	}
	c := *s.Crop
	x := int(math.Round(c.X * float64(srcW)))
	y := int(math.Round(c.Y * float64(srcH)))
	w := int(math.Round(c.W * float64(srcW)))
	h := int(math.Round(c.H * float64(srcH)))
	return clampRect(x, y, w, h, srcW, srcH)
}

func resolveSensorCrop(srcW, srcH int, crop *CropRegion) image.Rectangle {
	fw, fh := float64(srcW), float64(srcH)
	var px, py, pw, ph float64
	if crop == nil {
		pw, ph = fw, fw/sensorAspect
		if ph > fh {
			ph = fh
			pw = fh * sensorAspect
		}
		px, py = (fw-pw)/2, (fh-ph)/2
	} else {
		// width drives the region, height follows the locked aspect
		pw = crop.W * fw
		ph = pw / sensorAspect
		if ph > fh {
			ph = fh
			pw = ph * sensorAspect
		}
		px, py = crop.X*fw, crop.Y*fh
	}
	return clampRect(
		int(math.Round(px)), int(math.Round(py)),
		int(math.Round(pw)), int(math.Round(ph)),
		srcW, srcH,
	)
}

func clampRect(x, y, w, h, boundW, boundH int) image.Rectangle {
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	if w > boundW {
		w = boundW
	}
	if h > boundH {
		h = boundH
	}
	if x+w > boundW {
		x = boundW - w
	}
	if y+h > boundH {
		y = boundH - h
	}
	if x < 0 {
		x = 0
	}
	if y < 0 {
		y = 0
	}
	return image.Rect(x, y, x+w, y+h)
}

// passDownsample resamples the cropped source region to processing
// resolution and desaturates it into the luminance target.
func passDownsample(a *targetArena, frame *videoframe.Frame, crop image.Rectangle) {
	xdraw.NearestNeighbor.Scale(a.scene, a.scene.Bounds(), frame.RGBA(), crop, xdraw.Src, nil)
	i := 0
	for px := 0; px < len(a.scene.Pix); px += 4 {
		a.lum[i] = palette.Luma(a.scene.Pix[px], a.scene.Pix[px+1], a.scene.Pix[px+2])
		i++
	}
}

// passTone applies contrast about the midpoint, plus the windowed
// sensor response curve when sensor mode is active.
func passTone(a *targetArena, s Settings) {
	sensor := s.Dither == DitherSensorCrop
	for i, l := range a.lum {
		v := (l-0.5)*s.Contrast + 0.5
		if sensor && s.ResponseAmount > 0 {
			curved := math.Pow(smoothstep(toneWindowLow, toneWindowHigh, clamp01(v)), tonePower)
			v = mix(v, curved, s.ResponseAmount)
		}
		a.toned[i] = v
	}
}

// passQuantize maps tone output onto palette colours according to the
// dither mode. Error diffusion runs over a scratch copy so the tone
// target stays pristine for partial re-renders.
func passQuantize(a *targetArena, s Settings, pal palette.Palette) {
	switch s.Dither {
	case DitherFloydSteinberg:
		copy(a.scratch, a.toned)
		writeIndices(a.quantized, palette.FloydSteinberg(a.scratch, a.procW, a.procH), pal)
	case DitherBayer2x2:
		orderedQuantize(a, palette.Bayer2x2, pal)
	case DitherBayer4x4, DitherSensorCrop:
		orderedQuantize(a, palette.Bayer4x4, pal)
	default:
		flatQuantize(a, pal)
	}
}

func orderedQuantize(a *targetArena, m [][]int, pal palette.Palette) {
	i, px := 0, 0
	for y := 0; y < a.procH; y++ {
		for x := 0; x < a.procW; x++ {
			idx := palette.OrderedIndex(a.toned[i], palette.Threshold(m, x, y))
			setPix(a.quantized.Pix, px, pal[idx])
			i++
			px += 4
		}
	}
}

func flatQuantize(a *targetArena, pal palette.Palette) {
	px := 0
	for _, l := range a.toned {
		setPix(a.quantized.Pix, px, pal[palette.QuantizeIndex(l)])
		px += 4
	}
}

func writeIndices(dst *image.RGBA, indices []int, pal palette.Palette) {
	px := 0
	for _, idx := range indices {
		setPix(dst.Pix, px, pal[idx])
		px += 4
	}
}

// passCompose upscales to output resolution and layers the LCD
// artifacts over it: ghost blend, block grid, neighbour shadow and
// black level lift, in that order.
func passCompose(a *targetArena, s Settings, scale int) {
	ghost := 0.0
	lift := 0.0
	if s.LCD.Enabled {
		ghost = s.LCD.GhostingStrength
		lift = maxBlackLift * s.LCD.BlackLevelLift * 255
	}
	gridFactor := 1 - gridDarkening*s.LCD.GridIntensity
	drawGrid := s.LCD.Enabled && scale >= 2 && s.LCD.GridIntensity > 0
	drawShadow := s.LCD.Enabled && s.LCD.ShadowOpacity > 0

	for y := 0; y < a.outH; y++ {
		sy := y / scale
		for x := 0; x < a.outW; x++ {
			sx := x / scale
			qoff := (sy*a.procW + sx) * 4
			r := float64(a.quantized.Pix[qoff])
			g := float64(a.quantized.Pix[qoff+1])
			b := float64(a.quantized.Pix[qoff+2])

			if ghost > 0 {
				r = mix(r, float64(a.previous.Pix[qoff]), ghost)
				g = mix(g, float64(a.previous.Pix[qoff+1]), ghost)
				b = mix(b, float64(a.previous.Pix[qoff+2]), ghost)
			}
			if drawGrid && (x%scale == 0 || y%scale == 0) {
				r *= gridFactor
				g *= gridFactor
				b *= gridFactor
			}
			if drawShadow {
				nx, ny := sx-1, sy-1
				if nx < 0 {
					nx = 0
				}
				if ny < 0 {
					ny = 0
				}
				noff := (ny*a.procW + nx) * 4
				nl := palette.Luma(a.quantized.Pix[noff], a.quantized.Pix[noff+1], a.quantized.Pix[noff+2])
				f := 1 - s.LCD.ShadowOpacity*(1-nl)
				r *= f
				g *= f
				b *= f
			}
			if lift > 0 {
				f := 1 - lift/255
				r = lift + r*f
				g = lift + g*f
				b = lift + b*f
			}

			off := (y*a.outW + x) * 4
			a.output.Pix[off] = clampByte(r)
			a.output.Pix[off+1] = clampByte(g)
			a.output.Pix[off+2] = clampByte(b)
			a.output.Pix[off+3] = 255
		}
	}
}

// passCompare renders the reveal view: source letterboxed on the left
// of the split column, processed output to the right of it.
func passCompare(a *targetArena, frame *videoframe.Frame, reveal float64) {
	for i := range a.compare.Pix {
		a.compare.Pix[i] = 0
	}
	fit := fitRect(frame.Width, frame.Height, a.outW, a.outH)
	src := frame.RGBA()
	xdraw.NearestNeighbor.Scale(a.compare, fit, src, src.Bounds(), xdraw.Src, nil)

	split := int(math.Round(clamp01(reveal) * float64(a.outW)))
	for y := 0; y < a.outH; y++ {
		row := y * a.compare.Stride
		copy(a.compare.Pix[row+split*4:row+a.outW*4], a.output.Pix[row+split*4:row+a.outW*4])
	}
	for i := 3; i < len(a.compare.Pix); i += 4 {
		a.compare.Pix[i] = 255
	}
}

func fitRect(srcW, srcH, dstW, dstH int) image.Rectangle {
	sa := float64(srcW) / float64(srcH)
	da := float64(dstW) / float64(dstH)
	w, h := dstW, dstH
	if sa > da {
		h = int(math.Round(float64(dstW) / sa))
	} else {
		w = int(math.Round(float64(dstH) * sa))
	}
	x := (dstW - w) / 2
	y := (dstH - h) / 2
	return image.Rect(x, y, x+w, y+h)
}

func setPix(pix []byte, off int, c color.RGBA) {
	pix[off] = c.R
	pix[off+1] = c.G
	pix[off+2] = c.B
	pix[off+3] = 255
}

func clampByte(v float64) byte {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return byte(v + 0.5)
}

func clamp01(v float64) float64 {
	return clampf(v, 0, 1)
}

func mix(a, b, t float64) float64 {
	return a + (b-a)*t
}

func smoothstep(e0, e1, x float64) float64 {
	t := clampf((x-e0)/(e1-e0), 0, 1)
	return t * t * (3 - 2*t)
}
