package render

import "image"

// targetArena owns every intermediate render target. Targets are only
// ever replaced all together through resize, never piecemeal, and a
// resize wipes the ghost state with everything else.
type targetArena struct {
	procW, procH int
	outW, outH   int

	lum       []float64
	toned     []float64
	scratch   []float64
	scene     *image.RGBA
	quantized *image.RGBA
	previous  *image.RGBA
	output    *image.RGBA
	compare   *image.RGBA
}

func newTargetArena(procW, procH, outW, outH int) *targetArena {
	a := &targetArena{}
	a.resize(procW, procH, outW, outH)
	return a
}

func (a *targetArena) resize(procW, procH, outW, outH int) {
	a.procW, a.procH = procW, procH
	a.outW, a.outH = outW, outH
	n := procW * procH
	a.lum = make([]float64, n)
	a.toned = make([]float64, n)
	a.scratch = make([]float64, n)
	a.scene = image.NewRGBA(image.Rect(0, 0, procW, procH))
	a.quantized = image.NewRGBA(image.Rect(0, 0, procW, procH))
	a.previous = image.NewRGBA(image.Rect(0, 0, procW, procH))
	a.output = image.NewRGBA(image.Rect(0, 0, outW, outH))
	a.compare = image.NewRGBA(image.Rect(0, 0, outW, outH))
}

// storeGhost retains the current quantized target for the next frame's
// ghosting blend. Called once per completed frame, after compositing.
func (a *targetArena) storeGhost() {
	copy(a.previous.Pix, a.quantized.Pix)
}
