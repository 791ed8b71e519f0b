package render

import (
	"image"
	"sync"

	"github.com/tauraamui/xerror"

	"github.com/tauraamui/pocketcam/pkg/palette"
	"github.com/tauraamui/pocketcam/pkg/video/videoframe"
)

var (
	ErrPipelineClosed = xerror.New("render pipeline closed")
	ErrSuperseded     = xerror.New("render superseded by newer frame")
	ErrFrameSize      = xerror.New("frame does not match pipeline source dimensions")
)

const maxScale = 8

// render stages in pass order; dirty tracking records the earliest
// stage whose inputs changed so interactive renders skip the rest.
const (
	stageDownsample = iota
	stageTone
	stageQuantize
	stageCompose
	stageClean
)

// Pipeline turns decoded frames into palette quantized output through
// a fixed pass chain. Instances are caller owned, one per job. The
// ghost target is the only state carried between frames; it is copied
// from the quantized target after each completed frame and wiped on
// every arena resize.
type Pipeline struct {
	mu     sync.Mutex
	closed bool

	srcW, srcH int
	scale      int
	settings   Settings
	pal        palette.Palette
	crop       image.Rectangle

	arena  *targetArena
	worker *ditherWorker

	dirty      int
	generation uint64
	lastFrame  *videoframe.Frame
}

func New(srcW, srcH, scale int, s Settings) (*Pipeline, error) {
	if srcW < 1 || srcH < 1 {
		return nil, xerror.Errorf("invalid source dimensions %dx%d", srcW, srcH)
	}
	if scale < 1 {
		scale = 1
	}
	if scale > maxScale {
		scale = maxScale
	}
	s = s.Normalized()
	if err := s.validate(); err != nil {
		return nil, err
	}
	p := &Pipeline{srcW: srcW, srcH: srcH, scale: scale, dirty: stageDownsample}
	p.applySettings(s)
	p.worker = newDitherWorker()
	return p, nil
}

// applySettings installs a normalized, validated settings snapshot and
// resizes the target arena when the processing resolution moved.
func (p *Pipeline) applySettings(s Settings) {
	p.settings = s
	pal, _ := palette.ByName(s.PaletteName)
	if s.InvertPalette {
		pal = pal.Inverted()
	}
	p.pal = pal
	p.crop = resolveCrop(p.srcW, p.srcH, s)
	procW, procH := processingSize(p.crop, s)
	if p.arena == nil {
		p.arena = newTargetArena(procW, procH, procW*p.scale, procH*p.scale)
		return
	}
	if procW != p.arena.procW || procH != p.arena.procH {
		p.arena.resize(procW, procH, procW*p.scale, procH*p.scale)
		p.dirty = stageDownsample
	}
}

func (p *Pipeline) SetSettings(s Settings) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPipelineClosed
	}
	s = s.Normalized()
	if err := s.validate(); err != nil {
		return err
	}
	if stage := dirtyStage(p.settings, s); stage < p.dirty {
		p.dirty = stage
	}
	// supersede any render still waiting on the dither worker; its
	// result may no longer fit the arena
	p.generation++
	p.applySettings(s)
	return nil
}

func dirtyStage(old, new Settings) int {
	sensorOld := old.Dither == DitherSensorCrop
	sensorNew := new.Dither == DitherSensorCrop
	switch {
	case sensorOld != sensorNew || !cropEqual(old.Crop, new.Crop):
		return stageDownsample
	case old.Contrast != new.Contrast || old.ResponseAmount != new.ResponseAmount:
		return stageTone
	case old.Dither != new.Dither || old.PaletteName != new.PaletteName ||
		old.InvertPalette != new.InvertPalette:
		return stageQuantize
	case old.LCD != new.LCD:
		return stageCompose
	default:
		return stageClean
	}
}

func (p *Pipeline) Settings() Settings {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.settings
}

func (p *Pipeline) ProcessingSize() (int, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.arena == nil {
		return 0, 0
	}
	return p.arena.procW, p.arena.procH
}

func (p *Pipeline) OutputSize() (int, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.arena == nil {
		return 0, 0
	}
	return p.arena.outW, p.arena.outH
}

// Render is the interactive entry point. Passes whose inputs are
// unchanged since the last call are skipped, and error diffusion runs
// through the worker so a newer frame can supersede a stale request.
// A superseded or closed-out render returns without touching the
// targets.
func (p *Pipeline) Render(frame *videoframe.Frame) (*videoframe.Frame, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPipelineClosed
	}
	if frame.Width != p.srcW || frame.Height != p.srcH {
		p.mu.Unlock()
		return nil, xerror.Errorf("%w: got %dx%d, want %dx%d",
			ErrFrameSize, frame.Width, frame.Height, p.srcW, p.srcH)
	}
	newFrame := frame != p.lastFrame
	if newFrame {
		p.dirty = stageDownsample
	}
	p.lastFrame = frame
	p.generation++
	gen := p.generation
	s := p.settings
	pal := p.pal

	if p.dirty <= stageDownsample {
		passDownsample(p.arena, frame, p.crop)
	}
	if p.dirty <= stageTone {
		passTone(p.arena, s)
	}
	if p.dirty <= stageQuantize {
		if s.Dither == DitherFloydSteinberg {
			buf := make([]float64, len(p.arena.toned))
			copy(buf, p.arena.toned)
			resp := p.worker.submit(buf, p.arena.procW, p.arena.procH)
			p.mu.Unlock()

			res := <-resp
			if res.err != nil {
				return nil, res.err
			}

			p.mu.Lock()
			if p.closed {
				p.mu.Unlock()
				return nil, ErrPipelineClosed
			}
			if p.generation != gen {
				p.mu.Unlock()
				return nil, ErrSuperseded
			}
			writeIndices(p.arena.quantized, res.indices, pal)
		} else {
			passQuantize(p.arena, s, pal)
		}
	}
	if p.dirty <= stageCompose {
		passCompose(p.arena, s, p.scale)
	}
	if newFrame {
		p.arena.storeGhost()
	}
	p.dirty = stageClean
	out := videoframe.FromRGBA(p.arena.output, frame.SourceTimestamp)
	p.mu.Unlock()
	return out, nil
}

// RenderForExport always runs the full chain synchronously, so export
// output depends only on settings and the frame sequence, never on
// interactive dirty state.
func (p *Pipeline) RenderForExport(frame *videoframe.Frame) (*videoframe.Frame, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrPipelineClosed
	}
	if frame.Width != p.srcW || frame.Height != p.srcH {
		return nil, xerror.Errorf("%w: got %dx%d, want %dx%d",
			ErrFrameSize, frame.Width, frame.Height, p.srcW, p.srcH)
	}
	p.generation++
	p.lastFrame = frame

	passDownsample(p.arena, frame, p.crop)
	passTone(p.arena, p.settings)
	passQuantize(p.arena, p.settings, p.pal)
	passCompose(p.arena, p.settings, p.scale)
	p.arena.storeGhost()
	p.dirty = stageClean
	return videoframe.FromRGBA(p.arena.output, frame.SourceTimestamp), nil
}

// RenderComparison renders the frame then composites the reveal view,
// source on the left of the split column, processed output on the
// right. reveal is clamped to [0,1].
func (p *Pipeline) RenderComparison(frame *videoframe.Frame, reveal float64) (*videoframe.Frame, error) {
	if _, err := p.Render(frame); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrPipelineClosed
	}
	passCompare(p.arena, frame, reveal)
	return videoframe.FromRGBA(p.arena.compare, frame.SourceTimestamp), nil
}

// Close releases the targets and poisons the instance; a closed
// pipeline cannot be reused, resource failures require a fresh one.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.arena = nil
	p.mu.Unlock()
	p.worker.close()
	return nil
}
