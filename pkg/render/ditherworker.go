package render

import (
	"sync"

	"github.com/tauraamui/pocketcam/pkg/palette"
)

type ditherResult struct {
	indices []int
	err     error
}

type ditherRequest struct {
	lum  []float64
	w, h int
	resp chan ditherResult
}

// ditherWorker runs error diffusion off the interactive render path.
// It holds a single pending slot: submitting while a request is still
// waiting rejects the waiting one, since only the newest frame's
// result is ever useful. Buffers are handed over, never shared.
type ditherWorker struct {
	mu      sync.Mutex
	pending *ditherRequest

	wake    chan struct{}
	quit    chan struct{}
	stopped chan struct{}
}

func newDitherWorker() *ditherWorker {
	w := &ditherWorker{
		wake:    make(chan struct{}, 1),
		quit:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go w.run()
	return w
}

func (w *ditherWorker) submit(lum []float64, width, height int) <-chan ditherResult {
	resp := make(chan ditherResult, 1)
	w.mu.Lock()
	if w.pending != nil {
		w.pending.resp <- ditherResult{err: ErrSuperseded}
	}
	w.pending = &ditherRequest{lum: lum, w: width, h: height, resp: resp}
	w.mu.Unlock()
	select {
	case w.wake <- struct{}{}:
	default:
	}
	return resp
}

func (w *ditherWorker) take() *ditherRequest {
	w.mu.Lock()
	defer w.mu.Unlock()
	req := w.pending
	w.pending = nil
	return req
}

func (w *ditherWorker) run() {
	defer close(w.stopped)
	for {
		select {
		case <-w.quit:
			return
		case <-w.wake:
			req := w.take()
			if req == nil {
				continue
			}
			req.resp <- ditherResult{indices: palette.FloydSteinberg(req.lum, req.w, req.h)}
		}
	}
}

func (w *ditherWorker) close() {
	close(w.quit)
	<-w.stopped
	if req := w.take(); req != nil {
		req.resp <- ditherResult{err: ErrPipelineClosed}
	}
}
