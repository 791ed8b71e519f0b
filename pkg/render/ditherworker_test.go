package render

import (
	"errors"
	"testing"

	"github.com/matryer/is"

	"github.com/tauraamui/pocketcam/pkg/palette"
)

func rampBuffer(n int) []float64 {
	buf := make([]float64, n)
	for i := range buf {
		buf[i] = float64(i) / float64(n-1)
	}
	return buf
}

func TestDitherWorkerPreemptsPendingRequest(t *testing.T) {
	is := is.New(t)
	// not running yet, so both submissions stay in the mailbox and the
	// second must reject the first
	w := &ditherWorker{
		wake:    make(chan struct{}, 1),
		quit:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	first := w.submit(rampBuffer(16), 4, 4)
	second := w.submit(rampBuffer(16), 4, 4)

	res := <-first
	is.True(errors.Is(res.err, ErrSuperseded))

	go w.run()
	res = <-second
	is.NoErr(res.err)
	is.Equal(len(res.indices), 16)
	w.close()
}

func TestDitherWorkerMatchesSynchronousDiffusion(t *testing.T) {
	is := is.New(t)
	w := newDitherWorker()
	defer w.close()

	lum := rampBuffer(64)
	ref := make([]float64, len(lum))
	copy(ref, lum)
	want := palette.FloydSteinberg(ref, 8, 8)

	res := <-w.submit(lum, 8, 8)
	is.NoErr(res.err)
	is.Equal(res.indices, want)
}

func TestDitherWorkerSurvivesBurstOfSubmissions(t *testing.T) {
	is := is.New(t)
	w := newDitherWorker()
	defer w.close()

	var last <-chan ditherResult
	results := make([]<-chan ditherResult, 0, 8)
	for i := 0; i < 8; i++ {
		last = w.submit(rampBuffer(16), 4, 4)
		results = append(results, last)
	}
	// every submission settles exactly once, and the newest is never
	// rejected with a supersede
	for _, ch := range results {
		res := <-ch
		if ch == last {
			is.NoErr(res.err)
			is.Equal(len(res.indices), 16)
			continue
		}
		if res.err != nil {
			is.True(errors.Is(res.err, ErrSuperseded))
		}
	}
}
