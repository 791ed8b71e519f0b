package extract

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/tauraamui/xerror"

	"github.com/tauraamui/pocketcam/pkg/render"
	"github.com/tauraamui/pocketcam/pkg/video/videoframe"
	"github.com/tauraamui/pocketcam/pkg/video/videosource"
)

const (
	seekAttempts  = 3
	seekTimeout   = 5 * time.Second
	seekBackoff   = 250 * time.Millisecond
	safetyTimeout = 2 * time.Minute

	// Hard ceiling on how many source frames a single playback tick may
	// skip past without decoding. Derived from a 60Hz presentation clock.
	maxAdvanceRate = 8
)

var timeNow = time.Now

type state int

const (
	stateSeeking state = iota
	statePlaying
	stateSampling
	stateEnded
	stateTimedOut
	stateErrored
)

// rateFor is the number of source frames advanced per playback tick so
// that a 60Hz presentation clock still lands at least one tick inside
// every output frame period.
func rateFor(targetFPS float64) int {
	rate := int(math.Floor(60 / targetFPS))
	if rate < 1 {
		return 1
	}
	if rate > maxAdvanceRate {
		return maxAdvanceRate
	}
	return rate
}

type extractor struct {
	src  videosource.Source
	pipe *render.Pipeline
	opts Options
	emit func(*videoframe.Frame) error

	meta     videosource.Metadata
	expected int
	period   float64
	rate     int
	deadline time.Time

	state state
	err   error

	// clockOK marks the source position as trustworthy. Once it degrades
	// the wall clock is derived from frames advanced since the seek.
	clockOK  bool
	advanced int64

	captured    int
	nextCapture float64
}

func newExtractor(src videosource.Source, pipe *render.Pipeline, opts Options, emit func(*videoframe.Frame) error) (*extractor, error) {
	if opts.TargetFPS <= 0 {
		return nil, xerror.Errorf("target fps must be positive, got %f", opts.TargetFPS)
	}

	meta := src.Metadata()
	if meta.Duration <= 0 || meta.FPS <= 0 {
		return nil, xerror.Errorf("%w: fps %.3f, duration %.3f", ErrInvalidSource, meta.FPS, meta.Duration)
	}
	if err := opts.Trim.Validate(meta.Duration); err != nil {
		return nil, err
	}

	return &extractor{
		src:      src,
		pipe:     pipe,
		opts:     opts,
		emit:     emit,
		meta:     meta,
		expected: opts.ExpectedFrames(),
		period:   1 / opts.TargetFPS,
		rate:     rateFor(opts.TargetFPS),
		deadline: timeNow().Add(safetyTimeout),
		state:    stateSeeking,
		clockOK:  true,
	}, nil
}

func (e *extractor) run(ctx context.Context) error {
	for {
		switch e.state {
		case stateEnded:
			return nil
		case stateTimedOut:
			return ErrTimedOut
		case stateErrored:
			return e.err
		}

		if err := ctx.Err(); err != nil {
			e.fail(err)
			continue
		}
		if timeNow().After(e.deadline) {
			e.state = stateTimedOut
			continue
		}

		switch e.state {
		case stateSeeking:
			e.seek(ctx)
		case statePlaying:
			e.play()
		case stateSampling:
			e.sample(ctx)
		}
	}
}

func (e *extractor) fail(err error) {
	e.err = err
	e.state = stateErrored
}

func (e *extractor) seek(ctx context.Context) {
	target := e.opts.Trim.Start

	var lastErr error
	for attempt := 0; attempt < seekAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(seekBackoff):
			case <-ctx.Done():
				e.fail(ctx.Err())
				return
			}
		}
		if err := e.trySeek(ctx, target); err != nil {
			lastErr = err
			continue
		}
		e.nextCapture = target
		e.advanced = 0
		e.state = statePlaying
		return
	}
	e.fail(xerror.Errorf("%w: %v", ErrSeekFailed, lastErr))
}

func (e *extractor) trySeek(ctx context.Context, target float64) error {
	done := make(chan error, 1)
	go func() {
		done <- e.src.Seek(target)
	}()

	select {
	case err := <-done:
		if err != nil {
			return err
		}
	case <-time.After(seekTimeout):
		return xerror.New("seek attempt timed out")
	case <-ctx.Done():
		return ctx.Err()
	}

	pos, ok := e.src.Timestamp()
	if !ok {
		// A source with no position reporting can still start from zero
		// on the fallback clock, but cannot verify a mid-stream seek.
		if target == 0 {
			e.clockOK = false
			return nil
		}
		return xerror.New("source reports no usable position")
	}
	if math.Abs(pos-target) > 1/e.meta.FPS {
		return xerror.Errorf("seek landed at %.3fs, want %.3fs", pos, target)
	}
	return nil
}

func (e *extractor) clock() float64 {
	if e.clockOK {
		if ts, ok := e.src.Timestamp(); ok {
			return ts
		}
		e.clockOK = false
	}
	return e.opts.Trim.Start + float64(e.advanced)/e.meta.FPS
}

func (e *extractor) play() {
	if e.captured >= e.expected {
		e.state = stateEnded
		return
	}

	current := e.clock()
	if current >= e.nextCapture {
		e.state = stateSampling
		return
	}
	if current >= e.opts.Trim.End {
		e.state = stateEnded
		return
	}

	// Advance without decoding, but never further than the next due
	// capture instant.
	n := e.rate
	if remaining := int(math.Ceil((e.nextCapture - current) * e.meta.FPS)); remaining < n {
		n = remaining
	}
	if n < 1 {
		n = 1
	}
	if err := e.src.Grab(n); err != nil {
		e.fail(err)
		return
	}
	e.advanced += int64(n)
}

func (e *extractor) sample(ctx context.Context) {
	current := e.clock()

	frame, err := e.src.Read()
	if err != nil {
		if errors.Is(err, videosource.ErrEndOfStream) {
			e.state = stateEnded
			return
		}
		e.fail(err)
		return
	}
	e.advanced++
	frame.SourceTimestamp = current

	// A target rate above the source rate captures the same decoded
	// frame more than once. Each capture runs the full pipeline so
	// ghosting still advances per output frame.
	for e.captured < e.expected && e.nextCapture <= current {
		if err := ctx.Err(); err != nil {
			e.fail(err)
			return
		}
		rendered, err := e.pipe.RenderForExport(frame)
		if err != nil {
			e.fail(err)
			return
		}
		if err := e.emit(rendered); err != nil {
			e.fail(err)
			return
		}
		e.captured++
		e.nextCapture += e.period
		e.reportProgress()
	}

	if e.captured >= e.expected {
		e.state = stateEnded
		return
	}
	e.state = statePlaying
}

func (e *extractor) reportProgress() {
	if e.opts.Progress == nil || e.expected == 0 {
		return
	}
	e.opts.Progress(float64(e.captured) / float64(e.expected))
}
