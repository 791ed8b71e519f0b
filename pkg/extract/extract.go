package extract

import (
	"context"
	"math"

	"github.com/tauraamui/xerror"

	"github.com/tauraamui/pocketcam/pkg/render"
	"github.com/tauraamui/pocketcam/pkg/video/videoframe"
	"github.com/tauraamui/pocketcam/pkg/video/videosource"
)

var (
	ErrInvalidSource = xerror.New("source has no usable duration")
	ErrInvalidRange  = xerror.New("trim range out of bounds")
	ErrSeekFailed    = xerror.New("unable to seek to trim start")
	ErrTimedOut      = xerror.New("extraction exceeded safety timeout")
)

// Range is the half-open trim window [Start, End) in seconds.
type Range struct {
	Start, End float64
}

func (r Range) Duration() float64 {
	return r.End - r.Start
}

func (r Range) Validate(sourceDuration float64) error {
	if r.Start < 0 || r.End <= r.Start || r.End > sourceDuration {
		return xerror.Errorf("%w: [%.3f, %.3f) against duration %.3f",
			ErrInvalidRange, r.Start, r.End, sourceDuration)
	}
	return nil
}

type Options struct {
	TargetFPS float64
	Trim      Range
	// Progress is invoked after each captured frame with
	// captured/expected in [0,1]. Optional.
	Progress func(float64)
}

// ExpectedFrames is the exact number of frames a full extraction of
// the trim window yields at the target rate.
func (o Options) ExpectedFrames() int {
	return int(math.Floor(o.Trim.Duration() * o.TargetFPS))
}

// Frames runs a full extraction and returns the captured frames in
// capture order. On safety timeout the frames captured so far are
// returned alongside ErrTimedOut.
func Frames(ctx context.Context, src videosource.Source, pipe *render.Pipeline, opts Options) ([]*videoframe.Frame, error) {
	out := make([]*videoframe.Frame, 0, opts.ExpectedFrames())
	err := run(ctx, src, pipe, opts, func(f *videoframe.Frame) error {
		out = append(out, f)
		return nil
	})
	return out, err
}

// Stream feeds each captured frame to consume concurrently with
// continued capture. Capture order is preserved. The first consume
// error cancels capture, and Stream does not return until every frame
// handed over has been consumed or discarded.
func Stream(ctx context.Context, src videosource.Source, pipe *render.Pipeline, opts Options, consume func(*videoframe.Frame) error) error {
	cctx, cancel := context.WithCancel(ctx)
	defer cancel()

	frames := make(chan *videoframe.Frame, streamQueueDepth)
	done := make(chan struct{})
	var consumeErr error
	go func() {
		defer close(done)
		for f := range frames {
			if consumeErr != nil {
				continue // drain so the producer never blocks
			}
			if err := consume(f); err != nil {
				consumeErr = err
				cancel()
			}
		}
	}()

	runErr := run(cctx, src, pipe, opts, func(f *videoframe.Frame) error {
		select {
		case frames <- f:
			return nil
		case <-cctx.Done():
			return cctx.Err()
		}
	})
	close(frames)
	<-done

	if consumeErr != nil {
		return consumeErr
	}
	return runErr
}

const streamQueueDepth = 16

func run(ctx context.Context, src videosource.Source, pipe *render.Pipeline, opts Options, emit func(*videoframe.Frame) error) error {
	e, err := newExtractor(src, pipe, opts, emit)
	if err != nil {
		return err
	}
	return e.run(ctx)
}
