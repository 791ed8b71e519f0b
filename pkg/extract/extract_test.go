package extract_test

import (
	"context"
	"errors"
	"testing"

	"github.com/matryer/is"
	"github.com/stretchr/testify/require"

	"github.com/tauraamui/pocketcam/pkg/extract"
	"github.com/tauraamui/pocketcam/pkg/render"
	"github.com/tauraamui/pocketcam/pkg/video/videoframe"
	"github.com/tauraamui/pocketcam/pkg/video/videosource"
)

func openMockSource(t *testing.T) videosource.Source {
	t.Helper()
	src, err := videosource.Mock().Open(context.Background(), "extract test")
	require.NoError(t, err)
	t.Cleanup(func() { src.Close() })
	return src
}

func newTestPipeline(t *testing.T) *render.Pipeline {
	t.Helper()
	meta := videosource.Metadata{Width: 320, Height: 180}
	pipe, err := render.New(meta.Width, meta.Height, 1, render.Settings{
		Contrast:    1,
		Dither:      render.DitherNone,
		PaletteName: "gray",
	})
	require.NoError(t, err)
	t.Cleanup(func() { pipe.Close() })
	return pipe
}

// flakySource wraps the mock backend with controllable fault injection.
type flakySource struct {
	videosource.Source
	meta        *videosource.Metadata
	seekErrs    int
	seekCalls   int
	readErr     error
	noTimestamp bool
}

func (f *flakySource) Metadata() videosource.Metadata {
	if f.meta != nil {
		return *f.meta
	}
	return f.Source.Metadata()
}

func (f *flakySource) Seek(seconds float64) error {
	f.seekCalls++
	if f.seekCalls <= f.seekErrs {
		return errors.New("transient seek failure")
	}
	return f.Source.Seek(seconds)
}

func (f *flakySource) Read() (*videoframe.Frame, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	return f.Source.Read()
}

func (f *flakySource) Timestamp() (float64, bool) {
	if f.noTimestamp {
		return 0, false
	}
	return f.Source.Timestamp()
}

func TestExpectedFramesFormula(t *testing.T) {
	is := is.New(t)

	is.Equal(extract.Options{TargetFPS: 10, Trim: extract.Range{Start: 0, End: 0.6}}.ExpectedFrames(), 6)
	is.Equal(extract.Options{TargetFPS: 30, Trim: extract.Range{Start: 0, End: 1}}.ExpectedFrames(), 30)
	is.Equal(extract.Options{TargetFPS: 24, Trim: extract.Range{Start: 0.25, End: 0.75}}.ExpectedFrames(), 12)
	is.Equal(extract.Options{TargetFPS: 10, Trim: extract.Range{Start: 0, End: 0.05}}.ExpectedFrames(), 0)
}

func TestFrameCountMatchesTrimWindow(t *testing.T) {
	is := is.New(t)

	src := openMockSource(t)
	pipe := newTestPipeline(t)

	frames, err := extract.Frames(context.Background(), src, pipe, extract.Options{
		TargetFPS: 10,
		Trim:      extract.Range{Start: 0, End: 0.6},
	})
	is.NoErr(err)
	is.Equal(len(frames), 6)

	is.Equal(frames[0].SourceTimestamp, 0.0)
	for i, f := range frames {
		is.True(f.SourceTimestamp >= 0)
		is.True(f.SourceTimestamp < 0.6)
		if i > 0 {
			is.True(f.SourceTimestamp >= frames[i-1].SourceTimestamp)
		}
	}
}

func TestFrameCountAcrossWindows(t *testing.T) {
	cases := []struct {
		fps   float64
		trim  extract.Range
		count int
	}{
		{fps: 10, trim: extract.Range{Start: 0, End: 4}, count: 40},
		{fps: 4, trim: extract.Range{Start: 1, End: 3.5}, count: 10},
		{fps: 30, trim: extract.Range{Start: 0.5, End: 1}, count: 15},
		{fps: 10, trim: extract.Range{Start: 0, End: 0.05}, count: 0},
	}

	for _, c := range cases {
		is := is.New(t)
		src := openMockSource(t)
		pipe := newTestPipeline(t)

		frames, err := extract.Frames(context.Background(), src, pipe, extract.Options{
			TargetFPS: c.fps,
			Trim:      c.trim,
		})
		is.NoErr(err)
		is.Equal(len(frames), c.count)
	}
}

func TestTimestampsStartAtTrimStart(t *testing.T) {
	is := is.New(t)

	src := openMockSource(t)
	pipe := newTestPipeline(t)

	frames, err := extract.Frames(context.Background(), src, pipe, extract.Options{
		TargetFPS: 10,
		Trim:      extract.Range{Start: 1, End: 2},
	})
	is.NoErr(err)
	is.Equal(len(frames), 10)
	is.Equal(frames[0].SourceTimestamp, 1.0)
	for i, f := range frames {
		is.True(f.SourceTimestamp >= 1.0)
		if i > 0 {
			is.True(f.SourceTimestamp >= frames[i-1].SourceTimestamp)
		}
	}
}

func TestInvalidTrimRangesRejected(t *testing.T) {
	src := openMockSource(t)
	pipe := newTestPipeline(t)

	for _, trim := range []extract.Range{
		{Start: -1, End: 2},
		{Start: 2, End: 2},
		{Start: 3, End: 2},
		{Start: 0, End: 4.5},
	} {
		is := is.New(t)
		frames, err := extract.Frames(context.Background(), src, pipe, extract.Options{
			TargetFPS: 10,
			Trim:      trim,
		})
		is.True(errors.Is(err, extract.ErrInvalidRange))
		is.Equal(len(frames), 0)
	}
}

func TestNonPositiveTargetRateRejected(t *testing.T) {
	is := is.New(t)

	src := openMockSource(t)
	pipe := newTestPipeline(t)

	_, err := extract.Frames(context.Background(), src, pipe, extract.Options{
		TargetFPS: 0,
		Trim:      extract.Range{Start: 0, End: 1},
	})
	is.True(err != nil)
}

func TestUnusableDurationRejected(t *testing.T) {
	is := is.New(t)

	src := &flakySource{
		Source: openMockSource(t),
		meta:   &videosource.Metadata{Width: 320, Height: 180, FPS: 30},
	}
	pipe := newTestPipeline(t)

	_, err := extract.Frames(context.Background(), src, pipe, extract.Options{
		TargetFPS: 10,
		Trim:      extract.Range{Start: 0, End: 1},
	})
	is.True(errors.Is(err, extract.ErrInvalidSource))
}

func TestSeekRetriesTransientFailures(t *testing.T) {
	is := is.New(t)

	src := &flakySource{Source: openMockSource(t), seekErrs: 2}
	pipe := newTestPipeline(t)

	frames, err := extract.Frames(context.Background(), src, pipe, extract.Options{
		TargetFPS: 10,
		Trim:      extract.Range{Start: 0, End: 0.6},
	})
	is.NoErr(err)
	is.Equal(len(frames), 6)
	is.Equal(src.seekCalls, 3)
}

func TestSeekFailureAfterRetries(t *testing.T) {
	is := is.New(t)

	src := &flakySource{Source: openMockSource(t), seekErrs: 99}
	pipe := newTestPipeline(t)

	frames, err := extract.Frames(context.Background(), src, pipe, extract.Options{
		TargetFPS: 10,
		Trim:      extract.Range{Start: 0, End: 0.6},
	})
	is.True(errors.Is(err, extract.ErrSeekFailed))
	is.Equal(len(frames), 0)
	is.Equal(src.seekCalls, 3)
}

func TestReadFailurePropagates(t *testing.T) {
	is := is.New(t)

	readErr := errors.New("decoder gave up")
	src := &flakySource{Source: openMockSource(t), readErr: readErr}
	pipe := newTestPipeline(t)

	_, err := extract.Frames(context.Background(), src, pipe, extract.Options{
		TargetFPS: 10,
		Trim:      extract.Range{Start: 0, End: 0.6},
	})
	is.True(errors.Is(err, readErr))
}

func TestFallbackClockDrivesCaptureFromZero(t *testing.T) {
	is := is.New(t)

	src := &flakySource{Source: openMockSource(t), noTimestamp: true}
	pipe := newTestPipeline(t)

	frames, err := extract.Frames(context.Background(), src, pipe, extract.Options{
		TargetFPS: 10,
		Trim:      extract.Range{Start: 0, End: 0.5},
	})
	is.NoErr(err)
	is.Equal(len(frames), 5)
	for i, f := range frames {
		if i > 0 {
			is.True(f.SourceTimestamp > frames[i-1].SourceTimestamp)
		}
	}
}

func TestUnverifiableMidStreamSeekFails(t *testing.T) {
	is := is.New(t)

	src := &flakySource{Source: openMockSource(t), noTimestamp: true}
	pipe := newTestPipeline(t)

	_, err := extract.Frames(context.Background(), src, pipe, extract.Options{
		TargetFPS: 10,
		Trim:      extract.Range{Start: 1, End: 2},
	})
	is.True(errors.Is(err, extract.ErrSeekFailed))
}

func TestEndOfStreamEndsCaptureEarly(t *testing.T) {
	is := is.New(t)

	// Claim one second more footage than the mock actually holds.
	src := &flakySource{
		Source: openMockSource(t),
		meta:   &videosource.Metadata{Width: 320, Height: 180, FPS: 30, FrameCount: 150, Duration: 5},
	}
	pipe := newTestPipeline(t)

	frames, err := extract.Frames(context.Background(), src, pipe, extract.Options{
		TargetFPS: 10,
		Trim:      extract.Range{Start: 3.8, End: 4.8},
	})
	is.NoErr(err)
	is.True(len(frames) > 0)
	is.True(len(frames) < 10)
}

func TestCancelledContextAborts(t *testing.T) {
	is := is.New(t)

	src := openMockSource(t)
	pipe := newTestPipeline(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	frames, err := extract.Frames(ctx, src, pipe, extract.Options{
		TargetFPS: 10,
		Trim:      extract.Range{Start: 0, End: 1},
	})
	is.True(errors.Is(err, context.Canceled))
	is.Equal(len(frames), 0)
}

func TestProgressReportsMonotonically(t *testing.T) {
	is := is.New(t)

	src := openMockSource(t)
	pipe := newTestPipeline(t)

	var progress []float64
	_, err := extract.Frames(context.Background(), src, pipe, extract.Options{
		TargetFPS: 10,
		Trim:      extract.Range{Start: 0, End: 1},
		Progress:  func(p float64) { progress = append(progress, p) },
	})
	is.NoErr(err)
	is.Equal(len(progress), 10)
	is.Equal(progress[len(progress)-1], 1.0)
	for i, p := range progress {
		is.True(p > 0 && p <= 1)
		if i > 0 {
			is.True(p >= progress[i-1])
		}
	}
}

func TestStreamPreservesCaptureOrder(t *testing.T) {
	is := is.New(t)

	src := openMockSource(t)
	pipe := newTestPipeline(t)

	var consumed []float64
	err := extract.Stream(context.Background(), src, pipe, extract.Options{
		TargetFPS: 10,
		Trim:      extract.Range{Start: 0, End: 0.5},
	}, func(f *videoframe.Frame) error {
		consumed = append(consumed, f.SourceTimestamp)
		return nil
	})
	is.NoErr(err)
	is.Equal(len(consumed), 5)
	for i, ts := range consumed {
		if i > 0 {
			is.True(ts >= consumed[i-1])
		}
	}
}

func TestStreamConsumerErrorCancelsCapture(t *testing.T) {
	is := is.New(t)

	src := openMockSource(t)
	pipe := newTestPipeline(t)

	sinkErr := errors.New("sink rejected frame")
	var consumed int
	err := extract.Stream(context.Background(), src, pipe, extract.Options{
		TargetFPS: 10,
		Trim:      extract.Range{Start: 0, End: 4},
	}, func(f *videoframe.Frame) error {
		consumed++
		if consumed == 2 {
			return sinkErr
		}
		return nil
	})
	is.True(errors.Is(err, sinkErr))
	is.True(consumed < 40)
}
