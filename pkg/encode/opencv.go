package encode

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/tauraamui/xerror"
	"gocv.io/x/gocv"

	"github.com/tauraamui/pocketcam/pkg/log"
	"github.com/tauraamui/pocketcam/pkg/video/videoframe"
)

// Producer blocks once this many frames are waiting on the writer.
const writerQueueDepth = 8

// opencvEncoder streams frames through a dedicated writer goroutine;
// nothing buffers beyond the bounded queue. Keyframe cadence is left to
// the codec backend, which exposes no GOP control.
type opencvEncoder struct {
	params Params
	path   string
	writer videoWriteable

	queue     chan *videoframe.Frame
	done      chan struct{}
	closeOnce sync.Once

	mu  sync.Mutex
	err error
}

func NewOpenCV() Encoder { return &opencvEncoder{} }

// StreamsFrames marks the encoder as streaming for Streaming.
func (e *opencvEncoder) StreamsFrames() {}

func (e *opencvEncoder) Begin(p Params) error {
	p = p.normalized()
	if err := p.validate(); err != nil {
		return err
	}
	e.params = p
	e.path = filepath.Join(p.Workspace, "stream.mp4")

	w, err := openVideoWriter(e.path, streamCodec, p.FPS, p.Width, p.Height)
	if err != nil {
		return xerror.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	if !w.IsOpened() {
		w.Close()
		return xerror.Errorf("%w: writer refused %dx%d@%.3f", ErrBackendUnavailable, p.Width, p.Height, p.FPS)
	}
	e.writer = w

	e.queue = make(chan *videoframe.Frame, writerQueueDepth)
	e.done = make(chan struct{})
	go e.drain()
	return nil
}

func (e *opencvEncoder) drain() {
	defer close(e.done)
	for f := range e.queue {
		if e.failed() != nil {
			continue // discard the backlog so the producer unblocks
		}
		if err := e.writeFrame(f); err != nil {
			e.setErr(err)
		}
	}
}

func (e *opencvEncoder) writeFrame(f *videoframe.Frame) error {
	rgba, err := gocv.NewMatFromBytes(f.Height, f.Width, gocv.MatTypeCV8UC4, f.Pixels)
	if err != nil {
		return err
	}
	defer rgba.Close()

	bgr := gocv.NewMat()
	defer bgr.Close()
	gocv.CvtColor(rgba, &bgr, gocv.ColorRGBAToBGR)
	return e.writer.Write(bgr)
}

func (e *opencvEncoder) EncodeFrame(f *videoframe.Frame) error {
	if e.queue == nil {
		return xerror.New("encoder has not begun")
	}
	if err := e.params.checkFrame(f); err != nil {
		return err
	}
	if err := e.failed(); err != nil {
		return xerror.Errorf("%w: %v", ErrEncodeFailed, err)
	}

	// A full queue blocks here until the writer flushes.
	select {
	case e.queue <- f:
		return nil
	case <-e.done:
		return xerror.Errorf("%w: %v", ErrEncodeFailed, e.failed())
	}
}

func (e *opencvEncoder) Finalize(ctx context.Context) (*Output, error) {
	if e.queue == nil {
		return nil, xerror.New("encoder has not begun")
	}
	e.closeOnce.Do(func() { close(e.queue) })

	select {
	case <-e.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	werr := e.failed()
	cerr := e.writer.Close()
	if werr != nil {
		os.Remove(e.path)
		return nil, xerror.Errorf("%w: %v", ErrEncodeFailed, werr)
	}
	if cerr != nil {
		os.Remove(e.path)
		return nil, xerror.Errorf("%w: closing writer: %v", ErrEncodeFailed, cerr)
	}

	videoPath := e.path
	if len(e.params.AudioWAV) > 0 {
		if muxed, err := e.muxAudio(ctx); err != nil {
			log.Warn("audio mux failed, shipping video only: %v", err)
		} else {
			videoPath = muxed
		}
	}

	data, err := os.ReadFile(videoPath)
	if err != nil {
		return nil, xerror.Errorf("%w: reading container: %v", ErrEncodeFailed, err)
	}
	e.cleanup()
	return &Output{Data: data, MIME: "video/mp4"}, nil
}

func (e *opencvEncoder) muxAudio(ctx context.Context) (string, error) {
	wavPath := filepath.Join(e.params.Workspace, "audio.wav")
	if err := os.WriteFile(wavPath, e.params.AudioWAV, 0o644); err != nil {
		return "", err
	}
	muxedPath := filepath.Join(e.params.Workspace, "muxed.mp4")
	if err := MuxAudio(ctx, e.params.TranscoderBin, e.path, wavPath, muxedPath); err != nil {
		return "", err
	}
	return muxedPath, nil
}

func (e *opencvEncoder) Abort() {
	if e.queue == nil {
		return
	}
	e.setErr(xerror.New("encoder aborted"))
	e.closeOnce.Do(func() { close(e.queue) })
	<-e.done
	e.writer.Close()
	e.cleanup()
}

func (e *opencvEncoder) cleanup() {
	os.Remove(e.path)
	os.Remove(filepath.Join(e.params.Workspace, "audio.wav"))
	os.Remove(filepath.Join(e.params.Workspace, "muxed.mp4"))
}

func (e *opencvEncoder) failed() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}

func (e *opencvEncoder) setErr(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err == nil {
		e.err = err
	}
}
