package videosource

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/tauraamui/xerror"
	"gocv.io/x/gocv"

	"github.com/tauraamui/pocketcam/pkg/video/videoframe"
)

type openCVBackend struct{}

func (b *openCVBackend) Open(ctx context.Context, addr string) (Source, error) {
	s := openCVSource{}
	if err := s.open(ctx, addr); err != nil {
		return nil, err
	}
	return &s, nil
}

type openCVSource struct {
	uuid   string
	mu     sync.Mutex
	isOpen bool
	vc     *gocv.VideoCapture
	meta   Metadata
	mat    gocv.Mat
	rgba   gocv.Mat
	reads  int64
}

type openVideoStreamResult struct {
	vc  *gocv.VideoCapture
	err error
}

func (s *openCVSource) open(ctx context.Context, addr string) error {
	result := make(chan openVideoStreamResult, 1)
	go openVideoStream(addr, result)
	select {
	case r := <-result:
		if r.err != nil {
			return r.err
		}
		s.vc = r.vc
		s.isOpen = true
		s.mat = gocv.NewMat()
		s.rgba = gocv.NewMat()
		s.meta = loadMetadata(r.vc)
		return nil
	case <-ctx.Done():
		return xerror.New("source open cancelled")
	}
}

func openVideoStream(addr string, d chan openVideoStreamResult) {
	vc, err := openVideoCapture(addr)
	d <- openVideoStreamResult{vc: vc, err: err}
}

var openVideoCapture = func(addr string) (*gocv.VideoCapture, error) {
	return gocv.OpenVideoCapture(addr)
}

var readFromVideoCapture = func(vc *gocv.VideoCapture, mat *gocv.Mat) bool {
	if vc.IsOpened() {
		return vc.Read(mat)
	}
	return false
}

func loadMetadata(vc *gocv.VideoCapture) Metadata {
	m := Metadata{
		Width:      int(vc.Get(gocv.VideoCaptureFrameWidth)),
		Height:     int(vc.Get(gocv.VideoCaptureFrameHeight)),
		FPS:        vc.Get(gocv.VideoCaptureFPS),
		FrameCount: int64(vc.Get(gocv.VideoCaptureFrameCount)),
	}
	if m.FPS > 0 && m.FrameCount > 0 {
		m.Duration = float64(m.FrameCount) / m.FPS
	}
	return m
}

func (s *openCVSource) UUID() string {
	if len(s.uuid) == 0 {
		s.uuid = uuid.NewString()
	}
	return s.uuid
}

func (s *openCVSource) Metadata() Metadata {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.meta
}

func (s *openCVSource) Seek(seconds float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isOpen {
		return ErrSourceClosed
	}
	s.vc.Set(gocv.VideoCapturePosMsec, seconds*1000)
	return nil
}

func (s *openCVSource) Grab(frames int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isOpen {
		return ErrSourceClosed
	}
	if frames < 1 {
		return nil
	}
	s.vc.Grab(frames)
	s.reads += int64(frames)
	return nil
}

func (s *openCVSource) Read() (*videoframe.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isOpen {
		return nil, ErrSourceClosed
	}
	timestamp, ok := s.timestamp()
	if !ok {
		timestamp = -1
	}
	if !readFromVideoCapture(s.vc, &s.mat) || s.mat.Empty() {
		return nil, ErrEndOfStream
	}
	s.reads++

	gocv.CvtColor(s.mat, &s.rgba, gocv.ColorBGRToRGBA)
	frame := &videoframe.Frame{
		Pixels:          s.rgba.ToBytes(),
		Width:           s.rgba.Cols(),
		Height:          s.rgba.Rows(),
		SourceTimestamp: timestamp,
	}
	if len(frame.Pixels) != frame.Width*frame.Height*4 {
		return nil, xerror.Errorf("decoded frame has unexpected layout: %d bytes for %dx%d",
			len(frame.Pixels), frame.Width, frame.Height)
	}
	return frame, nil
}

func (s *openCVSource) Timestamp() (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isOpen {
		return 0, false
	}
	return s.timestamp()
}

// timestamp reports the presentation time of the next frame. A zero
// position is only trustworthy before anything has been read.
func (s *openCVSource) timestamp() (float64, bool) {
	msec := s.vc.Get(gocv.VideoCapturePosMsec)
	if msec > 0 {
		return msec / 1000, true
	}
	return 0, msec == 0 && s.reads == 0
}

func (s *openCVSource) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isOpen {
		return s.vc.IsOpened()
	}
	return false
}

func (s *openCVSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isOpen {
		return nil
	}
	s.isOpen = false
	s.mat.Close()
	s.rgba.Close()
	return s.vc.Close()
}
