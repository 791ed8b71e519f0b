package videosource

import (
	"context"

	"github.com/tauraamui/xerror"

	"github.com/tauraamui/pocketcam/pkg/video/videoframe"
)

var (
	ErrSourceClosed = xerror.New("video source closed")
	ErrEndOfStream  = xerror.New("end of video stream")
)

// Metadata describes a decodable source. Duration is zero when the
// container does not report a usable frame count.
type Metadata struct {
	Width, Height int
	FPS           float64
	FrameCount    int64
	Duration      float64
}

// Source is a seekable decodable video handle. Read decodes and
// returns the next frame, Grab advances the decoder without decoding,
// and Timestamp reports the presentation time of the frame the next
// Read would return, with ok=false when the container exposes no
// usable positions.
type Source interface {
	UUID() string
	Metadata() Metadata
	Seek(seconds float64) error
	Grab(frames int) error
	Read() (*videoframe.Frame, error)
	Timestamp() (float64, bool)
	IsOpen() bool
	Close() error
}

type Backend interface {
	Open(ctx context.Context, addr string) (Source, error)
}

func Default() Backend {
	return OpenCV()
}

func OpenCV() Backend {
	return &openCVBackend{}
}

func Mock() Backend {
	return &mockBackend{}
}

func Resolve(t string) Backend {
	switch t {
	case "mock":
		return Mock()
	default:
		return Default()
	}
}
