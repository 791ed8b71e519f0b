package encode

import (
	"context"
	"strings"

	"github.com/tauraamui/xerror"

	"github.com/tauraamui/pocketcam/pkg/palette"
	"github.com/tauraamui/pocketcam/pkg/video/videoframe"
)

type Format string

const (
	FormatMP4    Format = "mp4"
	FormatGIF    Format = "gif"
	FormatFrames Format = "frames"
)

var (
	ErrUnknownFormat      = xerror.New("unknown export format")
	ErrBackendUnavailable = xerror.New("no capable encode backend available")
	ErrEncodeFailed       = xerror.New("encode failed")
)

func Formats() []Format {
	return []Format{FormatMP4, FormatGIF, FormatFrames}
}

func ParseFormat(s string) (Format, error) {
	for _, f := range Formats() {
		if strings.EqualFold(s, string(f)) {
			return f, nil
		}
	}
	return "", xerror.Errorf("%w: %q", ErrUnknownFormat, s)
}

// Output is the finished artifact: produced once, written once.
type Output struct {
	Data []byte
	MIME string
}

// Params configure one encode job. Frames handed to EncodeFrame must
// match Width and Height exactly.
type Params struct {
	Width, Height    int
	FPS              float64
	KeyframeInterval int
	Palette          palette.Palette
	AudioWAV         []byte
	Workspace        string
	TranscoderBin    string
}

const defaultKeyframeInterval = 30

func (p Params) normalized() Params {
	if p.KeyframeInterval < 1 {
		p.KeyframeInterval = defaultKeyframeInterval
	}
	if p.TranscoderBin == "" {
		p.TranscoderBin = "ffmpeg"
	}
	return p
}

func (p Params) validate() error {
	if p.Width < 1 || p.Height < 1 {
		return xerror.Errorf("invalid frame dimensions %dx%d", p.Width, p.Height)
	}
	if p.FPS <= 0 {
		return xerror.Errorf("invalid frame rate %f", p.FPS)
	}
	return nil
}

// evenSize pads each dimension up to the next even value; mp4 pixel
// formats require it.
func (p Params) evenSize() (int, int) {
	return p.Width + p.Width%2, p.Height + p.Height%2
}

func (p Params) checkFrame(f *videoframe.Frame) error {
	if f == nil {
		return xerror.New("nil frame")
	}
	if f.Width != p.Width || f.Height != p.Height {
		return xerror.Errorf("frame is %dx%d, encoder expects %dx%d",
			f.Width, f.Height, p.Width, p.Height)
	}
	return nil
}

// Encoder consumes one frame sequence and produces one output artifact.
// Begin, EncodeFrame xN, Finalize is the happy path; Abort releases
// resources after a failure and makes the encoder unusable.
type Encoder interface {
	Begin(Params) error
	EncodeFrame(*videoframe.Frame) error
	Finalize(context.Context) (*Output, error)
	Abort()
}

// Streaming reports whether the encoder writes frames out as they
// arrive. A streaming encoder can fail partway through the clip, so
// callers that want a fallback must retain the frames they feed it.
func Streaming(e Encoder) bool {
	_, ok := e.(interface{ StreamsFrames() })
	return ok
}

// Resolve picks the encoder strategy for a format once per job.
func Resolve(format Format, caps Capabilities) (Encoder, error) {
	switch format {
	case FormatMP4:
		if caps.OpenCVWriter {
			return NewOpenCV(), nil
		}
		if caps.Transcoder {
			return NewTranscode(), nil
		}
		return nil, xerror.Errorf("%w: mp4 needs the opencv writer or the external transcoder", ErrBackendUnavailable)
	case FormatGIF:
		return NewGIF(), nil
	case FormatFrames:
		return NewFrames(), nil
	}
	return nil, xerror.Errorf("%w: %q", ErrUnknownFormat, string(format))
}
