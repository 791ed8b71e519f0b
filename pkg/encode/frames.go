package encode

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"image/png"

	"github.com/tauraamui/xerror"

	"github.com/tauraamui/pocketcam/pkg/video/videoframe"
)

// framesEncoder archives the sequence as numbered PNG stills.
type framesEncoder struct {
	params Params
	buf    bytes.Buffer
	zw     *zip.Writer
	count  int
}

func NewFrames() Encoder { return &framesEncoder{} }

func (e *framesEncoder) Begin(p Params) error {
	p = p.normalized()
	if err := p.validate(); err != nil {
		return err
	}
	e.params = p
	e.zw = zip.NewWriter(&e.buf)
	return nil
}

func (e *framesEncoder) EncodeFrame(f *videoframe.Frame) error {
	if e.zw == nil {
		return xerror.New("encoder has not begun")
	}
	if err := e.params.checkFrame(f); err != nil {
		return err
	}

	w, err := e.zw.Create(fmt.Sprintf("frame_%04d.png", e.count))
	if err != nil {
		return xerror.Errorf("%w: %v", ErrEncodeFailed, err)
	}
	if err := png.Encode(w, f.RGBA()); err != nil {
		return xerror.Errorf("%w: %v", ErrEncodeFailed, err)
	}
	e.count++
	return nil
}

func (e *framesEncoder) Finalize(_ context.Context) (*Output, error) {
	if e.zw == nil {
		return nil, xerror.New("encoder has not begun")
	}
	if e.count == 0 {
		return nil, xerror.Errorf("%w: no frames to encode", ErrEncodeFailed)
	}
	if err := e.zw.Close(); err != nil {
		return nil, xerror.Errorf("%w: %v", ErrEncodeFailed, err)
	}
	return &Output{Data: e.buf.Bytes(), MIME: "application/zip"}, nil
}

func (e *framesEncoder) Abort() {
	e.zw = nil
	e.buf.Reset()
}
