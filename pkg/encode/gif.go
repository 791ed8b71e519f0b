package encode

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/gif"
	"math"

	"github.com/tauraamui/xerror"

	"github.com/tauraamui/pocketcam/pkg/palette"
	"github.com/tauraamui/pocketcam/pkg/video/videoframe"
)

// gifEncoder writes an indexed-color animation with a single global
// 4-color table taken from the job palette.
type gifEncoder struct {
	params Params
	table  color.Palette
	delay  int
	anim   gif.GIF
	begun  bool
}

func NewGIF() Encoder { return &gifEncoder{} }

func (e *gifEncoder) Begin(p Params) error {
	p = p.normalized()
	if err := p.validate(); err != nil {
		return err
	}
	e.params = p
	e.delay = int(math.Round(100 / p.FPS)) // centiseconds per frame
	e.table = make(color.Palette, palette.Size)
	for i, c := range p.Palette {
		e.table[i] = c
	}
	e.begun = true
	return nil
}

func (e *gifEncoder) EncodeFrame(f *videoframe.Frame) error {
	if !e.begun {
		return xerror.New("encoder has not begun")
	}
	if err := e.params.checkFrame(f); err != nil {
		return err
	}

	paletted := image.NewPaletted(image.Rect(0, 0, f.Width, f.Height), e.table)
	for i := 0; i < f.Width*f.Height; i++ {
		off := i * 4
		paletted.Pix[i] = uint8(e.params.Palette.Nearest(
			f.Pixels[off], f.Pixels[off+1], f.Pixels[off+2]))
	}
	e.anim.Image = append(e.anim.Image, paletted)
	e.anim.Delay = append(e.anim.Delay, e.delay)
	return nil
}

func (e *gifEncoder) Finalize(_ context.Context) (*Output, error) {
	if !e.begun {
		return nil, xerror.New("encoder has not begun")
	}
	if len(e.anim.Image) == 0 {
		return nil, xerror.Errorf("%w: no frames to encode", ErrEncodeFailed)
	}

	e.anim.Config = image.Config{
		ColorModel: e.table,
		Width:      e.params.Width,
		Height:     e.params.Height,
	}
	var buf bytes.Buffer
	if err := gif.EncodeAll(&buf, &e.anim); err != nil {
		return nil, xerror.Errorf("%w: %v", ErrEncodeFailed, err)
	}
	return &Output{Data: buf.Bytes(), MIME: "image/gif"}, nil
}

func (e *gifEncoder) Abort() {
	e.anim = gif.GIF{}
	e.begun = false
}
