package videoframe

import "image"

type Dimensions struct {
	W, H int
}

// Frame is a single decoded frame held as tightly packed RGBA, four
// bytes per pixel, along with the presentation time it was read at.
type Frame struct {
	Pixels          []byte
	Width, Height   int
	SourceTimestamp float64
}

func New(w, h int) *Frame {
	return &Frame{Pixels: make([]byte, w*h*4), Width: w, Height: h}
}

// FromRGBA copies the image's pixels into a new frame, repacking rows
// so sub-images and padded strides come out tightly packed.
func FromRGBA(img *image.RGBA, timestamp float64) *Frame {
	b := img.Bounds()
	f := New(b.Dx(), b.Dy())
	f.SourceTimestamp = timestamp
	rowLen := f.Width * 4
	for y := 0; y < f.Height; y++ {
		src := img.PixOffset(b.Min.X, b.Min.Y+y)
		copy(f.Pixels[y*rowLen:(y+1)*rowLen], img.Pix[src:src+rowLen])
	}
	return f
}

func (f *Frame) Dimensions() Dimensions {
	return Dimensions{W: f.Width, H: f.Height}
}

func (f *Frame) Clone() *Frame {
	c := &Frame{
		Pixels:          make([]byte, len(f.Pixels)),
		Width:           f.Width,
		Height:          f.Height,
		SourceTimestamp: f.SourceTimestamp,
	}
	copy(c.Pixels, f.Pixels)
	return c
}

// RGBA wraps the frame's pixels in an image without copying, so writes
// through the returned image mutate the frame.
func (f *Frame) RGBA() *image.RGBA {
	return &image.RGBA{
		Pix:    f.Pixels,
		Stride: f.Width * 4,
		Rect:   image.Rect(0, 0, f.Width, f.Height),
	}
}
