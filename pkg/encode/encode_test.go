package encode_test

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"image/color"
	"image/gif"
	"image/png"
	"testing"

	"github.com/matryer/is"
	"github.com/stretchr/testify/require"

	"github.com/tauraamui/pocketcam/pkg/encode"
	"github.com/tauraamui/pocketcam/pkg/palette"
	"github.com/tauraamui/pocketcam/pkg/video/videoframe"
)

func solidFrame(w, h int, c color.RGBA) *videoframe.Frame {
	f := videoframe.New(w, h)
	for i := 0; i < len(f.Pixels); i += 4 {
		f.Pixels[i] = c.R
		f.Pixels[i+1] = c.G
		f.Pixels[i+2] = c.B
		f.Pixels[i+3] = 255
	}
	return f
}

func TestParseFormat(t *testing.T) {
	is := is.New(t)

	for _, ok := range []string{"mp4", "MP4", "gif", "frames"} {
		_, err := encode.ParseFormat(ok)
		is.NoErr(err)
	}

	_, err := encode.ParseFormat("webm")
	is.True(errors.Is(err, encode.ErrUnknownFormat))
}

func TestGIFEncoderWritesIndexedAnimation(t *testing.T) {
	is := is.New(t)

	gray, err := palette.ByName("gray")
	require.NoError(t, err)

	enc := encode.NewGIF()
	require.NoError(t, enc.Begin(encode.Params{Width: 8, Height: 8, FPS: 10, Palette: gray}))

	is.NoErr(enc.EncodeFrame(solidFrame(8, 8, color.RGBA{0, 0, 0, 255})))
	is.NoErr(enc.EncodeFrame(solidFrame(8, 8, color.RGBA{255, 255, 255, 255})))
	is.NoErr(enc.EncodeFrame(solidFrame(8, 8, color.RGBA{170, 170, 170, 255})))

	out, err := enc.Finalize(context.Background())
	is.NoErr(err)
	is.Equal(out.MIME, "image/gif")

	decoded, err := gif.DecodeAll(bytes.NewReader(out.Data))
	require.NoError(t, err)
	is.Equal(len(decoded.Image), 3)
	is.Equal(decoded.Config.Width, 8)
	is.Equal(decoded.Config.Height, 8)

	for _, delay := range decoded.Delay {
		is.Equal(delay, 10)
	}

	is.Equal(len(decoded.Image[0].Palette), palette.Size)
	for i, want := range gray {
		got := color.RGBAModel.Convert(decoded.Image[0].Palette[i]).(color.RGBA)
		is.Equal(got, want)
	}

	is.Equal(decoded.Image[0].Pix[0], uint8(0))
	is.Equal(decoded.Image[1].Pix[0], uint8(3))
	is.Equal(decoded.Image[2].Pix[0], uint8(2))
}

func TestGIFDelayFollowsTargetRate(t *testing.T) {
	is := is.New(t)

	dmg, err := palette.ByName("dmg")
	require.NoError(t, err)

	for _, tc := range []struct {
		fps   float64
		delay int
	}{
		{fps: 24, delay: 4},
		{fps: 50, delay: 2},
		{fps: 10, delay: 10},
	} {
		enc := encode.NewGIF()
		require.NoError(t, enc.Begin(encode.Params{Width: 4, Height: 4, FPS: tc.fps, Palette: dmg}))
		is.NoErr(enc.EncodeFrame(solidFrame(4, 4, color.RGBA{0, 0, 0, 255})))

		out, err := enc.Finalize(context.Background())
		is.NoErr(err)

		decoded, err := gif.DecodeAll(bytes.NewReader(out.Data))
		require.NoError(t, err)
		is.Equal(decoded.Delay[0], tc.delay)
	}
}

func TestFramesEncoderArchivesNumberedStills(t *testing.T) {
	is := is.New(t)

	enc := encode.NewFrames()
	require.NoError(t, enc.Begin(encode.Params{Width: 4, Height: 4, FPS: 10}))

	colors := []color.RGBA{
		{255, 0, 0, 255},
		{0, 255, 0, 255},
		{0, 0, 255, 255},
	}
	for _, c := range colors {
		is.NoErr(enc.EncodeFrame(solidFrame(4, 4, c)))
	}

	out, err := enc.Finalize(context.Background())
	is.NoErr(err)
	is.Equal(out.MIME, "application/zip")

	archive, err := zip.NewReader(bytes.NewReader(out.Data), int64(len(out.Data)))
	require.NoError(t, err)
	is.Equal(len(archive.File), 3)
	is.Equal(archive.File[0].Name, "frame_0000.png")
	is.Equal(archive.File[1].Name, "frame_0001.png")
	is.Equal(archive.File[2].Name, "frame_0002.png")

	for i, f := range archive.File {
		r, err := f.Open()
		require.NoError(t, err)
		img, err := png.Decode(r)
		require.NoError(t, err)
		r.Close()

		is.Equal(img.Bounds().Dx(), 4)
		got := color.RGBAModel.Convert(img.At(0, 0)).(color.RGBA)
		is.Equal(got, colors[i])
	}
}

func TestSimpleEncodersRejectBadUsage(t *testing.T) {
	is := is.New(t)

	dmg, err := palette.ByName("dmg")
	require.NoError(t, err)

	for _, enc := range []encode.Encoder{encode.NewGIF(), encode.NewFrames()} {
		is.True(enc.EncodeFrame(solidFrame(4, 4, color.RGBA{})) != nil) // before Begin

		require.NoError(t, enc.Begin(encode.Params{Width: 4, Height: 4, FPS: 10, Palette: dmg}))
		is.True(enc.EncodeFrame(solidFrame(5, 5, color.RGBA{})) != nil)

		_, err := enc.Finalize(context.Background())
		is.True(errors.Is(err, encode.ErrEncodeFailed))
	}
}
