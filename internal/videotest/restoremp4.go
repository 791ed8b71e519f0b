package videotest

import (
	"image"
	"image/color"
	"os"
	"path/filepath"

	"github.com/tauraamui/xerror"
	"gocv.io/x/gocv"
)

const (
	mp4FileName = "small.mp4"
	clipWidth   = 320
	clipHeight  = 240
	clipFPS     = 30.0
	clipFrames  = 30
)

// RestoreMp4File synthesizes a short test clip under the temp dir and
// hands back its path. The clip is written through the OpenCV video
// writer, so an error here usually means the host has no usable codec
// and the caller should skip its test rather than fail it.
func RestoreMp4File() (string, error) {
	path := filepath.Join(os.TempDir(), mp4FileName)

	if info, err := os.Stat(path); err == nil && info.Size() > 0 {
		return path, nil
	}

	if err := writeTestClip(path); err != nil {
		os.Remove(path)
		return "", err
	}

	return path, nil
}

func writeTestClip(path string) error {
	w, err := gocv.VideoWriterFile(path, "avc1", clipFPS, clipWidth, clipHeight, true)
	if err != nil {
		return xerror.Errorf("unable to open test clip writer: %w", err)
	}
	defer w.Close()

	if !w.IsOpened() {
		return xerror.New("test clip writer refused to open")
	}

	for i := 0; i < clipFrames; i++ {
		if err := writeBarsFrame(w, i); err != nil {
			return err
		}
	}

	return nil
}

// writeBarsFrame renders scrolling colour bars, enough structure for a
// decoder to produce distinct consecutive frames.
func writeBarsFrame(w *gocv.VideoWriter, index int) error {
	img := image.NewRGBA(image.Rect(0, 0, clipWidth, clipHeight))
	offset := index * 4
	for x := 0; x < clipWidth; x++ {
		shade := uint8((x + offset) % 256)
		for y := 0; y < clipHeight; y++ {
			img.Set(x, y, color.RGBA{shade, 255 - shade, uint8(y % 256), 255})
		}
	}

	rgba, err := gocv.NewMatFromBytes(clipHeight, clipWidth, gocv.MatTypeCV8UC4, img.Pix)
	if err != nil {
		return err
	}
	defer rgba.Close()

	bgr := gocv.NewMat()
	defer bgr.Close()
	gocv.CvtColor(rgba, &bgr, gocv.ColorRGBAToBGR)
	return w.Write(bgr)
}
