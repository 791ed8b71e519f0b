package encode

import (
	"os"
	"os/exec"
	"path/filepath"

	"gocv.io/x/gocv"
)

const streamCodec = "avc1"

// Capabilities are what the host can actually encode with, probed once
// per job and then consulted by Resolve.
type Capabilities struct {
	OpenCVWriter bool
	Transcoder   bool
}

type videoWriteable interface {
	IsOpened() bool
	Write(gocv.Mat) error
	Close() error
}

var openVideoWriter = func(fileName string, codec string, fps float64, width, height int) (videoWriteable, error) {
	vw, err := gocv.VideoWriterFile(fileName, codec, fps, width, height, true)
	if err != nil {
		return nil, err
	}
	return vw, nil
}

var lookPath = exec.LookPath

// Probe checks each backend by exercising it, not by linkage: the
// OpenCV writer is opened against a scratch file because the codec may
// be missing even when the library is present. Disabled names
// ("opencv", "ffmpeg") force a backend off regardless of the probe.
func Probe(workspace, transcoderBin string, disabled []string) Capabilities {
	var caps Capabilities
	if !contains(disabled, "opencv") {
		caps.OpenCVWriter = probeOpenCVWriter(workspace)
	}
	if !contains(disabled, "ffmpeg") {
		if transcoderBin == "" {
			transcoderBin = "ffmpeg"
		}
		if _, err := lookPath(transcoderBin); err == nil {
			caps.Transcoder = true
		}
	}
	return caps
}

func probeOpenCVWriter(workspace string) bool {
	path := filepath.Join(workspace, "probe.mp4")
	w, err := openVideoWriter(path, streamCodec, 30, 32, 32)
	if err != nil {
		return false
	}
	opened := w.IsOpened()
	w.Close()
	os.Remove(path)
	return opened
}

func contains(list []string, name string) bool {
	for _, v := range list {
		if v == name {
			return true
		}
	}
	return false
}
