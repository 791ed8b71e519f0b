package encode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tauraamui/xerror"

	"github.com/tauraamui/pocketcam/pkg/log"
	"github.com/tauraamui/pocketcam/pkg/video/videoframe"
)

var runTranscoder = func(cmd *exec.Cmd) error { return cmd.Run() }

// transcodeEncoder buffers raw RGBA frames and invokes the external
// transcoder once. Raw retention avoids a lossy intermediate encode.
type transcodeEncoder struct {
	params  Params
	frames  []*videoframe.Frame
	begun   bool
	aborted bool
}

func NewTranscode() Encoder { return &transcodeEncoder{} }

func (e *transcodeEncoder) Begin(p Params) error {
	p = p.normalized()
	if err := p.validate(); err != nil {
		return err
	}
	e.params = p
	e.begun = true
	return nil
}

func (e *transcodeEncoder) EncodeFrame(f *videoframe.Frame) error {
	if !e.begun || e.aborted {
		return xerror.New("encoder is not accepting frames")
	}
	if err := e.params.checkFrame(f); err != nil {
		return err
	}
	e.frames = append(e.frames, f)
	return nil
}

func (e *transcodeEncoder) Finalize(ctx context.Context) (*Output, error) {
	if !e.begun || e.aborted {
		return nil, xerror.New("encoder is not accepting frames")
	}
	if len(e.frames) == 0 {
		return nil, xerror.Errorf("%w: no frames to encode", ErrEncodeFailed)
	}
	if _, err := lookPath(e.params.TranscoderBin); err != nil {
		return nil, xerror.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	outPath := filepath.Join(e.params.Workspace, "transcode.mp4")
	defer os.Remove(outPath)

	wavPath := ""
	if len(e.params.AudioWAV) > 0 {
		wavPath = filepath.Join(e.params.Workspace, "audio.wav")
		if err := os.WriteFile(wavPath, e.params.AudioWAV, 0o644); err != nil {
			log.Warn("unable to stage audio for transcode, shipping video only: %v", err)
			wavPath = ""
		} else {
			defer os.Remove(wavPath)
		}
	}

	cmd := exec.CommandContext(ctx, e.params.TranscoderBin, e.transcodeArgs(wavPath, outPath)...)
	readers := make([]io.Reader, len(e.frames))
	for i, f := range e.frames {
		readers[i] = bytes.NewReader(f.Pixels)
	}
	cmd.Stdin = io.MultiReader(readers...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := runTranscoder(cmd); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, xerror.Errorf("%w: %v", ErrBackendUnavailable, err)
		}
		return nil, xerror.Errorf("%w: %s", ErrEncodeFailed, stderrTail(stderr.String()))
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		return nil, xerror.Errorf("%w: reading container: %v", ErrEncodeFailed, err)
	}
	e.frames = nil
	return &Output{Data: data, MIME: "video/mp4"}, nil
}

func (e *transcodeEncoder) transcodeArgs(wavPath, outPath string) []string {
	evenW, evenH := e.params.evenSize()
	args := []string{
		"-y",
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-s", fmt.Sprintf("%dx%d", e.params.Width, e.params.Height),
		"-r", strconv.FormatFloat(e.params.FPS, 'f', -1, 64),
		"-i", "-",
	}
	if wavPath != "" {
		args = append(args, "-i", wavPath)
	}
	args = append(args,
		"-vf", fmt.Sprintf("scale=%d:%d:flags=neighbor,pad=%d:%d",
			e.params.Width, e.params.Height, evenW, evenH),
		"-g", strconv.Itoa(e.params.KeyframeInterval),
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
	)
	if wavPath != "" {
		args = append(args, "-c:a", "aac", "-shortest")
	}
	return append(args, "-movflags", "+faststart", outPath)
}

func (e *transcodeEncoder) Abort() {
	e.frames = nil
	e.aborted = true
}

// MuxAudio stream-copies an encoded video and encodes a staged WAV to
// AAC into one container.
func MuxAudio(ctx context.Context, transcoderBin, videoPath, wavPath, outPath string) error {
	if transcoderBin == "" {
		transcoderBin = "ffmpeg"
	}
	if _, err := lookPath(transcoderBin); err != nil {
		return xerror.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	cmd := exec.CommandContext(ctx, transcoderBin,
		"-y",
		"-i", videoPath,
		"-i", wavPath,
		"-c:v", "copy",
		"-c:a", "aac",
		"-shortest",
		"-movflags", "+faststart",
		outPath,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := runTranscoder(cmd); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return xerror.Errorf("%w: %v", ErrBackendUnavailable, err)
		}
		return xerror.Errorf("%w: %s", ErrEncodeFailed, stderrTail(stderr.String()))
	}
	return nil
}

func stderrTail(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSpace(s)
}
