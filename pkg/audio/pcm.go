package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"os/exec"
	"strconv"
	"strings"

	"github.com/tauraamui/xerror"
)

var (
	ErrNoAudio           = xerror.New("source has no audio stream")
	ErrTranscoderMissing = xerror.New("transcoder binary not available")
)

var runTranscoder = func(cmd *exec.Cmd) error { return cmd.Run() }

// ExtractPCM decodes a window of the source's audio track into
// interleaved 16-bit stereo PCM at the package sample rate using the
// external transcoder. A non-positive duration decodes from start to
// the end of the track.
func ExtractPCM(ctx context.Context, transcoderBin, source string, start, duration float64) ([]int16, error) {
	if transcoderBin == "" {
		transcoderBin = "ffmpeg"
	}

	args := []string{}
	if start > 0 {
		args = append(args, "-ss", formatSeconds(start))
	}
	args = append(args,
		"-i", source,
		"-vn",
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"-ar", strconv.Itoa(SampleRate),
		"-ac", strconv.Itoa(Channels),
	)
	if duration > 0 {
		args = append(args, "-t", formatSeconds(duration))
	}
	args = append(args, "-")

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, transcoderBin, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := runTranscoder(cmd); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, xerror.Errorf("%w: %v", ErrTranscoderMissing, err)
		}
		return nil, xerror.Errorf("%w: %s", ErrNoAudio, lastLine(stderr.String()))
	}

	raw := stdout.Bytes()
	if len(raw) < 2 {
		return nil, ErrNoAudio
	}

	pcm := make([]int16, len(raw)/2)
	for i := range pcm {
		pcm[i] = int16(binary.LittleEndian.Uint16(raw[i*2:]))
	}
	return pcm, nil
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSpace(s)
}
