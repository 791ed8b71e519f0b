package export

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"github.com/tauraamui/pocketcam/pkg/audio"
	"github.com/tauraamui/pocketcam/pkg/database/models"
	"github.com/tauraamui/pocketcam/pkg/encode"
	"github.com/tauraamui/pocketcam/pkg/extract"
	"github.com/tauraamui/pocketcam/pkg/log"
	"github.com/tauraamui/pocketcam/pkg/palette"
	"github.com/tauraamui/pocketcam/pkg/render"
	"github.com/tauraamui/pocketcam/pkg/video/videoframe"
	"github.com/tauraamui/xerror"
)

var resolveEncoder = encode.Resolve
var transcodeFallback = encode.NewTranscode
var extractAudio = audio.ExtractPCM

// Run executes one job. On capture timeout the partial result is
// returned together with extract.ErrTimedOut; every other failure
// reports the phase it happened in.
func (m *Manager) Run(ctx context.Context, job Job) (*Result, error) {
	report := func(phase Phase, v float64) {
		if job.Progress != nil {
			job.Progress(phase, v)
		}
	}

	if err := job.validate(); err != nil {
		return nil, phaseErr(PhaseLoad, err)
	}
	if len(job.Format) == 0 {
		job.Format = encode.FormatMP4
	}

	src, err := m.backend.Open(ctx, job.Source)
	if err != nil {
		return nil, phaseErr(PhaseLoad, err)
	}
	defer src.Close()

	meta := src.Metadata()
	if meta.Width < 1 || meta.Height < 1 || meta.FPS <= 0 || meta.Duration <= 0 {
		return nil, phaseErr(PhaseLoad, xerror.Errorf("%w: %s reports no usable metadata", extract.ErrInvalidSource, job.Source))
	}
	if job.Trim.End <= 0 {
		job.Trim.End = meta.Duration
	}

	pipe, err := render.New(meta.Width, meta.Height, job.Scale, job.Settings)
	if err != nil {
		return nil, phaseErr(PhaseLoad, err)
	}
	defer pipe.Close()

	opts := extract.Options{
		TargetFPS: job.TargetFPS,
		Trim:      job.Trim,
		Progress:  func(p float64) { report(PhaseExtract, p) },
	}
	expected := opts.ExpectedFrames()
	if expected < 1 {
		return nil, phaseErr(PhaseLoad, xerror.Errorf("%w: %.3fs window holds no whole frame at %.3g fps",
			extract.ErrInvalidRange, job.Trim.Duration(), job.TargetFPS))
	}

	// The scratch dir has to live on the real filesystem, the encoder
	// backends hand its paths to native code.
	workspace, err := os.MkdirTemp(m.workspace, "pocketcam-job-")
	if err != nil {
		return nil, phaseErr(PhaseLoad, err)
	}
	defer os.RemoveAll(workspace)
	report(PhaseLoad, 1)

	snap := pipe.Settings()
	pal, err := palette.ByName(snap.PaletteName)
	if err != nil {
		return nil, phaseErr(PhaseLoad, err)
	}
	if snap.InvertPalette {
		pal = pal.Inverted()
	}

	outW, outH := pipe.OutputSize()
	params := encode.Params{
		Width:         outW,
		Height:        outH,
		FPS:           job.TargetFPS,
		Palette:       pal,
		Workspace:     workspace,
		TranscoderBin: m.transcoderBin,
	}
	if job.Format == encode.FormatMP4 && !job.Mute {
		params.AudioWAV = m.renderAudio(ctx, job)
	}

	enc, err := resolveEncoder(job.Format, m.caps)
	if err != nil {
		return nil, phaseErr(PhaseEncode, err)
	}

	encoded := 0
	countEncoded := func() {
		encoded++
		if encoded <= expected {
			report(PhaseEncode, float64(encoded)/float64(expected))
		}
	}

	var timedOut bool
	acceptCapture := func(err error, captured int) error {
		if err == nil {
			return nil
		}
		if errors.Is(err, extract.ErrTimedOut) && captured > 0 {
			timedOut = true
			log.Warn("capture timed out, exporting the %d frames already taken", captured)
			return nil
		}
		return phaseErr(PhaseExtract, err)
	}

	var frames []*videoframe.Frame
	var out *encode.Output

	if encode.Streaming(enc) {
		var encodeErr error
		if err := enc.Begin(params); err != nil {
			encodeErr = err
		}
		runErr := extract.Stream(ctx, src, pipe, opts, func(f *videoframe.Frame) error {
			frames = append(frames, f)
			if encodeErr != nil {
				return nil
			}
			if err := enc.EncodeFrame(f); err != nil {
				// Capture keeps going so the fallback can replay the whole clip.
				encodeErr = err
				enc.Abort()
				return nil
			}
			countEncoded()
			return nil
		})
		if err := acceptCapture(runErr, len(frames)); err != nil {
			if encodeErr == nil {
				enc.Abort()
			}
			return nil, err
		}
		if encodeErr == nil {
			out, encodeErr = enc.Finalize(ctx)
		}
		if encodeErr != nil {
			if !m.caps.Transcoder {
				return nil, phaseErr(PhaseEncode, encodeErr)
			}
			log.Warn("stream encoder failed, replaying %d frames through the transcoder: %v", len(frames), encodeErr)
			encoded = 0
			out, err = feedEncoder(ctx, transcodeFallback(), params, frames, countEncoded)
			if err != nil {
				return nil, phaseErr(PhaseEncode, err)
			}
		}
	} else {
		var runErr error
		frames, runErr = extract.Frames(ctx, src, pipe, opts)
		if err := acceptCapture(runErr, len(frames)); err != nil {
			return nil, err
		}
		out, err = feedEncoder(ctx, enc, params, frames, countEncoded)
		if err != nil {
			return nil, phaseErr(PhaseEncode, err)
		}
	}
	report(PhaseEncode, 1)

	if err := m.writeOutput(job.OutputPath, out.Data); err != nil {
		return nil, phaseErr(PhaseWrite, err)
	}
	report(PhaseWrite, 1)

	res := &Result{
		UUID:       uuid.NewString(),
		OutputPath: job.OutputPath,
		MIME:       out.MIME,
		Frames:     len(frames),
		Duration:   float64(len(frames)) / job.TargetFPS,
	}
	m.record(job, snap, res)

	if timedOut {
		return res, extract.ErrTimedOut
	}
	return res, nil
}

// feedEncoder replays an already captured frame sequence through an
// encoder from start to finish.
func feedEncoder(ctx context.Context, enc encode.Encoder, params encode.Params, frames []*videoframe.Frame, counted func()) (*encode.Output, error) {
	if err := enc.Begin(params); err != nil {
		return nil, err
	}
	for _, f := range frames {
		if err := ctx.Err(); err != nil {
			enc.Abort()
			return nil, err
		}
		if err := enc.EncodeFrame(f); err != nil {
			enc.Abort()
			return nil, err
		}
		counted()
	}
	return enc.Finalize(ctx)
}

// renderAudio pulls the job's audio window, runs it through the lo-fi
// chain and returns it as WAV bytes. Any failure degrades the job to
// video only.
func (m *Manager) renderAudio(ctx context.Context, job Job) []byte {
	pcm, err := extractAudio(ctx, m.transcoderBin, job.Source, job.Trim.Start, job.Trim.Duration())
	if err != nil {
		log.Warn("no audio for this export: %v", err)
		return nil
	}
	processed, err := audio.Render(pcm, audio.SampleRate, audio.Channels, job.Audio)
	if err != nil {
		log.Warn("audio chain failed, exporting video only: %v", err)
		return nil
	}
	return audio.EncodeWAV(processed, audio.SampleRate, audio.Channels)
}

func (m *Manager) writeOutput(path string, data []byte) error {
	if dir := filepath.Dir(path); len(dir) > 0 && dir != "." {
		if err := m.fs.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return afero.WriteFile(m.fs, path, data, 0o644)
}

func (m *Manager) record(job Job, snap render.Settings, res *Result) {
	if m.history == nil {
		return
	}
	row := models.Export{
		UUID:       res.UUID,
		Source:     job.Source,
		OutputPath: job.OutputPath,
		Format:     string(job.Format),
		Palette:    snap.PaletteName,
		Dither:     string(snap.Dither),
		Frames:     res.Frames,
		Duration:   res.Duration,
	}
	if err := m.history.Create(&row); err != nil {
		log.Warn("unable to record export in history: %v", err)
	}
}
