package export

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/tauraamui/pocketcam/pkg/audio"
	"github.com/tauraamui/pocketcam/pkg/database/models"
	"github.com/tauraamui/pocketcam/pkg/encode"
	"github.com/tauraamui/pocketcam/pkg/extract"
	"github.com/tauraamui/pocketcam/pkg/render"
	"github.com/tauraamui/pocketcam/pkg/video/videosource"
	"github.com/tauraamui/xerror"
)

// Phase names the stage of a running job. Progress values are
// normalised to [0,1] within each phase.
type Phase string

const (
	PhaseLoad    Phase = "load"
	PhaseExtract Phase = "extract"
	PhaseEncode  Phase = "encode"
	PhaseWrite   Phase = "write"
)

// PhaseError wraps a job failure with the phase it happened in.
type PhaseError struct {
	Phase Phase
	Err   error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("%s: %v", e.Phase, e.Err)
}

func (e *PhaseError) Unwrap() error {
	return e.Err
}

func phaseErr(phase Phase, err error) error {
	return &PhaseError{Phase: phase, Err: err}
}

// Job describes one conversion from source video to output artifact.
// A zero Trim exports the whole source; a Trim with zero End runs
// from Start to the end of the source.
type Job struct {
	Source     string
	OutputPath string
	Format     encode.Format
	Settings   render.Settings
	Audio      audio.Settings
	Trim       extract.Range
	TargetFPS  float64
	Scale      int
	Mute       bool
	Progress   func(Phase, float64)
}

func (j Job) validate() error {
	if len(j.Source) == 0 {
		return xerror.New("job has no source")
	}
	if len(j.OutputPath) == 0 {
		return xerror.New("job has no output path")
	}
	if j.TargetFPS <= 0 {
		return xerror.Errorf("target rate must be positive, got %.3f", j.TargetFPS)
	}
	return nil
}

// Result summarises a finished job.
type Result struct {
	UUID       string
	OutputPath string
	MIME       string
	Frames     int
	Duration   float64
}

// HistoryRecorder persists finished jobs. *repos.ExportRepository
// satisfies it.
type HistoryRecorder interface {
	Create(*models.Export) error
}

// Options carries the manager's injected dependencies. Zero values
// fall back to the real filesystem, the default video backend and the
// transcoder on PATH.
type Options struct {
	Fs            afero.Fs
	Backend       videosource.Backend
	Caps          encode.Capabilities
	History       HistoryRecorder
	TranscoderBin string
	Workspace     string
}

// Manager owns one export job end to end. Jobs are never run in
// parallel; each job owns its pipeline and encoder for its full
// duration.
type Manager struct {
	fs            afero.Fs
	backend       videosource.Backend
	caps          encode.Capabilities
	history       HistoryRecorder
	transcoderBin string
	workspace     string
}

func New(opts Options) *Manager {
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.Backend == nil {
		opts.Backend = videosource.Default()
	}
	if len(opts.TranscoderBin) == 0 {
		opts.TranscoderBin = "ffmpeg"
	}
	return &Manager{
		fs:            opts.Fs,
		backend:       opts.Backend,
		caps:          opts.Caps,
		history:       opts.History,
		transcoderBin: opts.TranscoderBin,
		workspace:     opts.Workspace,
	}
}
