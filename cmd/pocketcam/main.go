package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/tacusci/logging/v2"
	"golang.org/x/term"

	"github.com/tauraamui/pocketcam/pkg/audio"
	"github.com/tauraamui/pocketcam/pkg/config"
	"github.com/tauraamui/pocketcam/pkg/configdef"
	db "github.com/tauraamui/pocketcam/pkg/database"
	"github.com/tauraamui/pocketcam/pkg/database/repos"
	"github.com/tauraamui/pocketcam/pkg/encode"
	"github.com/tauraamui/pocketcam/pkg/export"
	"github.com/tauraamui/pocketcam/pkg/extract"
	"github.com/tauraamui/pocketcam/pkg/log"
	"github.com/tauraamui/pocketcam/pkg/palette"
	"github.com/tauraamui/pocketcam/pkg/render"
	"github.com/tauraamui/pocketcam/pkg/video/videosource"
)

const usage = `Usage: pocketcam setup | remove-setup | history | palettes
       pocketcam [convert] -i <source> [flags]`

func runSetup() (string, error) {
	log.Info("Setting up pocketcam...")

	err := config.DefaultCreator().Create()
	if err != nil {
		if !errors.Is(err, configdef.ErrConfigAlreadyExists) {
			return "", err
		}
		log.Error(err.Error())
	}

	err = db.Setup()
	if err != nil {
		if !errors.Is(err, db.ErrDBAlreadyExists) {
			return "", err
		}
		log.Error(err.Error())
	}

	return "Setup successful...", nil
}

func runRemoveSetup() (string, error) {
	log.Info("Removing pocketcam setup...")

	if err := db.Destroy(); err != nil {
		log.Error("unable to delete database file: %s", err.Error())
	}
	if err := config.DefaultDestroyer().Destory(); err != nil {
		log.Error("unable to delete config file: %s", err.Error())
	}

	return "Removing setup successful...", nil
}

func runHistory(args []string) (string, error) {
	flags := flag.NewFlagSet("history", flag.ContinueOnError)
	limit := flags.Int("n", 10, "number of recent exports to show")
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return "", nil
		}
		return "", err
	}

	conn, err := db.Connect()
	if err != nil {
		return "", err
	}

	repo := repos.ExportRepository{DB: conn}
	exports, err := repo.Recent(*limit)
	if err != nil {
		return "", err
	}

	if len(exports) == 0 {
		return "No exports recorded yet...", nil
	}

	b := strings.Builder{}
	for _, e := range exports {
		fmt.Fprintf(&b, "%s  %-6s  %-8s  %-14s  %4d frames  %6.2fs  %s -> %s\n",
			e.CreatedAt.Format("2006-01-02 15:04:05"),
			e.Format, e.Palette, e.Dither, e.Frames, e.Duration,
			e.Source, e.OutputPath,
		)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func runPalettes() string {
	b := strings.Builder{}
	for _, name := range palette.Names() {
		pal, err := palette.ByName(name)
		if err != nil {
			continue
		}
		fmt.Fprintf(&b, "%-8s", name)
		for _, c := range pal {
			fmt.Fprintf(&b, "  #%02x%02x%02x", c.R, c.G, c.B)
		}
		if name == palette.DefaultName {
			b.WriteString("  (default)")
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func runConvert(args []string) (string, error) {
	flags := flag.NewFlagSet("convert", flag.ContinueOnError)

	input := flags.String("i", "", "source video to convert")
	output := flags.String("o", "", "output path, defaults into the configured output dir")
	format := flags.String("format", "mp4", "output container: mp4, gif or frames")
	fps := flags.Float64("fps", 10, "target frame rate")
	start := flags.Float64("start", 0, "trim window start in seconds")
	end := flags.Float64("end", 0, "trim window end in seconds, zero runs to the end of the source")
	paletteName := flags.String("palette", "", "palette name, see the palettes command")
	invert := flags.Bool("invert", false, "read the palette in reverse order")
	dither := flags.String("dither", string(render.DitherBayer4x4), "dither mode: "+strings.Join(render.DitherModes(), ", "))
	contrast := flags.Float64("contrast", 1, "contrast boost")
	response := flags.Float64("response", 0.65, "tone response curve amount")
	crop := flags.String("crop", "", "sampling window as x,y,w,h fractions of the frame")
	scale := flags.Int("scale", 4, "pixelation factor")
	mute := flags.Bool("mute", false, "drop the audio track")

	ad := audio.DefaultSettings()
	audioHighpass := flags.Float64("audio-highpass", ad.HighpassHz, "speaker highpass cutoff in hz")
	audioLowpass := flags.Float64("audio-lowpass", ad.LowpassHz, "speaker lowpass cutoff in hz")
	audioBitdepth := flags.Int("audio-bitdepth", ad.BitDepth, "bitcrusher depth in bits")
	audioDistortion := flags.Float64("audio-distortion", ad.DistortionPct, "soft clip drive percentage")

	backend := flags.String("backend", "", "video backend override: opencv or mock")

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return "", nil
		}
		return "", err
	}

	if len(*input) == 0 {
		return "", fmt.Errorf("no source given, -i is required\n%s", usage)
	}
	if *end > 0 && *end <= *start {
		return "", errors.New("trim end must come after trim start")
	}

	cfg, err := resolveConfigValues()
	if err != nil {
		return "", err
	}
	if cfg.Debug {
		logging.CurrentLoggingLevel = logging.DebugLevel
	}

	parsedFormat, err := encode.ParseFormat(*format)
	if err != nil {
		return "", err
	}
	ditherMode, err := render.ParseDitherMode(*dither)
	if err != nil {
		return "", err
	}

	palName := *paletteName
	if len(palName) == 0 {
		palName = cfg.DefaultPalette
	}
	if _, err := palette.ByName(palName); err != nil {
		return "", err
	}

	cropRegion, err := parseCropRegion(*crop)
	if err != nil {
		return "", err
	}

	outputPath := *output
	if len(outputPath) == 0 {
		outputPath = defaultOutputPath(cfg.OutputDir, *input, parsedFormat)
	}

	backendName := *backend
	if len(backendName) == 0 {
		backendName = cfg.VideoBackend
	}

	caps := encode.Probe(os.TempDir(), cfg.FFmpegBin, cfg.DisabledEncoders)
	log.Debug("encoder capabilities: opencv=%v transcoder=%v", caps.OpenCVWriter, caps.Transcoder)

	var history export.HistoryRecorder
	if !cfg.HistoryDisabled {
		conn, err := db.Connect()
		if err != nil {
			log.Warn("history unavailable, run setup to enable it: %v", err)
		} else {
			history = &repos.ExportRepository{DB: conn}
		}
	}

	settings := render.DefaultSettings()
	settings.Contrast = *contrast
	settings.ResponseAmount = *response
	settings.Dither = ditherMode
	settings.PaletteName = palName
	settings.InvertPalette = *invert
	settings.Crop = cropRegion

	interactive := term.IsTerminal(int(os.Stdout.Fd()))
	job := export.Job{
		Source:     *input,
		OutputPath: outputPath,
		Format:     parsedFormat,
		Settings:   settings,
		Audio: audio.Settings{
			HighpassHz:    *audioHighpass,
			LowpassHz:     *audioLowpass,
			BitDepth:      *audioBitdepth,
			DistortionPct: *audioDistortion,
		},
		Trim:      extract.Range{Start: *start, End: *end},
		TargetFPS: *fps,
		Scale:     *scale,
		Mute:      *mute,
		Progress:  progressPrinter(interactive),
	}

	m := export.New(export.Options{
		Backend:       videosource.Resolve(backendName),
		Caps:          caps,
		History:       history,
		TranscoderBin: cfg.FFmpegBin,
	})

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupt)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case killSignal := <-interrupt:
			fmt.Print("\r")
			log.Error("Received signal: %s", killSignal)
			cancel()
		case <-ctx.Done():
		}
	}()

	res, err := m.Run(ctx, job)
	if interactive {
		fmt.Print("\n")
	}
	if err != nil {
		if res != nil && errors.Is(err, extract.ErrTimedOut) {
			log.Warn("capture timed out, wrote partial export: %v", err)
		} else {
			return "", err
		}
	}

	return fmt.Sprintf("Wrote %d frames (%.2fs) to %s", res.Frames, res.Duration, res.OutputPath), nil
}

func resolveConfigValues() (configdef.Values, error) {
	cfg, err := config.DefaultResolver().Resolve()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Debug("no config file found, using built-in defaults")
			return config.DefaultValues(), nil
		}
		return configdef.Values{}, err
	}
	return cfg, nil
}

func parseCropRegion(v string) (*render.CropRegion, error) {
	if len(v) == 0 {
		return nil, nil
	}

	parts := strings.Split(v, ",")
	if len(parts) != 4 {
		return nil, errors.New("crop wants four comma separated fractions: x,y,w,h")
	}

	vals := make([]float64, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("crop fraction %q is not a number", p)
		}
		vals[i] = f
	}

	return &render.CropRegion{X: vals[0], Y: vals[1], W: vals[2], H: vals[3]}, nil
}

// defaultOutputPath keeps the source's base name with a marker suffix
// so converting a clip in place never overwrites it.
func defaultOutputPath(outputDir, source string, format encode.Format) string {
	base := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	if len(base) == 0 || base == "." || base == string(filepath.Separator) {
		base = "export"
	}

	ext := ".mp4"
	switch format {
	case encode.FormatGIF:
		ext = ".gif"
	case encode.FormatFrames:
		ext = ".zip"
	}

	return filepath.Join(outputDir, base+"-pocketcam"+ext)
}

// progressPrinter renders per-phase progress: an in-place bar when
// stdout is a terminal, sparse log lines otherwise.
func progressPrinter(interactive bool) func(export.Phase, float64) {
	var phaseShown export.Phase
	shownPct := -1

	return func(phase export.Phase, v float64) {
		pct := int(v * 100)
		if phase != phaseShown {
			phaseShown = phase
			shownPct = -1
		}

		if interactive {
			if pct == shownPct {
				return
			}
			shownPct = pct
			fmt.Printf("\r%-7s [%-20s] %3d%%", phase, strings.Repeat("=", pct/5), pct)
			return
		}

		if shownPct < 0 || pct >= shownPct+25 || (pct == 100 && shownPct != 100) {
			shownPct = pct
			log.Info("%s %d%%", phase, pct)
		}
	}
}

func run(args []string) (string, error) {
	if len(args) > 0 {
		switch args[0] {
		case "setup":
			return runSetup()
		case "remove-setup":
			return runRemoveSetup()
		case "history":
			return runHistory(args[1:])
		case "palettes":
			return runPalettes(), nil
		case "convert":
			return runConvert(args[1:])
		case "help":
			return usage, nil
		}
	}

	return runConvert(args)
}

func init() {
	log.ApplyEnvLevel("POCKETCAM_LOGGING_LEVEL")
}

func main() {
	status, err := run(os.Args[1:])
	if err != nil {
		logging.Error(err.Error()) //nolint
		os.Exit(1)
	}

	if len(status) > 0 {
		fmt.Println(status)
	}
}
