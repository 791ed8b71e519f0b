package configdef

import (
	"errors"
	"fmt"

	validate "gopkg.in/dealancer/validate.v2"

	"github.com/tauraamui/pocketcam/pkg/palette"
)

// Values holds the converter's persisted settings. Fields left blank
// in the config file are filled from the defaults before validation
// runs, so a freshly created config is always valid.
type Values struct {
	Debug            bool     `json:"debug"`
	OutputDir        string   `json:"output_dir" validate:"empty=false"`
	FFmpegBin        string   `json:"ffmpeg_bin" validate:"empty=false"`
	VideoBackend     string   `json:"video_backend" validate:"one_of=opencv,mock"`
	DisabledEncoders []string `json:"disabled_encoders"`
	DefaultPalette   string   `json:"default_palette" validate:"empty=false"`
	HistoryDisabled  bool     `json:"history_disabled"`
}

func (v Values) RunValidate() error {
	if err := validate.Validate(&v); err != nil {
		return err
	}
	return v.Validate()
}

func (v Values) Validate() error {
	const validationErrorHeader = "validation failed: %w"
	if _, err := palette.ByName(v.DefaultPalette); err != nil {
		return fmt.Errorf(validationErrorHeader, err)
	}
	if name, ok := unknownEncoderName(v.DisabledEncoders); !ok {
		return fmt.Errorf(
			validationErrorHeader, fmt.Errorf("unknown encoder %q in disabled list", name),
		)
	}
	if HasDupDisabledEncoders(v.DisabledEncoders) {
		return fmt.Errorf(
			validationErrorHeader, errors.New("disabled encoder entries must be unique"),
		)
	}
	return nil
}

func unknownEncoderName(names []string) (string, bool) {
	for _, name := range names {
		if name != "opencv" && name != "ffmpeg" {
			return name, false
		}
	}
	return "", true
}

func HasDupDisabledEncoders(names []string) (hasDup bool) {
	hasDup = false
	if len(names) == 0 {
		return
	}

	for ni, name := range names {
		for i := ni; i < len(names); i++ {
			if i == ni {
				continue
			}
			if name == names[i] {
				hasDup = true
				return
			}
		}
	}
	return
}
