package configdef_test

import (
	"encoding/json"
	"testing"

	"github.com/matryer/is"
	"github.com/tauraamui/pocketcam/pkg/configdef"
)

func TestValidatePopulatedConfigPassesValidation(t *testing.T) {
	is := is.New(t)
	body := `{
			"debug": true,
			"output_dir": "/conversions",
			"ffmpeg_bin": "/usr/local/bin/ffmpeg",
			"video_backend": "mock",
			"disabled_encoders": ["opencv"],
			"default_palette": "pocket",
			"history_disabled": true
		}`
	config := configdef.Values{}
	is.NoErr(json.Unmarshal([]byte(body), &config))
	is.NoErr(config.RunValidate())
}

func TestValidateZeroValuesFailsOnMissingOutputDir(t *testing.T) {
	is := is.New(t)
	config := configdef.Values{}
	is.Equal(config.RunValidate().Error(), `Validation error in field "OutputDir" of type "string" using validator "empty=false"`)
}

func TestValidateFailsValidationForMissingFFmpegBin(t *testing.T) {
	is := is.New(t)
	body := `{
			"output_dir": ".",
			"video_backend": "opencv",
			"default_palette": "dmg"
		}`
	config := configdef.Values{}
	is.NoErr(json.Unmarshal([]byte(body), &config))
	is.Equal(config.RunValidate().Error(), `Validation error in field "FFmpegBin" of type "string" using validator "empty=false"`)
}

func TestValidateFailsValidationForUnknownVideoBackend(t *testing.T) {
	is := is.New(t)
	body := `{
			"output_dir": ".",
			"ffmpeg_bin": "ffmpeg",
			"video_backend": "gstreamer",
			"default_palette": "dmg"
		}`
	config := configdef.Values{}
	is.NoErr(json.Unmarshal([]byte(body), &config))
	is.Equal(config.RunValidate().Error(), `Validation error in field "VideoBackend" of type "string" using validator "one_of=opencv,mock"`)
}

func TestValidateFailsValidationForUnknownPalette(t *testing.T) {
	is := is.New(t)
	body := `{
			"output_dir": ".",
			"ffmpeg_bin": "ffmpeg",
			"video_backend": "opencv",
			"default_palette": "neon"
		}`
	config := configdef.Values{}
	is.NoErr(json.Unmarshal([]byte(body), &config))
	is.Equal(config.RunValidate().Error(), "validation failed: unknown palette: neon")
}

func TestValidateFailsValidationForUnknownDisabledEncoder(t *testing.T) {
	is := is.New(t)
	body := `{
			"output_dir": ".",
			"ffmpeg_bin": "ffmpeg",
			"video_backend": "opencv",
			"disabled_encoders": ["quicktime"],
			"default_palette": "dmg"
		}`
	config := configdef.Values{}
	is.NoErr(json.Unmarshal([]byte(body), &config))
	is.Equal(config.RunValidate().Error(), `validation failed: unknown encoder "quicktime" in disabled list`)
}

func TestValidateFailsValidationForDupDisabledEncoders(t *testing.T) {
	is := is.New(t)
	body := `{
			"output_dir": ".",
			"ffmpeg_bin": "ffmpeg",
			"video_backend": "opencv",
			"disabled_encoders": ["ffmpeg", "ffmpeg"],
			"default_palette": "dmg"
		}`
	config := configdef.Values{}
	is.NoErr(json.Unmarshal([]byte(body), &config))
	is.Equal(config.RunValidate().Error(), "validation failed: disabled encoder entries must be unique")
}

func TestHasDupDisabledEncodersDoesNotFindDuplicates(t *testing.T) {
	is := is.New(t)
	names := []string{}
	is.True(configdef.HasDupDisabledEncoders(names) == false)

	names = []string{"opencv", "ffmpeg"}
	is.True(configdef.HasDupDisabledEncoders(names) == false)
}

func TestHasDupDisabledEncodersDoesFindDuplicates(t *testing.T) {
	is := is.New(t)
	names := []string{"opencv", "ffmpeg", "opencv"}
	is.True(configdef.HasDupDisabledEncoders(names))
}
