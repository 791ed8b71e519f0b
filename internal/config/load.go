package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/tauraamui/pocketcam/pkg/configdef"
	"github.com/tauraamui/pocketcam/pkg/log"
	"github.com/tauraamui/xerror"
)

const (
	vendorName     = "tauraamui"
	appName        = "pocketcam"
	configFileName = "config.json"
)

var fs afero.Fs = afero.NewOsFs()

func load() (configdef.Values, error) {
	var values configdef.Values

	configPath, err := resolveConfigPath()
	if err != nil {
		return configdef.Values{}, err
	}

	log.Info("Resolved config file location: %s", configPath)
	file, err := readConfigFile(configPath)
	if err != nil {
		return configdef.Values{}, err
	}

	if err := unmarshal(file, &values); err != nil {
		return configdef.Values{}, err
	}

	applyDefaultValuesForUnset(&values)

	if err = values.RunValidate(); err != nil {
		return configdef.Values{}, err
	}

	return values, nil
}

// Defaults fill unset fields before validation so a blank config file
// still resolves to a usable converter setup.
func applyDefaultValuesForUnset(values *configdef.Values) {
	if len(values.OutputDir) == 0 {
		values.OutputDir = defaultSettings[OUTPUTDIR].(string)
	}
	if len(values.FFmpegBin) == 0 {
		values.FFmpegBin = defaultSettings[FFMPEGBIN].(string)
	}
	if len(values.VideoBackend) == 0 {
		values.VideoBackend = defaultSettings[VIDEOBACKEND].(string)
	}
	if len(values.DefaultPalette) == 0 {
		values.DefaultPalette = defaultSettings[DEFAULTPALETTE].(string)
	}
}

var readConfigFile = func(path string) ([]byte, error) {
	return afero.ReadFile(fs, path)
}

func unmarshal(content []byte, values *configdef.Values) error {
	err := json.Unmarshal(content, values)
	if err != nil {
		return errors.Errorf("parsing configuration error: %v", err)
	}
	return nil
}

func resolveConfigPath() (string, error) {
	configPath := os.Getenv("POCKETCAM_CONFIG")
	if len(configPath) > 0 {
		return configPath, nil
	}

	configParentDir, err := userConfigDir()
	if err != nil {
		return "", xerror.Errorf("unable to resolve %s location: %w", configFileName, err)
	}

	return filepath.Join(
		configParentDir,
		vendorName,
		appName,
		configFileName), nil
}

var userConfigDir = func() (string, error) {
	return os.UserConfigDir()
}
