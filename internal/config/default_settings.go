package config

import (
	"github.com/tauraamui/pocketcam/pkg/configdef"
	"github.com/tauraamui/pocketcam/pkg/palette"
)

type defaultSettingKey uint

const (
	OUTPUTDIR      defaultSettingKey = 0x0
	FFMPEGBIN      defaultSettingKey = 0x1
	VIDEOBACKEND   defaultSettingKey = 0x2
	DEFAULTPALETTE defaultSettingKey = 0x3
)

var defaultSettings = map[defaultSettingKey]interface{}{
	OUTPUTDIR:      ".",
	FFMPEGBIN:      "ffmpeg",
	VIDEOBACKEND:   "opencv",
	DEFAULTPALETTE: palette.DefaultName,
}

// DefaultValues is the configuration a host without a config file
// runs under, identical to what create writes out.
func DefaultValues() configdef.Values {
	var v configdef.Values
	applyDefaultValuesForUnset(&v)
	return v
}
