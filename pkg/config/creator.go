package config

import (
	"github.com/tauraamui/pocketcam/internal/config"
	"github.com/tauraamui/pocketcam/pkg/configdef"
)

type Creator interface {
	configdef.Creator
}

func DefaultCreator() Creator {
	return config.DefaultCreator()
}
