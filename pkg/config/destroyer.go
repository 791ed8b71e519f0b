package config

import (
	"github.com/tauraamui/pocketcam/internal/config"
	"github.com/tauraamui/pocketcam/pkg/configdef"
)

type Destoryer interface {
	configdef.Destroyer
}

func DefaultDestroyer() Destoryer {
	return config.DefaultDestoryer()
}
