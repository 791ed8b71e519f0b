package config

import (
	"github.com/tauraamui/pocketcam/internal/config"
	"github.com/tauraamui/pocketcam/pkg/configdef"
)

type Resolver interface {
	configdef.Resolver
}

func DefaultResolver() Resolver {
	return config.DefaultResolver()
}
