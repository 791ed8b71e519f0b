package config

import (
	"github.com/tauraamui/pocketcam/internal/config"
	"github.com/tauraamui/pocketcam/pkg/configdef"
)

type CreateResolver interface {
	configdef.CreateResolver
}

func DefaultCreateResolver() CreateResolver {
	return config.DefaultCreateResolver()
}

func DefaultValues() configdef.Values {
	return config.DefaultValues()
}
