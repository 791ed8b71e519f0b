package config

import "github.com/tauraamui/pocketcam/pkg/configdef"

func DefaultCreateResolver() configdef.CreateResolver {
	return defaultCreateResolver{}
}

type defaultCreateResolver struct{}

func (d defaultCreateResolver) Create() error {
	return create()
}

func (d defaultCreateResolver) Resolve() (configdef.Values, error) {
	return load()
}
