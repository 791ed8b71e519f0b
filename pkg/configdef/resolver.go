package configdef

import "errors"

var ErrConfigAlreadyExists = errors.New("config file already exists")

type Creator interface {
	Create() error
}

type Resolver interface {
	Resolve() (Values, error)
}

type CreateResolver interface {
	Creator
	Resolver
}

type Destroyer interface {
	Destory() error
}
