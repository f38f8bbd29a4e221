package xabuse

import "errors"

var (
	ErrNilStore      = errors.New("xabuse: nil store")
	ErrInvalidConfig = errors.New("xabuse: invalid config")
)
