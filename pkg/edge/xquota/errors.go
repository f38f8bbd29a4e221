package xquota

import "errors"

var (
	ErrNilStore         = errors.New("xquota: nil store")
	ErrNilRedisClient   = errors.New("xquota: gcra algorithm requires a redis client")
	ErrInvalidConfig    = errors.New("xquota: invalid config")
	ErrUnknownAlgorithm = errors.New("xquota: unknown algorithm")
	ErrUnknownFallback  = errors.New("xquota: unknown fallback strategy")
)
