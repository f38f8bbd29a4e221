package xrespcache

import "errors"

var (
	ErrNilStore = errors.New("xrespcache: nil store")

	errUnexpectedResult = errors.New("xrespcache: unexpected result type from singleflight")
)
