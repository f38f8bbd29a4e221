package xgovern

import "errors"

var (
	// ErrUnauthorized 认证失败，映射为 401
	ErrUnauthorized = errors.New("xgovern: unauthorized")

	// ErrForbidden 无权限，映射为 403
	ErrForbidden = errors.New("xgovern: forbidden")

	// ErrAuthUnavailable 认证服务不可用，映射为 503
	ErrAuthUnavailable = errors.New("xgovern: auth service unavailable")

	ErrNilPolicies   = errors.New("xgovern: nil policy holder")
	ErrEmptyEndpoint = errors.New("xgovern: empty auth endpoint")
)
