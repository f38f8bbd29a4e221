package xident

import "errors"

// ErrInvalidProxy 可信代理配置无法解析
var ErrInvalidProxy = errors.New("xident: invalid trusted proxy")
