package xpolicy

import "errors"

// ErrInvalidPolicy 策略表校验失败
var ErrInvalidPolicy = errors.New("xpolicy: invalid policy")
