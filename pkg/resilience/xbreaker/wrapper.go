package xbreaker

import "github.com/sony/gobreaker/v2"

type (
	// Counts 熔断器请求计数
	Counts = gobreaker.Counts
	// State 熔断器状态
	State = gobreaker.State
)

const (
	StateClosed   = gobreaker.StateClosed
	StateHalfOpen = gobreaker.StateHalfOpen
	StateOpen     = gobreaker.StateOpen
)

var (
	ErrTooManyRequests = gobreaker.ErrTooManyRequests
	ErrOpenState       = gobreaker.ErrOpenState
)
