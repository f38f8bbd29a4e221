package xbreaker

import (
	"errors"
	"fmt"
)

// BreakerError 熔断器拒绝执行时返回的错误
type BreakerError struct {
	Err   error
	Name  string
	State State
}

func (e *BreakerError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("breaker %s: %v", e.Name, e.Err)
	}
	return e.Err.Error()
}

func (e *BreakerError) Unwrap() error {
	return e.Err
}

func wrapBreakerError(err error, name string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrOpenState):
		return &BreakerError{Err: err, Name: name, State: StateOpen}
	case errors.Is(err, ErrTooManyRequests):
		return &BreakerError{Err: err, Name: name, State: StateHalfOpen}
	default:
		return err
	}
}

// IsOpen 判断错误是否由熔断打开导致
func IsOpen(err error) bool {
	return errors.Is(err, ErrOpenState)
}

// IsBreakerError 判断错误是否由熔断器拒绝导致
func IsBreakerError(err error) bool {
	return errors.Is(err, ErrOpenState) || errors.Is(err, ErrTooManyRequests)
}
