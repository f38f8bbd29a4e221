package xretry

import (
	"context"
	"errors"

	retry "github.com/avast/retry-go/v5"
)

type (
	// Option 重试配置选项
	Option = retry.Option
	// Error 多次尝试的聚合错误
	Error = retry.Error
)

var (
	Attempts     = retry.Attempts
	Delay        = retry.Delay
	MaxDelay     = retry.MaxDelay
	DelayType    = retry.DelayType
	OnRetry      = retry.OnRetry
	BackOffDelay = retry.BackOffDelay
	FixedDelay   = retry.FixedDelay

	LastErrorOnly = retry.LastErrorOnly
)

// Do 在 ctx 有效期内重试 fn。ctx 取消后立即返回。
func Do(ctx context.Context, fn func() error, opts ...Option) error {
	allOpts := make([]Option, 0, len(opts)+2)
	allOpts = append(allOpts,
		retry.Context(ctx),
		retry.RetryIf(func(err error) bool {
			return retry.IsRecoverable(err) && !IsPermanent(err)
		}),
	)
	return retry.New(append(allOpts, opts...)...).Do(fn)
}

// PermanentError 不可重试的错误
type PermanentError struct {
	Err error
}

// Permanent 标记 err 为不可重试
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

func (e *PermanentError) Error() string { return e.Err.Error() }

func (e *PermanentError) Unwrap() error { return e.Err }

// IsPermanent 判断错误链中是否含有 PermanentError
func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}
