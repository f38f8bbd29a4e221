package xstore

import "time"

const (
	// DefaultOpTimeout 单次存储调用的默认超时
	DefaultOpTimeout = 50 * time.Millisecond
)

// Options 存储选项
type Options struct {
	// KeyPrefix 所有 key 的命名空间前缀
	KeyPrefix string

	// OpTimeout 单次调用超时，<=0 表示不额外限制
	OpTimeout time.Duration

	// Now 时间源，仅内存实现使用
	Now func() time.Time
}

// Option 存储选项函数
type Option func(*Options)

func defaultOptions() *Options {
	return &Options{
		KeyPrefix: "xedge:",
		OpTimeout: DefaultOpTimeout,
		Now:       time.Now,
	}
}

// WithKeyPrefix 设置 key 前缀
func WithKeyPrefix(prefix string) Option {
	return func(o *Options) {
		o.KeyPrefix = prefix
	}
}

// WithOpTimeout 设置单次调用超时
func WithOpTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.OpTimeout = d
	}
}

// WithClock 设置内存实现的时间源
func WithClock(now func() time.Time) Option {
	return func(o *Options) {
		if now != nil {
			o.Now = now
		}
	}
}

func buildOptions(opts []Option) *Options {
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}
