package xrespcache

import (
	"context"
	"time"

	"github.com/omeyang/xedge/pkg/observability/xlog"
)

// DefaultFillTimeout 合并回源的独立超时
const DefaultFillTimeout = 30 * time.Second

// StoreErrorFunc 写缓存失败回调
type StoreErrorFunc func(ctx context.Context, key string, err error)

type options struct {
	whitelist   []string
	coalescing  bool
	fillTimeout time.Duration
	onStoreErr  StoreErrorFunc
	logger      xlog.Logger
	now         func() time.Time
}

// Option Cache 选项
type Option func(*options)

func defaultOptions() *options {
	return &options{
		whitelist:   DefaultHeaderWhitelist,
		coalescing:  true,
		fillTimeout: DefaultFillTimeout,
		logger:      xlog.Discard(),
		now:         time.Now,
	}
}

// WithHeaderWhitelist 替换随记录保存的响应头列表
func WithHeaderWhitelist(names ...string) Option {
	return func(o *options) { o.whitelist = names }
}

// WithCoalescing 是否合并同一 key 的并发未命中，默认开启
func WithCoalescing(enabled bool) Option {
	return func(o *options) { o.coalescing = enabled }
}

// WithFillTimeout 合并回源的超时，<= 0 时保持默认
func WithFillTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.fillTimeout = d
		}
	}
}

// OnStoreError 写缓存失败时调用。错误不会影响本次响应。
func OnStoreError(fn StoreErrorFunc) Option {
	return func(o *options) { o.onStoreErr = fn }
}

// WithLogger 日志
func WithLogger(l xlog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithClock 时间源，用于 Record.StoredAt
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}
