package xquota

import (
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/omeyang/xedge/pkg/observability/xlog"
)

// Algorithm 配额算法
type Algorithm string

const (
	AlgorithmFixedWindow Algorithm = "fixed_window"
	AlgorithmGCRA        Algorithm = "gcra"
)

// FallbackStrategy 存储不可用时的处理方式
type FallbackStrategy string

const (
	FallbackOpen  FallbackStrategy = "open"
	FallbackLocal FallbackStrategy = "local"
)

const (
	// DefaultLocalCapacity 本地降级限流器最多保留的客户端数
	DefaultLocalCapacity = 10000

	// DefaultOpTimeout GCRA 单次 Redis 调用超时
	DefaultOpTimeout = 50 * time.Millisecond
)

type options struct {
	algorithm         Algorithm
	redis             redis.UniversalClient
	fallback          FallbackStrategy
	expectedInstances int
	localCapacity     int
	keyPrefix         string
	opTimeout         time.Duration
	logger            xlog.Logger
	now               func() time.Time
}

// Option Enforcer 选项
type Option func(*options)

func defaultOptions() *options {
	return &options{
		algorithm:         AlgorithmFixedWindow,
		fallback:          FallbackOpen,
		expectedInstances: 1,
		localCapacity:     DefaultLocalCapacity,
		keyPrefix:         "quota:",
		opTimeout:         DefaultOpTimeout,
		logger:            xlog.Discard(),
		now:               time.Now,
	}
}

func (o *options) validate() error {
	switch o.algorithm {
	case AlgorithmFixedWindow:
	case AlgorithmGCRA:
		if o.redis == nil {
			return ErrNilRedisClient
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAlgorithm, o.algorithm)
	}
	switch o.fallback {
	case FallbackOpen, FallbackLocal:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFallback, o.fallback)
	}
	if o.expectedInstances <= 0 || o.localCapacity <= 0 {
		return fmt.Errorf("%w: expected instances %d, local capacity %d",
			ErrInvalidConfig, o.expectedInstances, o.localCapacity)
	}
	return nil
}

// WithAlgorithm 选择配额算法，默认固定窗口
func WithAlgorithm(a Algorithm) Option {
	return func(o *options) { o.algorithm = a }
}

// WithRedisClient GCRA 算法使用的 Redis 客户端
func WithRedisClient(client redis.UniversalClient) Option {
	return func(o *options) { o.redis = client }
}

// WithFallback 存储不可用时的降级策略，默认 FallbackOpen
func WithFallback(s FallbackStrategy) Option {
	return func(o *options) { o.fallback = s }
}

// WithExpectedInstances 部署实例数。FallbackLocal 下每个实例分到 limit/n 的配额。
func WithExpectedInstances(n int) Option {
	return func(o *options) { o.expectedInstances = n }
}

// WithLocalCapacity 本地降级限流器的 LRU 容量
func WithLocalCapacity(n int) Option {
	return func(o *options) { o.localCapacity = n }
}

// WithKeyPrefix 计数器 key 前缀，默认 "quota:"
func WithKeyPrefix(prefix string) Option {
	return func(o *options) { o.keyPrefix = prefix }
}

// WithOpTimeout GCRA 单次 Redis 调用超时，默认 50ms。固定窗口由 Store 自身限时。
func WithOpTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.opTimeout = d
		}
	}
}

// WithLogger 日志
func WithLogger(l xlog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithClock 时间源
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}
