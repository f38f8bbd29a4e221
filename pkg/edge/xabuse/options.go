package xabuse

import (
	"fmt"
	"time"

	"github.com/omeyang/xedge/pkg/observability/xlog"
)

const (
	DefaultBurstThreshold = 300
	DefaultBlockDuration  = time.Hour
	DefaultTrackWindow    = time.Minute
)

type options struct {
	burstThreshold int
	blockDuration  time.Duration
	trackWindow    time.Duration
	keyPrefix      string
	logger         xlog.Logger
	now            func() time.Time
}

// Option Guard 选项
type Option func(*options)

func defaultOptions() *options {
	return &options{
		burstThreshold: DefaultBurstThreshold,
		blockDuration:  DefaultBlockDuration,
		trackWindow:    DefaultTrackWindow,
		keyPrefix:      "abuse:",
		logger:         xlog.Discard(),
		now:            time.Now,
	}
}

func (o *options) validate() error {
	if o.burstThreshold <= 0 {
		return fmt.Errorf("%w: burst threshold %d", ErrInvalidConfig, o.burstThreshold)
	}
	if o.blockDuration <= 0 || o.trackWindow <= 0 {
		return fmt.Errorf("%w: block duration %s, track window %s", ErrInvalidConfig, o.blockDuration, o.trackWindow)
	}
	return nil
}

// WithBurstThreshold 追踪窗口内超过该请求数即封禁
func WithBurstThreshold(n int) Option {
	return func(o *options) { o.burstThreshold = n }
}

// WithBlockDuration 封禁时长
func WithBlockDuration(d time.Duration) Option {
	return func(o *options) { o.blockDuration = d }
}

// WithTrackWindow 时间戳追踪窗口
func WithTrackWindow(d time.Duration) Option {
	return func(o *options) { o.trackWindow = d }
}

// WithKeyPrefix 存储 key 前缀
func WithKeyPrefix(prefix string) Option {
	return func(o *options) { o.keyPrefix = prefix }
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
