package xrun

import (
	"os"
	"syscall"

	"github.com/omeyang/xedge/pkg/observability/xlog"
)

// Option Group 配置选项
type Option func(*groupOptions)

type groupOptions struct {
	logger          xlog.Logger
	name            string
	signals         []os.Signal
	noSignalHandler bool
}

func defaultOptions() *groupOptions {
	return &groupOptions{
		logger:  xlog.Discard(),
		name:    "xrun",
		signals: []os.Signal{syscall.SIGINT, syscall.SIGTERM},
	}
}

// WithLogger 设置日志记录器
func WithLogger(logger xlog.Logger) Option {
	return func(o *groupOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithName 设置 Group 名称，用于日志
func WithName(name string) Option {
	return func(o *groupOptions) {
		if name != "" {
			o.name = name
		}
	}
}

// WithoutSignalHandler 不监听信号，用于测试或嵌入场景
func WithoutSignalHandler() Option {
	return func(o *groupOptions) {
		o.noSignalHandler = true
	}
}
