package edgeconf

import (
	"context"
	"log/slog"

	"github.com/omeyang/xedge/pkg/config/xconf"
	"github.com/omeyang/xedge/pkg/edge/xpolicy"
	"github.com/omeyang/xedge/pkg/edge/xsecure"
	"github.com/omeyang/xedge/pkg/observability/xlog"
)

// Reloader 配置文件变更时替换策略表和跨域白名单。
// 新配置任何一项无效都保留旧值。
type Reloader struct {
	policies *xpolicy.Holder
	envelope *xsecure.Holder
	logger   xlog.Logger
}

// NewReloader 创建 Reloader
func NewReloader(policies *xpolicy.Holder, envelope *xsecure.Holder, logger xlog.Logger) *Reloader {
	if logger == nil {
		logger = xlog.Discard()
	}
	return &Reloader{policies: policies, envelope: envelope, logger: logger}
}

// OnChange 可直接作为 xconf.WatchCallback
func (r *Reloader) OnChange(src xconf.Config, err error) {
	ctx := context.Background()
	if err != nil {
		r.logger.Warn(ctx, "config reload failed, keeping current policies", xlog.Err(err))
		return
	}
	if err := r.Apply(src); err != nil {
		r.logger.Warn(ctx, "config rejected, keeping current policies", xlog.Err(err))
		return
	}
	r.logger.Info(ctx, "config reloaded", slog.String("path", src.Path()))
}

// Apply 解码 src 并替换策略表和白名单
func (r *Reloader) Apply(src xconf.Config) error {
	cfg, err := Decode(src)
	if err != nil {
		return err
	}
	resolver, err := cfg.Resolver()
	if err != nil {
		return err
	}
	envelope, err := cfg.Envelope()
	if err != nil {
		return err
	}
	r.policies.Store(resolver)
	r.envelope.Store(envelope)
	return nil
}
