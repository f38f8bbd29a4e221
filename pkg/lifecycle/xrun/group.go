package xrun

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"

	"golang.org/x/sync/errgroup"

	"github.com/omeyang/xedge/pkg/observability/xlog"
)

// Service 长期运行的服务，ctx 取消时应尽快返回
type Service struct {
	Name string
	Run  func(ctx context.Context) error
}

// Named 构造 Service
func Named(name string, run func(ctx context.Context) error) Service {
	return Service{Name: name, Run: run}
}

// Group 一组共享生命周期的服务
type Group struct {
	eg       *errgroup.Group
	ctx      context.Context
	causeCtx context.Context
	cancel   context.CancelCauseFunc
	opts     *groupOptions
}

// NewGroup 创建 Group，返回的 context 在任一服务失败或 Cancel 后取消
func NewGroup(ctx context.Context, opts ...Option) (*Group, context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	options := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(options)
		}
	}
	causeCtx, cancel := context.WithCancelCause(ctx)
	eg, egCtx := errgroup.WithContext(causeCtx)
	return &Group{eg: eg, ctx: egCtx, causeCtx: causeCtx, cancel: cancel, opts: options}, egCtx
}

// Go 启动服务
func (g *Group) Go(svc Service) {
	g.eg.Go(func() error {
		if svc.Run == nil {
			return ErrNilFunc
		}
		attrs := []slog.Attr{slog.String("group", g.opts.name), slog.String("service", svc.Name)}
		g.opts.logger.Debug(g.ctx, "service starting", attrs...)

		err := svc.Run(g.ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			g.opts.logger.Warn(g.ctx, "service exited with error", append(attrs, xlog.Err(err))...)
		} else {
			g.opts.logger.Debug(g.ctx, "service stopped", attrs...)
		}
		return err
	})
}

// Cancel 以 cause 取消所有服务
func (g *Group) Cancel(cause error) {
	g.cancel(cause)
}

// Wait 等待所有服务退出
//
// 通过 Cancel 或信号退出时返回 cause，父 context 取消时返回 nil。
func (g *Group) Wait() error {
	defer g.cancel(nil)

	err := g.eg.Wait()
	cause := context.Cause(g.causeCtx)
	if cause != nil && !errors.Is(cause, context.Canceled) {
		if err == nil || errors.Is(err, context.Canceled) {
			return cause
		}
	}
	if errors.Is(err, context.Canceled) && g.causeCtx.Err() != nil {
		return nil
	}
	return err
}

// Run 启动服务与信号监听并等待退出
func Run(ctx context.Context, opts []Option, services ...Service) error {
	g, _ := NewGroup(ctx, opts...)

	if !g.opts.noSignalHandler {
		g.Go(Named("signal", func(ctx context.Context) error {
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, g.opts.signals...)
			defer signal.Stop(sigCh)

			select {
			case sig := <-sigCh:
				g.opts.logger.Info(ctx, "received signal",
					slog.String("group", g.opts.name),
					slog.String("signal", sig.String()),
				)
				g.Cancel(&SignalError{Signal: sig})
				return nil
			case <-ctx.Done():
				return nil
			}
		}))
	}

	for _, svc := range services {
		g.Go(svc)
	}
	return g.Wait()
}
