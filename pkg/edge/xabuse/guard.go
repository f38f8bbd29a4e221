package xabuse

import (
	"context"
	"log/slog"

	"github.com/omeyang/xedge/pkg/observability/xlog"
	"github.com/omeyang/xedge/pkg/storage/xstore"
)

// 拒绝原因
const (
	ReasonBurst   = "burst_threshold_exceeded"
	ReasonBlocked = "client_blocked"
)

// Decision 一次检查的结果
type Decision struct {
	Allowed bool
	Reason  string

	// Count 追踪窗口内的请求数（含本次），降级时为 0
	Count int64

	// Degraded 存储不可用导致放行
	Degraded bool
}

// Guard 滥用防护，无进程内状态
type Guard struct {
	store xstore.Store
	opts  *options
}

// New 创建 Guard
func New(store xstore.Store, opts ...Option) (*Guard, error) {
	if store == nil {
		return nil, ErrNilStore
	}
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	if err := o.validate(); err != nil {
		return nil, err
	}
	return &Guard{store: store, opts: o}, nil
}

func (g *Guard) timestampKey(client string) string {
	return g.opts.keyPrefix + "ts:" + client
}

func (g *Guard) blockKey(client string) string {
	return g.opts.keyPrefix + "block:" + client
}

// Check 记录本次请求并判定是否放行
func (g *Guard) Check(ctx context.Context, client string) Decision {
	now := g.opts.now()

	count, err := g.store.RecordHit(ctx, g.timestampKey(client), now, g.opts.trackWindow)
	if err != nil {
		return g.degraded(ctx, client, "record hit", err)
	}

	if count > int64(g.opts.burstThreshold) {
		if err := g.store.SetWithTTL(ctx, g.blockKey(client), []byte("1"), g.opts.blockDuration); err != nil {
			// 突发已确认，写封禁失败只影响后续请求
			g.opts.logger.Warn(ctx, "abuse block write failed",
				xlog.Stage("abuse"), xlog.Client(client), xlog.Degraded(), xlog.Err(err))
		} else {
			g.opts.logger.Info(ctx, "client blocked",
				xlog.Stage("abuse"), xlog.Client(client),
				slog.Int64("count", count),
				slog.Duration("block_duration", g.opts.blockDuration))
		}
		return Decision{Reason: ReasonBurst, Count: count}
	}

	blocked, err := g.store.Exists(ctx, g.blockKey(client))
	if err != nil {
		return g.degraded(ctx, client, "check block", err)
	}
	if blocked {
		return Decision{Reason: ReasonBlocked, Count: count}
	}
	return Decision{Allowed: true, Count: count}
}

func (g *Guard) degraded(ctx context.Context, client, op string, err error) Decision {
	g.opts.logger.Warn(ctx, "abuse guard store unavailable, allowing request",
		xlog.Stage("abuse"), xlog.Client(client), xlog.Degraded(),
		slog.String("op", op), xlog.Err(err))
	return Decision{Allowed: true, Degraded: true}
}
