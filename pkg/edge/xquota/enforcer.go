package xquota

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/go-redis/redis_rate/v10"

	"github.com/omeyang/xedge/pkg/edge/xpolicy"
	"github.com/omeyang/xedge/pkg/observability/xlog"
	"github.com/omeyang/xedge/pkg/storage/xstore"
)

// Enforcer 配额执行器，并发安全
type Enforcer struct {
	store xstore.Store
	gcra  *redis_rate.Limiter
	local *localLimiters
	opts  *options
}

// New 创建 Enforcer
func New(store xstore.Store, opts ...Option) (*Enforcer, error) {
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

	e := &Enforcer{store: store, opts: o}
	if o.algorithm == AlgorithmGCRA {
		e.gcra = redis_rate.NewLimiter(o.redis)
	}
	if o.fallback == FallbackLocal {
		local, err := newLocalLimiters(o.localCapacity, o.expectedInstances)
		if err != nil {
			return nil, err
		}
		e.local = local
	}
	return e, nil
}

// Allow 对 client 在 policy 下的一次请求计数并判定
func (e *Enforcer) Allow(ctx context.Context, client string, policy xpolicy.QuotaPolicy) *Result {
	now := e.opts.now()

	var (
		res *Result
		err error
	)
	if e.gcra != nil {
		res, err = e.allowGCRA(ctx, client, policy, now)
	} else {
		res, err = e.allowFixedWindow(ctx, client, policy, now)
	}
	if err == nil {
		return res
	}
	return e.fallback(ctx, client, policy, now, err)
}

func (e *Enforcer) allowFixedWindow(ctx context.Context, client string, p xpolicy.QuotaPolicy, now time.Time) (*Result, error) {
	idx := now.UnixNano() / int64(p.Window)
	resetAt := time.Unix(0, (idx+1)*int64(p.Window))
	key := e.opts.keyPrefix + p.RoutePrefix + ":" + client + ":" + strconv.FormatInt(idx, 10)

	// 计数器最晚在下一个窗口结束时过期
	count, err := e.store.Incr(ctx, key, p.Window)
	if err != nil {
		return nil, err
	}

	res := &Result{Limit: p.Limit, ResetAt: resetAt}
	if count <= p.Limit {
		res.Allowed = true
		res.Remaining = p.Limit - count
		return res, nil
	}
	res.RetryAfter = resetAt.Sub(now)
	return res, nil
}

func (e *Enforcer) allowGCRA(ctx context.Context, client string, p xpolicy.QuotaPolicy, now time.Time) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, e.opts.opTimeout)
	defer cancel()

	limit := redis_rate.Limit{Rate: int(p.Limit), Burst: int(p.Limit), Period: p.Window}
	r, err := e.gcra.Allow(ctx, e.opts.keyPrefix+p.RoutePrefix+":"+client, limit)
	if err != nil {
		return nil, err
	}
	res := &Result{
		Allowed:   r.Allowed > 0,
		Limit:     p.Limit,
		Remaining: int64(r.Remaining),
		ResetAt:   now.Add(r.ResetAfter),
	}
	if !res.Allowed {
		res.Remaining = 0
		res.RetryAfter = r.RetryAfter
	}
	return res, nil
}

func (e *Enforcer) fallback(ctx context.Context, client string, p xpolicy.QuotaPolicy, now time.Time, cause error) *Result {
	e.opts.logger.Warn(ctx, "quota store unavailable, using fallback",
		xlog.Stage("quota"), xlog.Client(client), xlog.Degraded(),
		slog.String("strategy", string(e.opts.fallback)),
		slog.String("route", p.RoutePrefix), xlog.Err(cause))

	if e.local != nil {
		res := e.local.allow(p.RoutePrefix+":"+client, p, now)
		res.Degraded = true
		return res
	}
	return &Result{Allowed: true, Degraded: true}
}
