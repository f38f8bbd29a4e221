package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"

	"github.com/omeyang/xedge/internal/edgeconf"
	"github.com/omeyang/xedge/pkg/edge/xabuse"
	"github.com/omeyang/xedge/pkg/edge/xgovern"
	"github.com/omeyang/xedge/pkg/edge/xpolicy"
	"github.com/omeyang/xedge/pkg/edge/xquota"
	"github.com/omeyang/xedge/pkg/edge/xrespcache"
	"github.com/omeyang/xedge/pkg/edge/xsecure"
	"github.com/omeyang/xedge/pkg/observability/xlog"
	"github.com/omeyang/xedge/pkg/observability/xmetrics"
	"github.com/omeyang/xedge/pkg/resilience/xbreaker"
	"github.com/omeyang/xedge/pkg/resilience/xretry"
	"github.com/omeyang/xedge/pkg/storage/xstore"
)

const (
	pingAttempts = 5
	pingDelay    = 200 * time.Millisecond
)

// edge 组装好的代理进程
type edge struct {
	server   *http.Server
	governor *xgovern.Governor
	policies *xpolicy.Holder
	envelope *xsecure.Holder
	store    xstore.Store
	client   redis.UniversalClient
}

func (e *edge) Close() error {
	err := e.store.Close()
	if e.client != nil {
		err = errors.Join(err, e.client.Close())
	}
	return err
}

func buildLogger(c edgeconf.LogConfig) (xlog.Logger, func() error, error) {
	b := xlog.New().
		SetOutput(os.Stderr).
		SetFormat(c.Format).
		SetLevelString(c.Level).
		SetAttrs(slog.String("service", "xedge"), slog.String("version", Version))
	if c.File != "" {
		b = b.SetRotation(c.File, c.Rotation)
	}
	logger, cleanup, err := b.Build()
	if err != nil {
		return nil, nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, cleanup, nil
}

// buildStore 创建计数器存储。Redis 启动时不可达只告警，进程以降级模式启动。
func buildStore(ctx context.Context, cfg *edgeconf.Config, logger xlog.Logger) (xstore.Store, redis.UniversalClient, error) {
	opts := []xstore.Option{
		xstore.WithKeyPrefix(cfg.Store.KeyPrefix),
		xstore.WithOpTimeout(cfg.Store.OpTimeout),
	}
	if cfg.Store.Memory {
		logger.Warn(ctx, "using in-process store, counters are not shared between instances")
		return xstore.NewMemory(opts...), nil, nil
	}

	client := redis.NewUniversalClient(xstore.BoundOptions(&redis.UniversalOptions{
		Addrs:      cfg.Redis.Addrs,
		MasterName: cfg.Redis.MasterName,
		Username:   cfg.Redis.Username,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
	}, cfg.Store.OpTimeout))
	store, err := xstore.NewRedis(client, opts...)
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}

	err = xretry.Do(ctx, func() error {
		err := store.Ping(ctx)
		if err != nil && !xstore.IsUnavailable(err) {
			// 认证失败等配置错误，重试无意义
			return xretry.Permanent(err)
		}
		return err
	},
		xretry.Attempts(pingAttempts),
		xretry.Delay(pingDelay),
		xretry.DelayType(xretry.BackOffDelay),
		xretry.LastErrorOnly(true),
		xretry.OnRetry(func(n uint, err error) {
			logger.Debug(ctx, "redis ping retry", slog.Uint64("attempt", uint64(n)), xlog.Err(err))
		}),
	)
	if err != nil {
		if ctx.Err() != nil {
			_ = client.Close()
			return nil, nil, ctx.Err()
		}
		if xretry.IsPermanent(err) {
			_ = client.Close()
			return nil, nil, fmt.Errorf("redis ping: %w", err)
		}
		logger.Warn(ctx, "redis unreachable at startup, starting degraded",
			xlog.Degraded(), xlog.Err(err))
	}

	if cfg.Store.Breaker {
		breaker := xstore.NewStoreBreaker("xedge-store",
			xbreaker.WithTimeout(cfg.Store.BreakerTimeout),
			xbreaker.WithOnStateChange(func(name string, from, to xbreaker.State) {
				logger.Warn(context.Background(), "store breaker state changed",
					slog.String("breaker", name),
					slog.String("from", from.String()),
					slog.String("to", to.String()))
			}),
		)
		store = xstore.NewGuarded(store, breaker)
	}
	return store, client, nil
}

// buildEdge 按配置组装所有阶段、源站代理与 HTTP 服务
func buildEdge(ctx context.Context, cfg *edgeconf.Config, logger xlog.Logger) (*edge, error) {
	store, client, err := buildStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	e := &edge{store: store, client: client}
	ok := false
	defer func() {
		if !ok {
			_ = e.Close()
		}
	}()

	ident, err := cfg.IdentityResolver()
	if err != nil {
		return nil, err
	}
	guard, err := xabuse.New(store,
		xabuse.WithBurstThreshold(cfg.Abuse.BurstThreshold),
		xabuse.WithBlockDuration(cfg.Abuse.BlockDuration),
		xabuse.WithTrackWindow(cfg.Abuse.TrackWindow),
		xabuse.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	quotaOpts := []xquota.Option{
		xquota.WithAlgorithm(xquota.Algorithm(cfg.Quota.Algorithm)),
		xquota.WithFallback(xquota.FallbackStrategy(cfg.Quota.Fallback)),
		xquota.WithExpectedInstances(cfg.Quota.ExpectedInstances),
		xquota.WithOpTimeout(cfg.Store.OpTimeout),
		xquota.WithLogger(logger),
	}
	if client != nil {
		quotaOpts = append(quotaOpts, xquota.WithRedisClient(client))
	}
	enforcer, err := xquota.New(store, quotaOpts...)
	if err != nil {
		return nil, err
	}

	cacheOpts := []xrespcache.Option{
		xrespcache.WithCoalescing(cfg.Cache.Coalescing),
		xrespcache.WithFillTimeout(cfg.Cache.FillTimeout),
		xrespcache.WithLogger(logger),
	}
	if len(cfg.Cache.HeaderWhitelist) > 0 {
		cacheOpts = append(cacheOpts, xrespcache.WithHeaderWhitelist(cfg.Cache.HeaderWhitelist...))
	}
	cache, err := xrespcache.New(store, cacheOpts...)
	if err != nil {
		return nil, err
	}

	resolver, err := cfg.Resolver()
	if err != nil {
		return nil, err
	}
	envelope, err := cfg.Envelope()
	if err != nil {
		return nil, err
	}
	e.policies = xpolicy.NewHolder(resolver)
	e.envelope = xsecure.NewHolder(envelope)

	observer, err := xmetrics.NewOTelObserver(
		xmetrics.WithTracerProvider(otel.GetTracerProvider()),
		xmetrics.WithMeterProvider(otel.GetMeterProvider()),
	)
	if err != nil {
		return nil, err
	}
	metrics, err := xgovern.NewMetrics(otel.GetMeterProvider())
	if err != nil {
		return nil, err
	}

	govOpts := []xgovern.Option{
		xgovern.WithIdentity(ident),
		xgovern.WithAbuseGuard(guard),
		xgovern.WithQuota(enforcer),
		xgovern.WithEnvelopeHolder(e.envelope),
		xgovern.WithCache(cache),
		xgovern.WithLogger(logger),
		xgovern.WithObserver(observer),
		xgovern.WithMetrics(metrics),
	}
	if cfg.Auth.Endpoint != "" {
		auth, err := xgovern.NewForwardAuth(cfg.Auth.Endpoint,
			xgovern.WithAuthClient(&http.Client{Timeout: cfg.Auth.Timeout}),
			xgovern.WithAuthBreaker(xgovern.NewAuthBreaker("xedge-auth")),
		)
		if err != nil {
			return nil, err
		}
		govOpts = append(govOpts, xgovern.WithAuthenticator(auth))
	}
	e.governor, err = xgovern.New(e.policies, govOpts...)
	if err != nil {
		return nil, err
	}

	origin, err := newOriginProxy(cfg.Origin, e.envelope, logger)
	if err != nil {
		return nil, err
	}
	e.server = &http.Server{
		Addr:              cfg.Listen,
		Handler:           e.governor.Handler(origin),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info(ctx, "edge assembled", slog.Any("stages", e.governor.Stages()))
	ok = true
	return e, nil
}

// newOriginProxy 把放行的请求转发到源站。客户端带来的 X-Forwarded-For 保留，
// 由代理追加直连地址。源站自带的安全头先被剥离，响应上只留边缘写入的一份。
func newOriginProxy(origin string, envelope *xsecure.Holder, logger xlog.Logger) (http.Handler, error) {
	target, err := url.Parse(origin)
	if err != nil {
		return nil, fmt.Errorf("parse origin: %w", err)
	}
	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.Out.Header["X-Forwarded-For"] = pr.In.Header["X-Forwarded-For"]
			pr.SetURL(target)
			pr.SetXForwarded()
			pr.Out.Host = pr.In.Host
		},
		ModifyResponse: func(resp *http.Response) error {
			envelope.Load().Strip(resp.Header)
			return nil
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			if errors.Is(err, context.Canceled) {
				return
			}
			logger.Error(r.Context(), "origin request failed",
				xlog.Err(err), slog.String("path", r.URL.Path))
			w.WriteHeader(http.StatusBadGateway)
		},
	}, nil
}
