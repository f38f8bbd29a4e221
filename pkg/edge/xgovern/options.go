package xgovern

import (
	"github.com/omeyang/xedge/pkg/edge/xabuse"
	"github.com/omeyang/xedge/pkg/edge/xident"
	"github.com/omeyang/xedge/pkg/edge/xquota"
	"github.com/omeyang/xedge/pkg/edge/xrespcache"
	"github.com/omeyang/xedge/pkg/edge/xsecure"
	"github.com/omeyang/xedge/pkg/observability/xlog"
	"github.com/omeyang/xedge/pkg/observability/xmetrics"
)

type options struct {
	ident    *xident.Resolver
	guard    *xabuse.Guard
	enforcer *xquota.Enforcer
	envelope *xsecure.Holder
	auth     Authenticator
	cache    *xrespcache.Cache
	extra    []Stage
	logger   xlog.Logger
	observer xmetrics.Observer
	metrics  *Metrics
}

// Option Governor 选项。未配置的阶段被跳过。
type Option func(*options)

// WithIdentity 客户端标识解析器，默认 xident.New()
func WithIdentity(r *xident.Resolver) Option {
	return func(o *options) { o.ident = r }
}

// WithAbuseGuard 启用滥用防护阶段
func WithAbuseGuard(g *xabuse.Guard) Option {
	return func(o *options) { o.guard = g }
}

// WithQuota 启用配额阶段
func WithQuota(e *xquota.Enforcer) Option {
	return func(o *options) { o.enforcer = e }
}

// WithEnvelope 写入安全头并启用 CORS 阶段
func WithEnvelope(e *xsecure.Envelope) Option {
	return func(o *options) {
		if e != nil {
			o.envelope = xsecure.NewHolder(e)
		}
	}
}

// WithEnvelopeHolder 同 WithEnvelope，白名单可随配置重载替换
func WithEnvelopeHolder(h *xsecure.Holder) Option {
	return func(o *options) { o.envelope = h }
}

// WithAuthenticator 启用认证阶段
func WithAuthenticator(a Authenticator) Option {
	return func(o *options) { o.auth = a }
}

// WithCache 对可缓存的 GET 启用响应缓存
func WithCache(c *xrespcache.Cache) Option {
	return func(o *options) { o.cache = c }
}

// WithStages 在内置阶段之后追加自定义阶段
func WithStages(stages ...Stage) Option {
	return func(o *options) { o.extra = append(o.extra, stages...) }
}

// WithLogger 日志
func WithLogger(l xlog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithObserver 请求级 trace
func WithObserver(obs xmetrics.Observer) Option {
	return func(o *options) { o.observer = obs }
}

// WithMetrics 治理指标
func WithMetrics(m *Metrics) Option {
	return func(o *options) { o.metrics = m }
}
