package xgovern

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/omeyang/xedge/pkg/edge/xident"
	"github.com/omeyang/xedge/pkg/edge/xpolicy"
	"github.com/omeyang/xedge/pkg/observability/xlog"
	"github.com/omeyang/xedge/pkg/observability/xmetrics"
)

// 响应头
const (
	HeaderRequestID = "X-Request-ID"
	HeaderStage     = "X-Edge-Stage"
)

// Governor 请求治理入口
type Governor struct {
	policies *xpolicy.Holder
	stages   []Stage
	opts     *options
}

// New 创建 Governor。policies 持有当前策略表，可被配置热更新替换。
func New(policies *xpolicy.Holder, opts ...Option) (*Governor, error) {
	if policies == nil || policies.Load() == nil {
		return nil, ErrNilPolicies
	}
	o := &options{logger: xlog.Discard()}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	if o.envelope != nil && o.envelope.Load() == nil {
		o.envelope = nil
	}
	if o.ident == nil {
		ident, err := xident.New()
		if err != nil {
			return nil, err
		}
		o.ident = ident
	}

	g := &Governor{policies: policies, opts: o}
	if o.guard != nil {
		g.stages = append(g.stages, abuseStage{guard: o.guard})
	}
	if o.enforcer != nil {
		g.stages = append(g.stages, quotaStage{enforcer: o.enforcer})
	}
	if o.envelope != nil {
		g.stages = append(g.stages, securityStage{envelope: o.envelope})
	}
	if o.auth != nil {
		g.stages = append(g.stages, authStage{auth: o.auth})
	}
	g.stages = append(g.stages, o.extra...)
	return g, nil
}

// Stages 按执行顺序返回阶段名称
func (g *Governor) Stages() []string {
	names := make([]string, len(g.stages))
	for i, s := range g.stages {
		names[i] = s.Name()
	}
	return names
}

// Handler 用治理链包装 origin
func (g *Governor) Handler(origin http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := xmetrics.Start(r.Context(), g.opts.observer, xmetrics.SpanOptions{
			Component: "xgovern",
			Operation: "request",
			Kind:      xmetrics.KindServer,
			Attrs: []xmetrics.Attr{
				xmetrics.String("http.method", r.Method),
				xmetrics.String("http.path", r.URL.Path),
			},
		})

		reqID := r.Header.Get(HeaderRequestID)
		if reqID == "" {
			reqID = uuid.NewString()
			r.Header.Set(HeaderRequestID, reqID)
		}
		r = r.WithContext(ctx)
		w.Header().Set(HeaderRequestID, reqID)
		if g.opts.envelope != nil {
			g.opts.envelope.Load().Apply(w)
		}

		ex := &Exchange{
			Request:   r,
			Writer:    w,
			Client:    g.opts.ident.Resolve(r),
			Policies:  g.policies.Load(),
			RequestID: reqID,
		}
		logger := g.opts.logger.With(
			slog.String(xlog.KeyRequestID, reqID),
			xlog.Client(ex.Client),
		)

		for _, st := range g.stages {
			v := g.evaluate(ctx, logger, st, ex)
			if v.Terminal() {
				g.respond(w, st.Name(), v)
				span.End(xmetrics.Result{Attrs: []xmetrics.Attr{
					xmetrics.String("edge.stage", st.Name()),
					xmetrics.Int("http.status_code", v.Status),
				}})
				return
			}
		}

		hit := g.serve(ctx, w, r, ex.Policies, origin)
		span.End(xmetrics.Result{Attrs: []xmetrics.Attr{xmetrics.Bool("edge.cache_hit", hit)}})
	})
}

func (g *Governor) evaluate(ctx context.Context, logger xlog.Logger, st Stage, ex *Exchange) Verdict {
	start := time.Now()
	v := st.Evaluate(ctx, ex)
	elapsed := time.Since(start)
	g.opts.metrics.recordDecision(ctx, st.Name(), v, elapsed)

	switch {
	case !v.Allow:
		logger.Info(ctx, "request denied",
			xlog.Stage(st.Name()), slog.Int("status", v.Status),
			slog.String("reason", v.Reason), xlog.Duration(elapsed))
	case v.Degraded:
		logger.Warn(ctx, "stage degraded, request allowed",
			xlog.Stage(st.Name()), xlog.Degraded(), xlog.Duration(elapsed))
	default:
		logger.Debug(ctx, "stage allowed", xlog.Stage(st.Name()), xlog.Duration(elapsed))
	}
	return v
}

// serve 所有阶段放行后交给缓存或源站，返回是否命中缓存
func (g *Governor) serve(ctx context.Context, w http.ResponseWriter, r *http.Request, policies *xpolicy.Resolver, origin http.Handler) bool {
	if g.opts.cache != nil {
		if cp, ok := policies.Cache(r.Method, r.URL.Path); ok {
			lk := g.opts.cache.Serve(w, r, cp, origin)
			g.opts.metrics.recordCache(ctx, lk.Hit, lk.Degraded)
			return lk.Hit
		}
	}
	origin.ServeHTTP(w, r)
	return false
}

type errorBody struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func (g *Governor) respond(w http.ResponseWriter, stage string, v Verdict) {
	h := w.Header()
	h.Set(HeaderStage, stage)
	if v.Allow {
		w.WriteHeader(v.Status)
		return
	}
	h.Set("Content-Type", "application/json; charset=utf-8")
	h.Set("Cache-Control", "no-store")
	w.WriteHeader(v.Status)
	_ = json.NewEncoder(w).Encode(errorBody{Error: v.Reason, RequestID: h.Get(HeaderRequestID)})
}
