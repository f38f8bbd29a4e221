package xgovern

import (
	"context"
	"errors"
	"net/http"

	"github.com/omeyang/xedge/pkg/edge/xabuse"
	"github.com/omeyang/xedge/pkg/edge/xquota"
	"github.com/omeyang/xedge/pkg/edge/xsecure"
)

type abuseStage struct {
	guard *xabuse.Guard
}

func (abuseStage) Name() string { return StageAbuse }

func (s abuseStage) Evaluate(ctx context.Context, ex *Exchange) Verdict {
	d := s.guard.Check(ctx, ex.Client)
	if !d.Allowed {
		return Deny(d.Reason, http.StatusForbidden)
	}
	return Verdict{Allow: true, Degraded: d.Degraded}
}

type quotaStage struct {
	enforcer *xquota.Enforcer
}

func (quotaStage) Name() string { return StageQuota }

func (s quotaStage) Evaluate(ctx context.Context, ex *Exchange) Verdict {
	policy := ex.Policies.Quota(ex.Request.URL.Path)
	res := s.enforcer.Allow(ctx, ex.Client, policy)
	res.SetHeaders(ex.Writer)
	if !res.Allowed {
		v := Deny("quota exceeded", http.StatusTooManyRequests)
		v.Degraded = res.Degraded
		return v
	}
	return Verdict{Allow: true, Degraded: res.Degraded}
}

type securityStage struct {
	envelope *xsecure.Holder
}

func (securityStage) Name() string { return StageSecurity }

func (s securityStage) Evaluate(_ context.Context, ex *Exchange) Verdict {
	v := s.envelope.Load().CheckCORS(ex.Writer, ex.Request)
	if !v.Allowed {
		return Deny(v.Reason, v.Status)
	}
	// 预检请求放行但在此结束
	return Verdict{Allow: true, Status: v.Status, Reason: v.Reason}
}

type authStage struct {
	auth Authenticator
}

func (authStage) Name() string { return StageAuth }

func (s authStage) Evaluate(ctx context.Context, ex *Exchange) Verdict {
	err := s.auth.Authenticate(ctx, ex.Request)
	switch {
	case err == nil:
		return Allow()
	case errors.Is(err, ErrUnauthorized):
		return Deny("unauthorized", http.StatusUnauthorized)
	case errors.Is(err, ErrForbidden):
		return Deny("forbidden", http.StatusForbidden)
	default:
		return Deny("auth unavailable", http.StatusServiceUnavailable)
	}
}
