package xgovern

import (
	"context"
	"net/http"

	"github.com/omeyang/xedge/pkg/edge/xpolicy"
)

// 阶段名称
const (
	StageAbuse    = "abuse"
	StageQuota    = "quota"
	StageSecurity = "security"
	StageAuth     = "auth"
	StageCache    = "cache"
)

// Exchange 一次请求在各阶段之间共享的上下文
type Exchange struct {
	Request *http.Request

	// Writer 阶段可以在这里追加响应头，不应写响应体
	Writer http.ResponseWriter

	// Client 客户端标识
	Client string

	// Policies 本次请求使用的策略快照，热更新不影响进行中的请求
	Policies *xpolicy.Resolver

	RequestID string
}

// Verdict 阶段裁决
type Verdict struct {
	Allow bool

	// Status 非零表示请求在此阶段结束
	Status int
	Reason string

	// Degraded 依赖不可用导致的放行
	Degraded bool
}

// Allow 放行
func Allow() Verdict {
	return Verdict{Allow: true}
}

// Deny 拒绝并以 status 结束请求
func Deny(reason string, status int) Verdict {
	return Verdict{Status: status, Reason: reason}
}

// Terminal 请求是否在此阶段结束
func (v Verdict) Terminal() bool {
	return !v.Allow || v.Status != 0
}

// Stage 治理阶段
type Stage interface {
	Name() string
	Evaluate(ctx context.Context, ex *Exchange) Verdict
}

// StageFunc 函数形式的 Stage
type StageFunc struct {
	StageName string
	Fn        func(ctx context.Context, ex *Exchange) Verdict
}

// Name 实现 Stage
func (s StageFunc) Name() string { return s.StageName }

// Evaluate 实现 Stage
func (s StageFunc) Evaluate(ctx context.Context, ex *Exchange) Verdict { return s.Fn(ctx, ex) }
