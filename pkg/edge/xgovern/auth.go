package xgovern

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/omeyang/xedge/pkg/resilience/xbreaker"
)

// Authenticator 外部认证。返回 nil 放行；ErrUnauthorized、ErrForbidden 分别映射为
// 401、403；其他错误视为认证服务不可用，返回 503。
type Authenticator interface {
	Authenticate(ctx context.Context, r *http.Request) error
}

// AuthenticatorFunc 函数形式的 Authenticator
type AuthenticatorFunc func(ctx context.Context, r *http.Request) error

// Authenticate 实现 Authenticator
func (f AuthenticatorFunc) Authenticate(ctx context.Context, r *http.Request) error {
	return f(ctx, r)
}

// =============================================================================
// ForwardAuth
// =============================================================================

// 转发给认证服务的原始请求信息
const (
	HeaderForwardedMethod = "X-Forwarded-Method"
	HeaderForwardedURI    = "X-Forwarded-Uri"
)

// DefaultAuthTimeout 认证请求默认超时
const DefaultAuthTimeout = 2 * time.Second

// ForwardAuth 把认证委托给一个 HTTP 端点：2xx 放行，401/403 透传，其他结果视为不可用
type ForwardAuth struct {
	endpoint string
	client   *http.Client
	headers  []string
	breaker  *xbreaker.Breaker
}

// ForwardAuthOption ForwardAuth 选项
type ForwardAuthOption func(*ForwardAuth)

// WithAuthClient 自定义 HTTP 客户端
func WithAuthClient(c *http.Client) ForwardAuthOption {
	return func(f *ForwardAuth) {
		if c != nil {
			f.client = c
		}
	}
}

// WithAuthHeaders 转发给认证服务的请求头，默认 Authorization 和 Cookie
func WithAuthHeaders(names ...string) ForwardAuthOption {
	return func(f *ForwardAuth) { f.headers = names }
}

// WithAuthBreaker 认证调用经过熔断器。熔断打开时直接返回 ErrAuthUnavailable。
func WithAuthBreaker(b *xbreaker.Breaker) ForwardAuthOption {
	return func(f *ForwardAuth) { f.breaker = b }
}

// NewAuthBreaker 创建认证熔断器，401/403 不计为失败
func NewAuthBreaker(name string, opts ...xbreaker.BreakerOption) *xbreaker.Breaker {
	success := xbreaker.SuccessFunc(func(err error) bool {
		return err == nil || errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrForbidden)
	})
	return xbreaker.NewBreaker(name, append([]xbreaker.BreakerOption{xbreaker.WithSuccessPolicy(success)}, opts...)...)
}

// NewForwardAuth 创建 ForwardAuth
func NewForwardAuth(endpoint string, opts ...ForwardAuthOption) (*ForwardAuth, error) {
	if endpoint == "" {
		return nil, ErrEmptyEndpoint
	}
	f := &ForwardAuth{
		endpoint: endpoint,
		client:   &http.Client{Timeout: DefaultAuthTimeout},
		headers:  []string{"Authorization", "Cookie"},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f, nil
}

// Authenticate 实现 Authenticator
func (f *ForwardAuth) Authenticate(ctx context.Context, r *http.Request) error {
	if f.breaker == nil {
		return f.call(ctx, r)
	}
	err := f.breaker.Do(ctx, func() error { return f.call(ctx, r) })
	if xbreaker.IsBreakerError(err) {
		return fmt.Errorf("%w: %w", ErrAuthUnavailable, err)
	}
	return err
}

func (f *ForwardAuth) call(ctx context.Context, r *http.Request) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.endpoint, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrAuthUnavailable, err)
	}
	for _, name := range f.headers {
		if vs := r.Header.Values(name); len(vs) > 0 {
			req.Header[http.CanonicalHeaderKey(name)] = vs
		}
	}
	req.Header.Set(HeaderForwardedMethod, r.Method)
	req.Header.Set(HeaderForwardedURI, r.URL.RequestURI())

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrAuthUnavailable, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrUnauthorized
	case resp.StatusCode == http.StatusForbidden:
		return ErrForbidden
	default:
		return fmt.Errorf("%w: status %d", ErrAuthUnavailable, resp.StatusCode)
	}
}
