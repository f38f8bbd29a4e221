package xsecure

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// HeaderSetVersion 当前安全头集合的版本
const HeaderSetVersion = "2024-06"

// HeaderVersion 响应中标识安全头版本的头
const HeaderVersion = "X-Security-Headers"

// DefaultHeaders 固定安全头集合
var DefaultHeaders = map[string]string{
	"Content-Security-Policy":   "default-src 'self'; frame-ancestors 'none'; object-src 'none'; base-uri 'self'",
	"Strict-Transport-Security": "max-age=63072000; includeSubDomains; preload",
	"X-Content-Type-Options":    "nosniff",
	"X-Frame-Options":           "DENY",
	"Referrer-Policy":           "strict-origin-when-cross-origin",
	"Permissions-Policy":        "camera=(), microphone=(), geolocation=()",
}

// Verdict CORS 检查结果
type Verdict struct {
	Allowed bool

	// Status 非零时请求在本阶段结束：403 拒绝或 204 预检
	Status int
	Reason string
}

// Terminal 是否应结束请求
func (v Verdict) Terminal() bool {
	return v.Status != 0
}

// Envelope 安全头与 CORS，创建后只读
type Envelope struct {
	headers     map[string]string
	apiPrefixes []string
	allowAll    bool
	origins     map[string]struct{}
	opts        *options
}

// New 创建 Envelope。allowedOrigins 为 scheme://host[:port]，大小写不敏感；"*" 允许所有来源。
func New(allowedOrigins []string, opts ...Option) (*Envelope, error) {
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}

	e := &Envelope{
		headers:     DefaultHeaders,
		apiPrefixes: o.apiPrefixes,
		origins:     make(map[string]struct{}, len(allowedOrigins)),
		opts:        o,
	}
	if o.headers != nil {
		e.headers = o.headers
	}
	for _, raw := range allowedOrigins {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if raw == "*" {
			e.allowAll = true
			continue
		}
		origin, ok := normalizeOrigin(raw)
		if !ok {
			return nil, &OriginError{Origin: raw}
		}
		e.origins[origin] = struct{}{}
	}
	return e, nil
}

// Apply 写入安全头，对所有响应生效
func (e *Envelope) Apply(w http.ResponseWriter) {
	h := w.Header()
	for k, v := range e.headers {
		h.Set(k, v)
	}
	h.Set(HeaderVersion, HeaderSetVersion)
}

// Strip 删除上游响应中与安全头集合同名的头，随后由 Apply 写入唯一值
func (e *Envelope) Strip(h http.Header) {
	for k := range e.headers {
		h.Del(k)
	}
	h.Del(HeaderVersion)
}

// IsAPIPath path 是否在 API 前缀下
func (e *Envelope) IsAPIPath(path string) bool {
	for _, p := range e.apiPrefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// AllowsOrigin origin 是否在白名单内
func (e *Envelope) AllowsOrigin(origin string) bool {
	if e.allowAll {
		return true
	}
	n, ok := normalizeOrigin(origin)
	if !ok {
		return false
	}
	_, found := e.origins[n]
	return found
}

// CheckCORS 对 API 路径上的跨域请求执行白名单，并写入对应的 CORS 响应头
func (e *Envelope) CheckCORS(w http.ResponseWriter, r *http.Request) Verdict {
	origin := r.Header.Get("Origin")
	if origin == "" || !e.IsAPIPath(r.URL.Path) {
		return Verdict{Allowed: true}
	}
	if !e.AllowsOrigin(origin) {
		return Verdict{Status: http.StatusForbidden, Reason: "origin not allowed"}
	}

	h := w.Header()
	h.Set("Access-Control-Allow-Origin", origin)
	h.Add("Vary", "Origin")
	if e.opts.allowCredentials {
		h.Set("Access-Control-Allow-Credentials", "true")
	}

	if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
		h.Set("Access-Control-Allow-Methods", strings.Join(e.opts.allowMethods, ", "))
		h.Set("Access-Control-Allow-Headers", strings.Join(e.opts.allowHeaders, ", "))
		h.Set("Access-Control-Max-Age", strconv.Itoa(int(e.opts.maxAge/time.Second)))
		return Verdict{Allowed: true, Status: http.StatusNoContent, Reason: "preflight"}
	}
	return Verdict{Allowed: true}
}

// normalizeOrigin 统一为小写 scheme://host[:port]
func normalizeOrigin(raw string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", false
	}
	return strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host), true
}
