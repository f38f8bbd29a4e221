package xsecure

import "time"

type options struct {
	apiPrefixes      []string
	headers          map[string]string
	allowCredentials bool
	allowMethods     []string
	allowHeaders     []string
	maxAge           time.Duration
}

// Option Envelope 选项
type Option func(*options)

func defaultOptions() *options {
	return &options{
		apiPrefixes:      []string{"/api/"},
		allowCredentials: true,
		allowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		allowHeaders:     []string{"Authorization", "Content-Type", "X-Request-ID"},
		maxAge:           10 * time.Minute,
	}
}

// WithAPIPrefixes 需要执行 CORS 白名单的路径前缀，默认 "/api/"
func WithAPIPrefixes(prefixes ...string) Option {
	return func(o *options) {
		if len(prefixes) > 0 {
			o.apiPrefixes = prefixes
		}
	}
}

// WithHeaders 替换安全头集合
func WithHeaders(h map[string]string) Option {
	return func(o *options) { o.headers = h }
}

// WithAllowCredentials 是否返回 Access-Control-Allow-Credentials
func WithAllowCredentials(enabled bool) Option {
	return func(o *options) { o.allowCredentials = enabled }
}

// WithPreflight 预检响应的方法、请求头与缓存时间
func WithPreflight(methods, headers []string, maxAge time.Duration) Option {
	return func(o *options) {
		if len(methods) > 0 {
			o.allowMethods = methods
		}
		if len(headers) > 0 {
			o.allowHeaders = headers
		}
		if maxAge > 0 {
			o.maxAge = maxAge
		}
	}
}
