package edgeconf

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/omeyang/xedge/pkg/edge/xident"
	"github.com/omeyang/xedge/pkg/edge/xpolicy"
	"github.com/omeyang/xedge/pkg/edge/xquota"
	"github.com/omeyang/xedge/pkg/edge/xsecure"
	"github.com/omeyang/xedge/pkg/observability/xlog"
)

// ErrInvalidConfig 配置校验失败
var ErrInvalidConfig = errors.New("edgeconf: invalid config")

// Validate 校验全部字段，返回所有问题
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if c.Listen == "" {
		add("listen is required")
	}
	if u, err := url.Parse(c.Origin); err != nil || u.Scheme == "" || u.Host == "" {
		add("origin must be an absolute URL, got %q", c.Origin)
	}
	if c.ShutdownTimeout <= 0 {
		add("shutdown_timeout must be positive")
	}
	if !c.Store.Memory && len(c.Redis.Addrs) == 0 {
		add("redis.addrs is required unless store.memory is set")
	}
	if c.Store.OpTimeout <= 0 {
		add("store.op_timeout must be positive")
	}
	if c.Abuse.BurstThreshold <= 0 || c.Abuse.BlockDuration <= 0 || c.Abuse.TrackWindow <= 0 {
		add("abuse thresholds and durations must be positive")
	}
	switch xquota.Algorithm(c.Quota.Algorithm) {
	case xquota.AlgorithmFixedWindow:
	case xquota.AlgorithmGCRA:
		if c.Store.Memory {
			add("quota.algorithm gcra requires redis")
		}
	default:
		add("quota.algorithm %q unknown", c.Quota.Algorithm)
	}
	switch xquota.FallbackStrategy(c.Quota.Fallback) {
	case xquota.FallbackOpen, xquota.FallbackLocal:
	default:
		add("quota.fallback %q unknown", c.Quota.Fallback)
	}
	if c.Quota.ExpectedInstances <= 0 {
		add("quota.expected_instances must be positive")
	}
	if _, err := xlog.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.IdentityResolver(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Resolver(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Envelope(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}

// IdentityResolver 由标识配置构建客户端标识解析器
func (c *Config) IdentityResolver() (*xident.Resolver, error) {
	return xident.New(
		xident.WithSignatureHeader(c.Identity.SignatureHeader),
		xident.WithTrustedProxies(c.Identity.TrustedProxies...),
	)
}

// Resolver 由策略表构建策略解析器
func (c *Config) Resolver() (*xpolicy.Resolver, error) {
	return xpolicy.New(c.Policies)
}

// Envelope 由安全配置构建 Envelope
func (c *Config) Envelope() (*xsecure.Envelope, error) {
	return xsecure.New(c.Security.AllowedOrigins, xsecure.WithAPIPrefixes(c.Security.APIPrefixes...))
}
