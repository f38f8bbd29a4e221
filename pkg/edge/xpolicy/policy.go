package xpolicy

import (
	"fmt"
	"strings"
	"time"
)

// QuotaPolicy 每个时间窗口内允许的请求数
type QuotaPolicy struct {
	RoutePrefix string        `koanf:"route_prefix" json:"route_prefix"`
	Limit       int64         `koanf:"limit" json:"limit"`
	Window      time.Duration `koanf:"window" json:"window"`
}

// CachePolicy 响应缓存策略
type CachePolicy struct {
	RoutePrefix string        `koanf:"route_prefix" json:"route_prefix"`
	TTL         time.Duration `koanf:"ttl" json:"ttl"`
	Cacheable   bool          `koanf:"cacheable" json:"cacheable"`
}

// Table 策略表，声明顺序有意义
type Table struct {
	Quota []QuotaPolicy `koanf:"quota" json:"quota"`
	Cache []CachePolicy `koanf:"cache" json:"cache"`
}

// DefaultQuota 兜底配额策略
var DefaultQuota = QuotaPolicy{RoutePrefix: "/", Limit: 600, Window: time.Minute}

func (p QuotaPolicy) validate() error {
	if err := validatePrefix(p.RoutePrefix); err != nil {
		return err
	}
	if p.Limit <= 0 {
		return fmt.Errorf("%w: quota %q limit %d", ErrInvalidPolicy, p.RoutePrefix, p.Limit)
	}
	if p.Window < time.Second {
		return fmt.Errorf("%w: quota %q window %s shorter than 1s", ErrInvalidPolicy, p.RoutePrefix, p.Window)
	}
	return nil
}

func (p CachePolicy) validate() error {
	if err := validatePrefix(p.RoutePrefix); err != nil {
		return err
	}
	if p.Cacheable && p.TTL < time.Second {
		return fmt.Errorf("%w: cache %q ttl %s shorter than 1s", ErrInvalidPolicy, p.RoutePrefix, p.TTL)
	}
	return nil
}

func validatePrefix(prefix string) error {
	if !strings.HasPrefix(prefix, "/") {
		return fmt.Errorf("%w: route prefix %q must start with /", ErrInvalidPolicy, prefix)
	}
	return nil
}
