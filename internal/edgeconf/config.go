package edgeconf

import (
	"time"

	"github.com/omeyang/xedge/pkg/config/xconf"
	"github.com/omeyang/xedge/pkg/edge/xpolicy"
	"github.com/omeyang/xedge/pkg/observability/xlog"
)

// EnvPrefix 环境变量前缀
const EnvPrefix = "XEDGE"

// Config xedge 进程配置
type Config struct {
	Listen          string        `koanf:"listen"`
	Origin          string        `koanf:"origin"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	Redis    RedisConfig    `koanf:"redis"`
	Store    StoreConfig    `koanf:"store"`
	Identity IdentityConfig `koanf:"identity"`
	Abuse    AbuseConfig    `koanf:"abuse"`
	Quota    QuotaConfig    `koanf:"quota"`
	Cache    CacheConfig    `koanf:"cache"`
	Security SecurityConfig `koanf:"security"`
	Auth     AuthConfig     `koanf:"auth"`
	Policies xpolicy.Table  `koanf:"policies"`
	Log      LogConfig      `koanf:"log"`
}

// RedisConfig 共享存储。多个地址时使用集群或哨兵客户端。
type RedisConfig struct {
	Addrs      xconf.StringList `koanf:"addrs"`
	MasterName string           `koanf:"master_name"`
	Username   string           `koanf:"username"`
	Password   string           `koanf:"password"`
	DB         int              `koanf:"db"`
}

// StoreConfig 计数器存储行为
type StoreConfig struct {
	// Memory 使用进程内存储，仅用于单实例开发
	Memory    bool          `koanf:"memory"`
	OpTimeout time.Duration `koanf:"op_timeout"`
	KeyPrefix string        `koanf:"key_prefix"`

	// Breaker 存储调用经过熔断器
	Breaker        bool          `koanf:"breaker"`
	BreakerTimeout time.Duration `koanf:"breaker_timeout"`
}

// IdentityConfig 客户端标识。TrustedProxies 为空时总是信任 X-Forwarded-For。
type IdentityConfig struct {
	SignatureHeader string           `koanf:"signature_header"`
	TrustedProxies  xconf.StringList `koanf:"trusted_proxies"`
}

// AbuseConfig 滥用防护
type AbuseConfig struct {
	BurstThreshold int           `koanf:"burst_threshold"`
	BlockDuration  time.Duration `koanf:"block_duration"`
	TrackWindow    time.Duration `koanf:"track_window"`
}

// QuotaConfig 配额执行
type QuotaConfig struct {
	Algorithm         string `koanf:"algorithm"`
	Fallback          string `koanf:"fallback"`
	ExpectedInstances int    `koanf:"expected_instances"`
}

// CacheConfig 响应缓存
type CacheConfig struct {
	Coalescing      bool             `koanf:"coalescing"`
	FillTimeout     time.Duration    `koanf:"fill_timeout"`
	HeaderWhitelist xconf.StringList `koanf:"header_whitelist"`
}

// SecurityConfig 安全头与跨域
type SecurityConfig struct {
	AllowedOrigins xconf.StringList `koanf:"allowed_origins"`
	APIPrefixes    xconf.StringList `koanf:"api_prefixes"`
}

// AuthConfig 外部认证，Endpoint 为空时不启用
type AuthConfig struct {
	Endpoint string        `koanf:"endpoint"`
	Timeout  time.Duration `koanf:"timeout"`
}

// LogConfig 日志
type LogConfig struct {
	Level    string        `koanf:"level"`
	Format   string        `koanf:"format"`
	File     string        `koanf:"file"`
	Rotation xlog.Rotation `koanf:"rotation"`
}

// Default 返回默认配置。策略表为空，解析时会补上兜底配额。
func Default() Config {
	return Config{
		Listen:          ":8080",
		ShutdownTimeout: 15 * time.Second,
		Redis: RedisConfig{
			Addrs: xconf.StringList{"127.0.0.1:6379"},
		},
		Store: StoreConfig{
			OpTimeout:      50 * time.Millisecond,
			KeyPrefix:      "xedge:",
			Breaker:        true,
			BreakerTimeout: 5 * time.Second,
		},
		Abuse: AbuseConfig{
			BurstThreshold: 300,
			BlockDuration:  time.Hour,
			TrackWindow:    time.Minute,
		},
		Quota: QuotaConfig{
			Algorithm:         "fixed_window",
			Fallback:          "open",
			ExpectedInstances: 1,
		},
		Cache: CacheConfig{
			Coalescing:  true,
			FillTimeout: 30 * time.Second,
		},
		Security: SecurityConfig{
			APIPrefixes: xconf.StringList{"/api/"},
		},
		Auth: AuthConfig{
			Timeout: 2 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}
