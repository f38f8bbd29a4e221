package xconf

// Options 配置选项
type Options struct {
	Delim string
	Tag   string

	// EnvPrefix 非空时启用环境变量覆盖
	EnvPrefix string

	// Environ 返回环境变量列表，默认 os.Environ
	Environ func() []string
}

// Option 配置选项函数
type Option func(*Options)

func defaultOptions() *Options {
	return &Options{
		Delim: ".",
		Tag:   "koanf",
	}
}

// WithEnv 启用前缀为 prefix 的环境变量覆盖
func WithEnv(prefix string) Option {
	return func(o *Options) {
		o.EnvPrefix = prefix
	}
}

// WithEnviron 替换环境变量来源，用于测试
func WithEnviron(fn func() []string) Option {
	return func(o *Options) {
		o.Environ = fn
	}
}
