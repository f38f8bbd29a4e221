package edgeconf

import (
	"errors"
	"io/fs"

	"github.com/joho/godotenv"

	"github.com/omeyang/xedge/pkg/config/xconf"
)

// LoadDotEnv 把 .env 文件写入进程环境，不覆盖已有变量。不存在的文件被忽略。
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

// Source 打开配置源。path 为空时只使用默认值和环境变量，返回的 Config 不可重载。
func Source(path string, opts ...xconf.Option) (xconf.Config, error) {
	opts = append([]xconf.Option{xconf.WithEnv(EnvPrefix)}, opts...)
	if path == "" {
		return xconf.NewFromBytes(nil, xconf.FormatYAML, opts...)
	}
	return xconf.New(path, opts...)
}

// Decode 在默认值之上解码 src 并校验
func Decode(src xconf.Config) (*Config, error) {
	cfg := Default()
	if err := src.Unmarshal("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Load 打开配置源并解码
func Load(path string, opts ...xconf.Option) (*Config, xconf.Config, error) {
	src, err := Source(path, opts...)
	if err != nil {
		return nil, nil, err
	}
	cfg, err := Decode(src)
	if err != nil {
		return nil, nil, err
	}
	return cfg, src, nil
}
