package xconf

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/v2"
)

// applyEnv 将 PREFIX_A__B=v 写入 koanf 的 a.b
func applyEnv(k *koanf.Koanf, o *Options) error {
	if o.EnvPrefix == "" {
		return nil
	}
	prefix := strings.ToUpper(o.EnvPrefix)
	if !strings.HasSuffix(prefix, "_") {
		prefix += "_"
	}

	p := env.Provider(o.Delim, env.Opt{
		Prefix: prefix,
		TransformFunc: func(name, value string) (string, any) {
			return EnvKey(strings.TrimPrefix(name, prefix), o.Delim), value
		},
		EnvironFunc: o.Environ,
	})
	if err := k.Load(p, nil); err != nil {
		return fmt.Errorf("%w: env: %w", ErrLoadFailed, err)
	}
	return nil
}

// EnvKey 将去掉前缀的环境变量名转换为配置路径，返回空串表示忽略该变量
//
//	ABUSE__BURST_THRESHOLD → abuse.burst_threshold
func EnvKey(name, delim string) string {
	name = strings.Trim(strings.ToLower(name), "_")
	if name == "" {
		return ""
	}
	return strings.ReplaceAll(name, "__", delim)
}
