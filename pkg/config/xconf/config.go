package xconf

import (
	"strings"

	"github.com/knadh/koanf/v2"
)

// Format 配置格式
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// Config 配置接口
type Config interface {
	// Client 返回底层 koanf 实例，Reload 后会变化，不要长期持有
	Client() *koanf.Koanf

	// Unmarshal 将 path 下的配置解析到 target，path 为空表示根
	Unmarshal(path string, target any) error

	// Reload 重新读取文件并重新应用环境变量覆盖
	Reload() error

	// Path 配置文件路径，字节数据创建时为空
	Path() string

	Format() Format
}

// StringList 字符串列表。配置文件中写数组，环境变量中写逗号分隔字符串。
type StringList []string

// UnmarshalText 解析逗号分隔字符串，忽略空项
func (l *StringList) UnmarshalText(text []byte) error {
	parts := strings.Split(string(text), ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	*l = out
	return nil
}
