package xlog

import (
	"log/slog"
	"time"
)

// =============================================================================
// 常用属性 Key 常量
// =============================================================================

const (
	KeyError     = "error"
	KeyDuration  = "duration"
	KeyComponent = "component"
	KeyStage     = "stage"
	KeyClient    = "client"
	KeyPath      = "path"
	KeyMethod    = "method"
	KeyRequestID = "request_id"

	// KeyDegraded 降级标记。依赖不可用导致放行时设为 true。
	KeyDegraded = "degraded"
)

// Err 创建错误属性，err 为 nil 时返回空属性（会被 slog 忽略）。
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// Duration 创建耗时属性
func Duration(d time.Duration) slog.Attr {
	return slog.Duration(KeyDuration, d)
}

// Component 创建组件名属性
func Component(name string) slog.Attr {
	return slog.String(KeyComponent, name)
}

// Stage 创建治理阶段属性
func Stage(name string) slog.Attr {
	return slog.String(KeyStage, name)
}

// Client 创建客户端标识属性
func Client(id string) slog.Attr {
	return slog.String(KeyClient, id)
}

// Degraded 创建降级标记属性
func Degraded() slog.Attr {
	return slog.Bool(KeyDegraded, true)
}
