// Package xlog 提供基于 log/slog 的结构化日志。
//
// 所有日志方法都以 context.Context 为第一个参数，属性只接受 slog.Attr。
// 通过 Builder 构建 Logger，Build 返回的 cleanup 用于关闭轮转文件。
//
//	logger, cleanup, err := xlog.New().
//		SetLevelString("info").
//		SetFormat("json").
//		Build()
//	if err != nil {
//		return err
//	}
//	defer cleanup()
//
// 降级事件统一通过 Degraded 属性标记，便于日志检索：
//
//	logger.Warn(ctx, "store unavailable", xlog.Stage("quota"), xlog.Degraded(), xlog.Err(err))
package xlog
