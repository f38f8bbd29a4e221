// Package xmetrics 提供统一的观测抽象（Observer/Span），默认实现基于 OpenTelemetry。
//
// 每个 Span 结束时同时产生一条 trace span 和两项指标：
//   - xedge.operation.total{component,operation,status}
//   - xedge.operation.duration{component,operation,status}（秒）
//
// 未配置 Observer 时使用 NoopObserver，调用方无需判空：
//
//	ctx, span := xmetrics.Start(ctx, observer, xmetrics.SpanOptions{
//		Component: "xgovern",
//		Operation: "request",
//		Kind:      xmetrics.KindServer,
//	})
//	defer span.End(xmetrics.Result{Err: err})
package xmetrics
