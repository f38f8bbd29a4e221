// Package xabuse 实现滥用防护：按客户端维护 60 秒请求时间戳窗口，
// 突发超过阈值后写入封禁标记，封禁期内的请求一律拒绝。
//
// 状态机：Clear → Tracking → Blocked → (TTL 到期) Clear。
// 封禁只由 TTL 解除，期间不重新评估突发条件。
//
// 存储不可达时放行（fail open），Decision.Degraded 置为 true 并记录告警日志，
// 避免依赖故障演变为全站不可用。
package xabuse
