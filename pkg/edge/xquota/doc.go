// Package xquota 按路由前缀和客户端执行配额。
//
// 默认算法为固定窗口计数：
//
//	windowIndex = floor(now / window)
//	key         = quota:<prefix>:<client>:<windowIndex>
//	count <= limit 放行，否则拒绝
//
// 固定窗口在窗口边界两侧最多放行 2×limit 个请求，这是该算法的既定行为。
// 需要平滑限流时可通过 WithAlgorithm(AlgorithmGCRA) 切换到
// go-redis/redis_rate 的 GCRA 实现。
//
// 存储不可达时按降级策略处理：FallbackOpen 直接放行（默认），
// FallbackLocal 使用进程内令牌桶近似执行配额。两者都会把 Result.Degraded
// 置为 true 并记录告警日志。
package xquota
