// Package xstore 提供共享计数存储：带过期的原子自增、带 TTL 的读写、
// 以及按时间窗口记录请求时间戳。
//
// 所有跨请求的治理状态（配额计数、封禁标记、时间戳窗口、缓存响应）都保存在 Store 中，
// 治理层本身不持有进程内状态，可以水平扩展。
//
// 实现：
//   - NewRedis：基于 go-redis UniversalClient，单键操作通过 Lua 脚本保证原子性
//   - NewMemory：单进程实现，用于测试和单实例开发环境
//   - NewGuarded：熔断器装饰，存储持续失败时快速返回 ErrUnavailable
//
// 每次存储调用都有独立的超时上限（默认 50ms），超时视为存储不可用，
// 由调用方决定降级策略。
package xstore
