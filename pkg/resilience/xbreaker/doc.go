// Package xbreaker 提供基于 sony/gobreaker/v2 的熔断器。
//
// 边缘治理层用它保护共享计数存储：存储连续失败后熔断打开，
// 后续调用不再发起网络往返，直接返回 BreakerError，由调用方走放行降级。
//
// # 熔断器状态
//
//   - StateClosed：正常状态，请求正常通过
//   - StateOpen：熔断状态，请求直接失败
//   - StateHalfOpen：探测状态，允许一个探测请求通过
package xbreaker
