// Package storage 提供数据存储相关的子包。
//
// 子包列表：
//   - xstore: 共享计数器存储，Redis 与进程内两种实现，可叠加熔断器
package storage
