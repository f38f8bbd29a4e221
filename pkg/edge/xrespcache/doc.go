// Package xrespcache 为可缓存的 GET 请求提供共享响应缓存。
//
// 缓存 key 由路径和按 key 排序后的查询参数计算，参数顺序不同的同一请求
// 命中同一条记录。记录的过期完全交给存储层 TTL。
//
// 只有 2xx 且回源完整结束的响应会被写入；请求被取消时不写。
//
// 同一 key 的并发未命中默认通过 singleflight 合并为一次回源，
// 首个请求的回源在脱离取消链的 context 上执行，它被取消不会让等待者失败。
// WithCoalescing(false) 恢复为每个未命中各自回源。
package xrespcache
