// Package xident 从请求的连接元数据推导客户端标识。
//
// 标识 = xxhash64(首个转发地址 + "|" + 客户端签名)，输出 16 位十六进制。
// 同样的转发地址与签名总得到同样的标识；共享出口地址的不同客户端可能碰撞，
// 对滥用检测而言这是可接受的误伤。
//
// 缺少 X-Forwarded-For 时地址部分取字面量 "unknown"，
// 所有这类客户端共享一个配额桶，宁可多限制也不放空。
package xident
