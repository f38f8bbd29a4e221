// Package xgovern 把边缘治理的各个阶段串成一个 http.Handler。
//
// 处理顺序固定：
//
//	滥用防护 → 配额 → CORS → 认证 → (可缓存的 GET) 响应缓存 → 源站
//
// 安全响应头在进入各阶段前写入，拒绝响应同样携带。任一阶段给出终止裁决时
// 请求在该阶段结束：403 封禁或跨域拒绝，429 配额耗尽，401/403 来自认证服务。
//
// 依赖存储的阶段在存储不可达时放行并标记降级，降级会分别记录日志与
// xedge.degraded.total 指标，与正常放行可区分。
package xgovern
