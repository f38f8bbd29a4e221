// Package xsecure 为每个响应注入固定的安全响应头，并对 API 路径执行 CORS 白名单。
//
// 安全头集合带版本号 HeaderSetVersion，修改集合时递增。
//
// 带 Origin 的 API 请求若来源不在白名单内直接返回 403，而不仅仅是缺少
// CORS 响应头。白名单内的 OPTIONS 预检请求以 204 结束。
package xsecure
