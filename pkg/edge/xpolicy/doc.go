// Package xpolicy 把请求路径映射到配额策略和缓存策略。
//
// 匹配规则是最长字面前缀：在所有已注册策略中选择 RoutePrefix 是路径前缀且最长的那一条；
// 同一前缀重复声明时先声明者生效。结果只依赖路径和策略表，与请求顺序无关。
//
// 配额策略总有兜底：策略表没有 "/" 时自动追加 DefaultQuota。
// 缓存策略只对 GET 生效，且最长匹配的策略必须显式 Cacheable，
// 因此可以用一条 Cacheable=false 的更长前缀把子路由排除在缓存之外。
package xpolicy
