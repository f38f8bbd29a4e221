// Package edgeconf 定义 xedge 进程的类型化配置。
//
// 加载顺序：默认值 → 配置文件（yaml/json，可省略）→ XEDGE_ 前缀的环境变量。
// 环境变量用双下划线表示层级，例如 XEDGE_ABUSE__BURST_THRESHOLD=500。
// .env 文件由 LoadDotEnv 预先写入进程环境，已存在的环境变量不会被覆盖。
//
// 运行期只有策略表和跨域白名单支持热更新，其他字段变更需要重启。
package edgeconf
