// Package xconf 基于 koanf 加载 YAML/JSON 配置，支持环境变量覆盖与文件热更新。
//
// 加载顺序：配置文件（或字节数据） → 环境变量覆盖。
// 环境变量按前缀筛选，去掉前缀后小写，双下划线表示层级：
//
//	XEDGE_ABUSE__BURST_THRESHOLD=500  →  abuse.burst_threshold
//
// 热更新：
//
//	w, err := xconf.Watch(cfg, func(cfg xconf.Config, err error) { ... })
//	go w.Run(ctx)
package xconf
