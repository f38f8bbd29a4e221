// Package xrun 管理进程内长期运行的服务（HTTP 服务器、配置监听等）。
//
// 任一服务返回错误或收到退出信号时，Group 取消共享 context，
// 其余服务随之退出，Run 返回第一个错误或 *SignalError。
//
//	err := xrun.Run(ctx,
//		[]xrun.Option{xrun.WithLogger(logger)},
//		xrun.Named("http", xrun.HTTPServer(srv, 10*time.Second)),
//		xrun.Named("config-watch", watcher.Run),
//	)
//	if errors.Is(err, xrun.ErrSignal) {
//		// 正常退出
//	}
package xrun
