package xrun

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// HTTPServerInterface 可优雅关闭的 HTTP 服务器，*http.Server 实现此接口
type HTTPServerInterface interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// HTTPServer 将 HTTP 服务器包装为服务，ctx 取消后在 shutdownTimeout 内优雅关闭
func HTTPServer(server HTTPServerInterface, shutdownTimeout time.Duration) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if server == nil {
			return ErrNilServer
		}
		shutdownErrCh := make(chan error, 1)
		listenDone := make(chan struct{})

		go func() {
			select {
			case <-ctx.Done():
				shutdownCtx := context.Background()
				if shutdownTimeout > 0 {
					var cancel context.CancelFunc
					shutdownCtx, cancel = context.WithTimeout(shutdownCtx, shutdownTimeout)
					defer cancel()
				}
				shutdownErrCh <- server.Shutdown(shutdownCtx)
			case <-listenDone:
			}
		}()

		err := server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) && ctx.Err() != nil {
			return <-shutdownErrCh
		}
		close(listenDone)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
