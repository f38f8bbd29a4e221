package xstore

import (
	"context"
	"errors"
	"io"
	"net"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/omeyang/xedge/pkg/resilience/xbreaker"
)

var (
	ErrNotFound    = errors.New("xstore: key not found")
	ErrUnavailable = errors.New("xstore: store unavailable")
	ErrNilClient   = errors.New("xstore: nil client")
	ErrInvalidTTL  = errors.New("xstore: ttl must be positive")
	ErrEmptyKey    = errors.New("xstore: empty key")
)

var unavailableErrors = []error{
	ErrUnavailable,
	context.DeadlineExceeded,
	redis.ErrClosed,
	redis.ErrPoolTimeout,
	syscall.ECONNREFUSED,
	syscall.ECONNRESET,
	syscall.EPIPE,
	syscall.ETIMEDOUT,
	io.EOF,
	io.ErrUnexpectedEOF,
}

// IsUnavailable 判断错误是否表示存储不可达（网络、超时、连接池关闭、熔断）
//
// 使用错误链检查而不是字符串匹配。
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}
	for _, target := range unavailableErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	if xbreaker.IsBreakerError(err) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
