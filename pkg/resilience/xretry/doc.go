// Package xretry 封装 avast/retry-go/v5，提供带 context 的重试。
//
// 默认重试所有错误，Permanent 包装的错误立即停止：
//
//	err := xretry.Do(ctx, func() error {
//		return client.Ping(ctx).Err()
//	}, xretry.Attempts(5), xretry.Delay(200*time.Millisecond))
package xretry
