package xstore

import (
	"context"
	"time"
)

//go:generate mockgen -source=store.go -destination=xstoremock/store_mock.go -package=xstoremock

// Store 共享计数存储
type Store interface {
	// Incr 原子自增 key 并返回新值。key 首次创建时设置 ttl，之后不刷新。
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)

	// Get 读取 key，不存在返回 ErrNotFound
	Get(ctx context.Context, key string) ([]byte, error)

	// SetWithTTL 写入 key，覆盖旧值
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Exists 判断 key 是否存在（未过期）
	Exists(ctx context.Context, key string) (bool, error)

	// RecordHit 原子地删除 key 中早于 now-window 的时间戳、追加 now，
	// 返回窗口内的时间戳数量，并将 key 的 TTL 刷新为 window。
	RecordHit(ctx context.Context, key string, now time.Time, window time.Duration) (int64, error)

	Ping(ctx context.Context) error
	Close() error
}
