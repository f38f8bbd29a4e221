package xstore

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// incrScript 自增，首次创建时设置过期
var incrScript = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n
`)

// recordHitScript 以毫秒时间戳为 score 维护有序集合
// ARGV: 1=剪裁上界(不含) 2=now 3=member 4=ttl(ms)
var recordHitScript = redis.NewScript(`
redis.call("ZREMRANGEBYSCORE", KEYS[1], "-inf", "(" .. ARGV[1])
redis.call("ZADD", KEYS[1], ARGV[2], ARGV[3])
redis.call("PEXPIRE", KEYS[1], ARGV[4])
return redis.call("ZCARD", KEYS[1])
`)

type redisStore struct {
	client redis.UniversalClient
	opts   *Options
}

// NewRedis 基于 go-redis 客户端创建 Store。Close 不会关闭传入的 client。
func NewRedis(client redis.UniversalClient, opts ...Option) (Store, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	return &redisStore{client: client, opts: buildOptions(opts)}, nil
}

// BoundOptions 让客户端遵守 ctx 截止时间，并把单次读写超时收紧到 opTimeout。
//
// go-redis 默认忽略 ctx 截止时间，只按 ReadTimeout（3s）中断读，
// 不设置时 WithOpTimeout 对挂起的服务端无效。
func BoundOptions(o *redis.UniversalOptions, opTimeout time.Duration) *redis.UniversalOptions {
	o.ContextTimeoutEnabled = true
	if opTimeout > 0 {
		if o.ReadTimeout == 0 || o.ReadTimeout > opTimeout {
			o.ReadTimeout = opTimeout
		}
		if o.WriteTimeout == 0 || o.WriteTimeout > opTimeout {
			o.WriteTimeout = opTimeout
		}
	}
	return o
}

func (s *redisStore) key(k string) string {
	return s.opts.KeyPrefix + k
}

func (s *redisStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opts.OpTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.opts.OpTimeout)
}

func (s *redisStore) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	if key == "" {
		return 0, ErrEmptyKey
	}
	if ttl <= 0 {
		return 0, ErrInvalidTTL
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return incrScript.Run(ctx, s.client, []string{s.key(key)}, ttl.Milliseconds()).Int64()
}

func (s *redisStore) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	b, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	return b, err
}

func (s *redisStore) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if key == "" {
		return ErrEmptyKey
	}
	if ttl <= 0 {
		return ErrInvalidTTL
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.client.Set(ctx, s.key(key), value, ttl).Err()
}

func (s *redisStore) Exists(ctx context.Context, key string) (bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	n, err := s.client.Exists(ctx, s.key(key)).Result()
	return n > 0, err
}

func (s *redisStore) RecordHit(ctx context.Context, key string, now time.Time, window time.Duration) (int64, error) {
	if key == "" {
		return 0, ErrEmptyKey
	}
	if window <= 0 {
		return 0, ErrInvalidTTL
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	nowMs := now.UnixMilli()
	cutoff := strconv.FormatInt(nowMs-window.Milliseconds(), 10)
	// 同一毫秒内的多个请求需要不同 member
	member := strconv.FormatInt(nowMs, 10) + "-" + uuid.NewString()
	return recordHitScript.Run(ctx, s.client, []string{s.key(key)},
		cutoff, nowMs, member, window.Milliseconds()).Int64()
}

func (s *redisStore) Ping(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.client.Ping(ctx).Err()
}

func (s *redisStore) Close() error {
	return nil
}
