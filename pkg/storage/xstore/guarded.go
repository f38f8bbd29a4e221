package xstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/omeyang/xedge/pkg/resilience/xbreaker"
)

type guardedStore struct {
	next    Store
	breaker *xbreaker.Breaker
}

// NewGuarded 用熔断器包装 Store
//
// ErrNotFound 等业务结果不计为失败。熔断打开时直接返回包装了 ErrUnavailable 的错误，
// 不发起网络往返。
func NewGuarded(next Store, breaker *xbreaker.Breaker) Store {
	return &guardedStore{next: next, breaker: breaker}
}

// NewStoreBreaker 创建适用于 Store 的熔断器：连续 5 次不可用即熔断
func NewStoreBreaker(name string, opts ...xbreaker.BreakerOption) *xbreaker.Breaker {
	base := []xbreaker.BreakerOption{
		xbreaker.WithTripPolicy(xbreaker.NewConsecutiveFailures(5)),
		xbreaker.WithTimeout(5 * time.Second),
		xbreaker.WithSuccessPolicy(xbreaker.SuccessFunc(func(err error) bool {
			return err == nil || !IsUnavailable(err)
		})),
	}
	return xbreaker.NewBreaker(name, append(base, opts...)...)
}

func guard[T any](ctx context.Context, b *xbreaker.Breaker, fn func() (T, error)) (T, error) {
	v, err := xbreaker.Execute(ctx, b, fn)
	if err != nil && xbreaker.IsBreakerError(err) && !errors.Is(err, ErrUnavailable) {
		return v, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return v, err
}

func (s *guardedStore) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	return guard(ctx, s.breaker, func() (int64, error) { return s.next.Incr(ctx, key, ttl) })
}

func (s *guardedStore) Get(ctx context.Context, key string) ([]byte, error) {
	return guard(ctx, s.breaker, func() ([]byte, error) { return s.next.Get(ctx, key) })
}

func (s *guardedStore) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_, err := guard(ctx, s.breaker, func() (struct{}, error) {
		return struct{}{}, s.next.SetWithTTL(ctx, key, value, ttl)
	})
	return err
}

func (s *guardedStore) Exists(ctx context.Context, key string) (bool, error) {
	return guard(ctx, s.breaker, func() (bool, error) { return s.next.Exists(ctx, key) })
}

func (s *guardedStore) RecordHit(ctx context.Context, key string, now time.Time, window time.Duration) (int64, error) {
	return guard(ctx, s.breaker, func() (int64, error) { return s.next.RecordHit(ctx, key, now, window) })
}

func (s *guardedStore) Ping(ctx context.Context) error {
	return s.next.Ping(ctx)
}

func (s *guardedStore) Close() error {
	return s.next.Close()
}
