package xstore

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T, opts ...Option) (Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	s, err := NewRedis(client, append([]Option{WithOpTimeout(time.Second)}, opts...)...)
	require.NoError(t, err)
	return s, mr
}

func TestNewRedis_NilClient_ReturnsError(t *testing.T) {
	_, err := NewRedis(nil)
	assert.ErrorIs(t, err, ErrNilClient)
}

func TestRedisStore_Incr_SetsTTLOnce(t *testing.T) {
	s, mr := newRedisStore(t)
	ctx := context.Background()

	n, err := s.Incr(ctx, "quota:/api:c1:1", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, time.Minute, mr.TTL("xedge:quota:/api:c1:1"))

	mr.FastForward(30 * time.Second)
	n, err = s.Incr(ctx, "quota:/api:c1:1", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, 30*time.Second, mr.TTL("xedge:quota:/api:c1:1"))

	mr.FastForward(31 * time.Second)
	n, err = s.Incr(ctx, "quota:/api:c1:1", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestRedisStore_Incr_Concurrent_NoLostUpdates(t *testing.T) {
	s, _ := newRedisStore(t)
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Incr(context.Background(), "k", time.Minute)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	n, err := s.Incr(context.Background(), "k", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(51), n)
}

func TestRedisStore_GetSetExists(t *testing.T) {
	s, mr := newRedisStore(t, WithKeyPrefix("t:"))
	ctx := context.Background()

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.SetWithTTL(ctx, "block:c1", []byte("1"), time.Hour))
	v, err := s.Get(ctx, "block:c1")
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), v)

	ok, err := s.Exists(ctx, "block:c1")
	require.NoError(t, err)
	assert.True(t, ok)

	mr.FastForward(time.Hour)
	ok, err = s.Exists(ctx, "block:c1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStore_InvalidArgs_ReturnsError(t *testing.T) {
	s, _ := newRedisStore(t)
	ctx := context.Background()

	_, err := s.Incr(ctx, "k", 0)
	assert.ErrorIs(t, err, ErrInvalidTTL)
	_, err = s.Incr(ctx, "", time.Second)
	assert.ErrorIs(t, err, ErrEmptyKey)
	assert.ErrorIs(t, s.SetWithTTL(ctx, "k", nil, -time.Second), ErrInvalidTTL)
	_, err = s.RecordHit(ctx, "k", time.Now(), 0)
	assert.ErrorIs(t, err, ErrInvalidTTL)
}

func TestRedisStore_RecordHit_PrunesOldEntries(t *testing.T) {
	s, mr := newRedisStore(t)
	ctx := context.Background()
	base := time.Unix(1_700_000_000, 0)

	for i := range 3 {
		n, err := s.RecordHit(ctx, "abuse:ts:c1", base.Add(time.Duration(i)*time.Second), time.Minute)
		require.NoError(t, err)
		assert.Equal(t, int64(i+1), n)
	}

	// 同一毫秒的重复请求也要计数
	n, err := s.RecordHit(ctx, "abuse:ts:c1", base.Add(2*time.Second), time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	// base 与 base+1s 已超出 60s 窗口
	n, err = s.RecordHit(ctx, "abuse:ts:c1", base.Add(61500*time.Millisecond), time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.Equal(t, time.Minute, mr.TTL("xedge:abuse:ts:c1"))
}

func TestRedisStore_ServerDown_IsUnavailable(t *testing.T) {
	s, mr := newRedisStore(t, WithOpTimeout(100*time.Millisecond))
	require.NoError(t, s.Ping(context.Background()))
	mr.Close()

	_, err := s.Incr(context.Background(), "k", time.Minute)
	require.Error(t, err)
	assert.True(t, IsUnavailable(err), "err=%v", err)
	assert.NoError(t, s.Close())
}

// newHungServer 接受连接但从不应答
func newHungServer(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	var (
		mu    sync.Mutex
		conns []net.Conn
		wg    sync.WaitGroup
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, c)
			mu.Unlock()
		}
	}()
	t.Cleanup(func() {
		_ = ln.Close()
		wg.Wait()
		mu.Lock()
		defer mu.Unlock()
		for _, c := range conns {
			_ = c.Close()
		}
	})
	return ln.Addr().String()
}

func TestRedisStore_HungServer_BoundedByOpTimeout(t *testing.T) {
	addr := newHungServer(t)
	client := redis.NewUniversalClient(BoundOptions(&redis.UniversalOptions{
		Addrs:      []string{addr},
		MaxRetries: -1,
	}, 50*time.Millisecond))
	t.Cleanup(func() { _ = client.Close() })

	s, err := NewRedis(client, WithOpTimeout(50*time.Millisecond))
	require.NoError(t, err)

	start := time.Now()
	_, err = s.Incr(context.Background(), "quota:/api:c1:1", time.Minute)
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.True(t, IsUnavailable(err), "err: %v", err)
	assert.Less(t, elapsed, time.Second)
}

func TestBoundOptions_KeepsTighterTimeouts(t *testing.T) {
	o := BoundOptions(&redis.UniversalOptions{ReadTimeout: 10 * time.Millisecond}, 50*time.Millisecond)

	assert.True(t, o.ContextTimeoutEnabled)
	assert.Equal(t, 10*time.Millisecond, o.ReadTimeout)
	assert.Equal(t, 50*time.Millisecond, o.WriteTimeout)
}
