package xstore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestMemoryStore_Incr_ExpiresAfterTTL(t *testing.T) {
	clock := &manualClock{now: time.Unix(1_700_000_000, 0)}
	s := NewMemory(WithClock(clock.Now))
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		n, err := s.Incr(ctx, "k", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, want, n)
	}

	clock.Advance(time.Minute)
	n, err := s.Incr(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestMemoryStore_SetGetExists(t *testing.T) {
	clock := &manualClock{now: time.Unix(1_700_000_000, 0)}
	s := NewMemory(WithClock(clock.Now))
	ctx := context.Background()

	value := []byte("body")
	require.NoError(t, s.SetWithTTL(ctx, "cache:k", value, time.Second))
	value[0] = 'X'

	got, err := s.Get(ctx, "cache:k")
	require.NoError(t, err)
	assert.Equal(t, []byte("body"), got)

	ok, err := s.Exists(ctx, "cache:k")
	require.NoError(t, err)
	assert.True(t, ok)

	clock.Advance(time.Second)
	_, err = s.Get(ctx, "cache:k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_RecordHit_SlidingPrune(t *testing.T) {
	clock := &manualClock{now: time.Unix(1_700_000_000, 0)}
	s := NewMemory(WithClock(clock.Now))
	ctx := context.Background()

	for range 5 {
		_, err := s.RecordHit(ctx, "ts", clock.Now(), time.Minute)
		require.NoError(t, err)
		clock.Advance(10 * time.Second)
	}
	// 当前 t=50s，窗口内 [t-60s, t] 仍有 5 条
	n, err := s.RecordHit(ctx, "ts", clock.Now(), time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(6), n)

	clock.Advance(25 * time.Second)
	n, err = s.RecordHit(ctx, "ts", clock.Now(), time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
}

func TestMemoryStore_Closed_ReturnsUnavailable(t *testing.T) {
	s := NewMemory()
	require.NoError(t, s.Close())

	_, err := s.Incr(context.Background(), "k", time.Second)
	assert.True(t, IsUnavailable(err))
	assert.ErrorIs(t, s.Ping(context.Background()), ErrUnavailable)
}
