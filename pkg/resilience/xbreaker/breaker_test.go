package xbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBackend = errors.New("backend down")

func TestBreaker_ConsecutiveFailures_Opens(t *testing.T) {
	var transitions []State
	b := NewBreaker("store",
		WithTripPolicy(NewConsecutiveFailures(3)),
		WithTimeout(time.Hour),
		WithOnStateChange(func(_ string, _, to State) { transitions = append(transitions, to) }),
	)
	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, "store", b.Name())

	for range 3 {
		err := b.Do(context.Background(), func() error { return errBackend })
		assert.ErrorIs(t, err, errBackend)
	}
	assert.Equal(t, StateOpen, b.State())
	assert.Equal(t, []State{StateOpen}, transitions)

	called := false
	err := b.Do(context.Background(), func() error { called = true; return nil })
	assert.False(t, called)
	assert.True(t, IsOpen(err))
	assert.True(t, IsBreakerError(err))

	var be *BreakerError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, StateOpen, be.State)
	assert.Contains(t, be.Error(), "breaker store")
}

func TestBreaker_SuccessPolicy_IgnoresExpectedErrors(t *testing.T) {
	errMiss := errors.New("miss")
	b := NewBreaker("store",
		WithTripPolicy(NewConsecutiveFailures(1)),
		WithSuccessPolicy(SuccessFunc(func(err error) bool {
			return err == nil || errors.Is(err, errMiss)
		})),
	)

	for range 5 {
		_ = b.Do(context.Background(), func() error { return errMiss })
	}
	assert.Equal(t, StateClosed, b.State())
}

func TestExecute_ReturnsValue(t *testing.T) {
	b := NewBreaker("store")
	v, err := Execute(context.Background(), b, func() (int64, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, int64(7), v)
	assert.Equal(t, uint32(1), b.Counts().TotalSuccesses)
}

func TestExecute_CanceledContext_SkipsCall(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Execute(ctx, NewBreaker("store"), func() (int, error) {
		t.Fatal("must not be called")
		return 0, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}
