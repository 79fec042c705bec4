package ratelimit

import (
	"context"
	"testing"
	"time"

	"butterfliy/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	assert.IsType(t, Unlimited{}, New(config.RateLimitConfig{Enabled: false, RequestsPerMinute: 60}))
	assert.IsType(t, Unlimited{}, New(config.RateLimitConfig{Enabled: true, RequestsPerMinute: 0}))
	assert.IsType(t, &TokenBucket{}, New(config.RateLimitConfig{Enabled: true, RequestsPerMinute: 60, BurstSize: 5}))
}

func TestTokenBucketBurst(t *testing.T) {
	// one token per minute, so nothing refills during the test
	tb := NewTokenBucket(1, 3)

	for i := 0; i < 3; i++ {
		assert.True(t, tb.Allow(), "token %d", i+1)
	}
	assert.False(t, tb.Allow())

	tb.Reset()
	assert.True(t, tb.Allow())
}

func TestTokenBucketWaitHonoursContext(t *testing.T) {
	tb := NewTokenBucket(1, 1)
	require.True(t, tb.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	assert.Error(t, tb.Wait(ctx))
}

func TestTokenBucketWaitRefills(t *testing.T) {
	// 6000 per minute is one token every 10ms
	tb := NewTokenBucket(6000, 1)
	require.True(t, tb.Allow())

	start := time.Now()
	require.NoError(t, tb.Wait(context.Background()))
	assert.Less(t, time.Since(start), time.Second)
}

func TestSlidingWindow(t *testing.T) {
	sw := NewSlidingWindow(3, 50*time.Millisecond)

	for i := 0; i < 3; i++ {
		assert.True(t, sw.Allow(), "request %d", i+1)
	}
	assert.False(t, sw.Allow())

	time.Sleep(60 * time.Millisecond)
	assert.True(t, sw.Allow())

	sw.Reset()
	assert.Empty(t, sw.requests)
}

func TestSlidingWindowWait(t *testing.T) {
	sw := NewSlidingWindow(1, 30*time.Millisecond)
	require.True(t, sw.Allow())

	start := time.Now()
	require.NoError(t, sw.Wait(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sw.Wait(ctx), context.Canceled)
}

func TestUnlimited(t *testing.T) {
	var l Limiter = Unlimited{}
	for i := 0; i < 100; i++ {
		assert.True(t, l.Allow())
	}
	assert.NoError(t, l.Wait(context.Background()))
}
