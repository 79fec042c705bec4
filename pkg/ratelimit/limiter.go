package ratelimit

import (
	"context"
	"sync"
	"time"

	"butterfliy/pkg/config"

	"golang.org/x/time/rate"
)

// Limiter throttles outgoing requests
type Limiter interface {
	// Allow reports whether a request may proceed now, consuming a slot if so
	Allow() bool
	// Wait blocks until a request may proceed or ctx is done
	Wait(ctx context.Context) error
	// Reset restores the limiter to its initial, full state
	Reset()
}

// New builds the limiter described by cfg. A disabled config yields Unlimited.
func New(cfg config.RateLimitConfig) Limiter {
	if !cfg.Enabled || cfg.RequestsPerMinute <= 0 {
		return Unlimited{}
	}
	burst := cfg.BurstSize
	if burst <= 0 {
		burst = 1
	}
	return NewTokenBucket(cfg.RequestsPerMinute, burst)
}

// TokenBucket is a token bucket refilled continuously at requestsPerMinute
type TokenBucket struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	limit   rate.Limit
	burst   int
}

// NewTokenBucket creates a bucket holding burst tokens, refilled at requestsPerMinute
func NewTokenBucket(requestsPerMinute, burst int) *TokenBucket {
	limit := rate.Limit(float64(requestsPerMinute) / 60.0)
	return &TokenBucket{
		limiter: rate.NewLimiter(limit, burst),
		limit:   limit,
		burst:   burst,
	}
}

func (tb *TokenBucket) current() *rate.Limiter {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return tb.limiter
}

// Allow checks if a request can proceed
func (tb *TokenBucket) Allow() bool {
	return tb.current().Allow()
}

// Wait blocks until a token is available
func (tb *TokenBucket) Wait(ctx context.Context) error {
	return tb.current().Wait(ctx)
}

// Reset refills the bucket
func (tb *TokenBucket) Reset() {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.limiter = rate.NewLimiter(tb.limit, tb.burst)
}

// SlidingWindow allows at most maxRequests within any windowSize period
type SlidingWindow struct {
	windowSize  time.Duration
	maxRequests int
	requests    []time.Time
	mu          sync.Mutex
}

// NewSlidingWindow creates a new sliding window rate limiter
func NewSlidingWindow(maxRequests int, windowSize time.Duration) *SlidingWindow {
	return &SlidingWindow{
		windowSize:  windowSize,
		maxRequests: maxRequests,
		requests:    make([]time.Time, 0, maxRequests),
	}
}

// Allow checks if a request can proceed
func (sw *SlidingWindow) Allow() bool {
	_, ok := sw.reserve()
	return ok
}

// reserve records a request if the window has room, otherwise reports how
// long until the oldest request leaves the window
func (sw *SlidingWindow) reserve() (time.Duration, bool) {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	now := time.Now()
	sw.cleanOldRequests(now)

	if len(sw.requests) < sw.maxRequests {
		sw.requests = append(sw.requests, now)
		return 0, true
	}
	if len(sw.requests) == 0 {
		return sw.windowSize, false
	}
	return sw.windowSize - now.Sub(sw.requests[0]), false
}

// Wait blocks until a request is allowed or ctx is done
func (sw *SlidingWindow) Wait(ctx context.Context) error {
	for {
		wait, ok := sw.reserve()
		if ok {
			return nil
		}
		if wait <= 0 {
			wait = 10 * time.Millisecond
		}

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}

// Reset clears all recorded requests
func (sw *SlidingWindow) Reset() {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	sw.requests = sw.requests[:0]
}

// cleanOldRequests drops requests that fell out of the window
func (sw *SlidingWindow) cleanOldRequests(now time.Time) {
	cutoff := now.Add(-sw.windowSize)

	i := 0
	for i < len(sw.requests) && !sw.requests[i].After(cutoff) {
		i++
	}

	if i > 0 {
		copy(sw.requests, sw.requests[i:])
		sw.requests = sw.requests[:len(sw.requests)-i]
	}
}

// Unlimited never throttles
type Unlimited struct{}

func (Unlimited) Allow() bool                    { return true }
func (Unlimited) Wait(ctx context.Context) error { return ctx.Err() }
func (Unlimited) Reset()                         {}
