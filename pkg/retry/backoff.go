package retry

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// BackoffStrategy computes the sleep before a retry
type BackoffStrategy interface {
	// NextDelay returns the delay before the given retry (1-based)
	NextDelay(retry int) time.Duration
}

// ExponentialBackoff waits BaseDelay * Multiplier^(retry-1), optionally
// capped and jittered.
type ExponentialBackoff struct {
	BaseDelay time.Duration
	// MaxDelay caps the delay; zero means uncapped
	MaxDelay   time.Duration
	Multiplier float64
	// JitterFactor spreads the delay by ±factor (0.0 to 1.0)
	JitterFactor float64
}

// NewExponentialBackoff doubles the delay on every retry with no cap and no jitter
func NewExponentialBackoff(initialDelay time.Duration) *ExponentialBackoff {
	return &ExponentialBackoff{
		BaseDelay:  initialDelay,
		Multiplier: 2.0,
	}
}

// NextDelay calculates the next delay with exponential backoff and jitter
func (eb *ExponentialBackoff) NextDelay(retry int) time.Duration {
	if retry <= 0 {
		return 0
	}

	multiplier := eb.Multiplier
	if multiplier <= 0 {
		multiplier = 2.0
	}

	delay := float64(eb.BaseDelay) * math.Pow(multiplier, float64(retry-1))

	if eb.MaxDelay > 0 && delay > float64(eb.MaxDelay) {
		delay = float64(eb.MaxDelay)
	}

	if eb.JitterFactor > 0 {
		jitter := delay * eb.JitterFactor
		delay += (rand.Float64() * 2 * jitter) - jitter
	}

	if delay < 0 {
		delay = 0
	}
	if delay >= math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}

	return time.Duration(delay)
}

// ConstantBackoff waits the same delay before every retry
type ConstantBackoff struct {
	Delay time.Duration
}

// NextDelay returns a constant delay
func (cb *ConstantBackoff) NextDelay(retry int) time.Duration {
	if retry <= 0 {
		return 0
	}
	return cb.Delay
}

// Wait sleeps for delay or until ctx is done, whichever comes first
func Wait(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
