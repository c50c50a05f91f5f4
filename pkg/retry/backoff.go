package retry

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// BackoffStrategy computes the delay before retry number attempt (1-based)
type BackoffStrategy interface {
	NextDelay(attempt int) time.Duration
}

// ExponentialBackoff waits BaseDelay*2^(attempt-1), capped at MaxDelay, plus
// a uniformly random jitter in [0, Jitter).
type ExponentialBackoff struct {
	BaseDelay time.Duration
	MaxDelay  time.Duration
	Jitter    time.Duration
}

// DefaultExponentialBackoff returns a backoff with sensible defaults
func DefaultExponentialBackoff() *ExponentialBackoff {
	return &ExponentialBackoff{
		BaseDelay: time.Second,
		MaxDelay:  30 * time.Second,
		Jitter:    500 * time.Millisecond,
	}
}

// NextDelay calculates the next delay with exponential backoff and jitter
func (eb *ExponentialBackoff) NextDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	delay := float64(eb.BaseDelay) * math.Pow(2, float64(attempt-1))
	if eb.MaxDelay > 0 && delay > float64(eb.MaxDelay) {
		delay = float64(eb.MaxDelay)
	}

	if eb.Jitter > 0 {
		delay += rand.Float64() * float64(eb.Jitter)
	}

	return time.Duration(delay)
}

// RateLimitBackoff is the long backoff used after HTTP 429:
// min(MaxDelay, BaseDelay*2^(attempt-1)) plus or minus Spread.
type RateLimitBackoff struct {
	BaseDelay time.Duration
	MaxDelay  time.Duration
	Spread    time.Duration
}

// DefaultRateLimitBackoff returns min(300s, 30s*2^n) +/- 5s
func DefaultRateLimitBackoff() *RateLimitBackoff {
	return &RateLimitBackoff{
		BaseDelay: 30 * time.Second,
		MaxDelay:  5 * time.Minute,
		Spread:    5 * time.Second,
	}
}

// NextDelay calculates the rate-limit delay for the given attempt
func (rb *RateLimitBackoff) NextDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	delay := float64(rb.BaseDelay) * math.Pow(2, float64(attempt-1))
	if rb.MaxDelay > 0 && delay > float64(rb.MaxDelay) {
		delay = float64(rb.MaxDelay)
	}

	if rb.Spread > 0 {
		delay += (rand.Float64()*2 - 1) * float64(rb.Spread)
	}
	if delay < 0 {
		delay = 0
	}

	return time.Duration(delay)
}

// Wait waits for the specified duration or until context is cancelled
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
