package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Limiter defines the interface for rate limiting
type Limiter interface {
	// Allow reports whether a request may proceed right now, consuming a token if so
	Allow() bool
	// Wait blocks until a request may proceed or ctx is done
	Wait(ctx context.Context) error
	// Reset restores full capacity
	Reset()
}

// TokenBucket implements a token bucket rate limiter that refills to
// capacity once per refill period.
type TokenBucket struct {
	capacity     int
	tokens       int
	refillPeriod time.Duration
	lastRefill   time.Time
	mu           sync.Mutex
}

// NewTokenBucket creates a new token bucket rate limiter
func NewTokenBucket(capacity int, refillPeriod time.Duration) *TokenBucket {
	return &TokenBucket{
		capacity:     capacity,
		tokens:       capacity,
		refillPeriod: refillPeriod,
		lastRefill:   time.Now(),
	}
}

// PerMinute returns a bucket allowing n requests per minute
func PerMinute(n int) *TokenBucket {
	return NewTokenBucket(n, time.Minute)
}

// Allow checks if a request can proceed
func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill()

	if tb.tokens > 0 {
		tb.tokens--
		return true
	}
	return false
}

// Wait blocks until a token is available or ctx is done
func (tb *TokenBucket) Wait(ctx context.Context) error {
	for !tb.Allow() {
		tb.mu.Lock()
		untilRefill := tb.refillPeriod - time.Since(tb.lastRefill)
		tb.mu.Unlock()

		if untilRefill <= 0 {
			untilRefill = 10 * time.Millisecond
		}

		timer := time.NewTimer(untilRefill)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return nil
}

// Reset resets the token bucket to full capacity
func (tb *TokenBucket) Reset() {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.tokens = tb.capacity
	tb.lastRefill = time.Now()
}

// Available returns the number of tokens left in the current period
func (tb *TokenBucket) Available() int {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill()
	return tb.tokens
}

func (tb *TokenBucket) refill() {
	now := time.Now()
	if now.Sub(tb.lastRefill) >= tb.refillPeriod {
		tb.tokens = tb.capacity
		tb.lastRefill = now
	}
}

// Jitter is a uniform random delay window [Min, Max]
type Jitter struct {
	Min time.Duration
	Max time.Duration
}

// Duration draws one delay from the window
func (j Jitter) Duration() time.Duration {
	if j.Max <= j.Min {
		return j.Min
	}
	return j.Min + time.Duration(rand.Int63n(int64(j.Max-j.Min)+1))
}

// Wait sleeps for one drawn delay or until ctx is done
func (j Jitter) Wait(ctx context.Context) error {
	d := j.Duration()
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
