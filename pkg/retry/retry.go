// Package retry implements the retry-with-backoff policy shared by login,
// page fetches and media downloads.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	errs "igdl/pkg/errors"
	"igdl/pkg/logger"
)

// Operation is a function that performs an operation that might need retrying
type Operation func(ctx context.Context) error

// Policy is the single retry policy object. It is safe for concurrent use
// once constructed.
type Policy struct {
	// MaxAttempts is the total number of attempts including the first one
	MaxAttempts int
	// Backoff is used for network and server errors
	Backoff BackoffStrategy
	// RateLimit is used when the error is a rate-limit response
	RateLimit BackoffStrategy
	// RetryIf decides whether an error is worth another attempt
	RetryIf func(error) bool
	// OnRetry is called before each retry sleep
	OnRetry func(attempt int, err error, delay time.Duration)
	Logger  logger.Logger
}

// DefaultPolicy returns a policy with 3 attempts and the default backoffs
func DefaultPolicy() *Policy {
	return &Policy{
		MaxAttempts: 3,
		Backoff:     DefaultExponentialBackoff(),
		RateLimit:   DefaultRateLimitBackoff(),
		RetryIf:     DefaultRetryIf,
	}
}

// NewPolicy builds a policy from explicit settings
func NewPolicy(maxAttempts int, base, maxDelay, jitter, rateLimitBase time.Duration) *Policy {
	p := DefaultPolicy()
	p.MaxAttempts = maxAttempts
	p.Backoff = &ExponentialBackoff{BaseDelay: base, MaxDelay: maxDelay, Jitter: jitter}
	if rateLimitBase > 0 {
		p.RateLimit = &RateLimitBackoff{BaseDelay: rateLimitBase, MaxDelay: 5 * time.Minute, Spread: 5 * time.Second}
	}
	return p
}

// DefaultRetryIf retries typed errors whose kind is retryable and untyped
// errors other than context cancellation.
func DefaultRetryIf(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var apiErr *errs.Error
	if errors.As(err, &apiErr) {
		return errs.IsRetryable(apiErr.Type)
	}

	return true
}

func (p *Policy) log() logger.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return logger.GetLogger()
}

// delayFor picks the backoff matching the error kind
func (p *Policy) delayFor(attempt int, err error) time.Duration {
	if errs.IsType(err, errs.ErrorTypeRateLimit) && p.RateLimit != nil {
		return p.RateLimit.NextDelay(attempt)
	}
	if p.Backoff == nil {
		return 0
	}
	return p.Backoff.NextDelay(attempt)
}

// Do executes op until it succeeds, returns a non-retryable error, the
// attempts are exhausted, or ctx is done.
func (p *Policy) Do(ctx context.Context, op Operation) error {
	retryIf := p.RetryIf
	if retryIf == nil {
		retryIf = DefaultRetryIf
	}
	maxAttempts := p.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return fmt.Errorf("retry cancelled: %w", lastErr)
			}
			return err
		}

		err := op(ctx)
		if err == nil {
			if attempt > 1 {
				p.log().DebugWithFields("operation succeeded after retry", map[string]interface{}{
					"attempt": attempt,
				})
			}
			return nil
		}
		lastErr = err

		if !retryIf(err) {
			return err
		}

		if attempt >= maxAttempts {
			p.log().WarnWithFields("max retry attempts exceeded", map[string]interface{}{
				"attempts":   attempt,
				"last_error": err.Error(),
			})
			return fmt.Errorf("max retry attempts (%d) exceeded: %w", maxAttempts, err)
		}

		delay := p.delayFor(attempt, err)
		if p.OnRetry != nil {
			p.OnRetry(attempt, err, delay)
		}

		if errs.IsType(err, errs.ErrorTypeRateLimit) {
			logger.LogRateLimit(p.log(), attempt, delay)
		} else {
			p.log().WarnWithFields("retrying operation", map[string]interface{}{
				"attempt":      attempt,
				"error":        err.Error(),
				"delay":        delay,
				"max_attempts": maxAttempts,
			})
		}

		if werr := Wait(ctx, delay); werr != nil {
			return fmt.Errorf("retry cancelled: %w", lastErr)
		}
	}
}
