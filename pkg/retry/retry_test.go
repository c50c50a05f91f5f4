package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "igdl/pkg/errors"
	"igdl/pkg/logger"
)

func fastPolicy(attempts int) *Policy {
	p := NewPolicy(attempts, time.Millisecond, 5*time.Millisecond, 0, 0)
	p.RateLimit = &ExponentialBackoff{BaseDelay: time.Millisecond}
	p.Logger = logger.NewTestLogger()
	return p
}

func TestExponentialBackoff(t *testing.T) {
	backoff := &ExponentialBackoff{
		BaseDelay: 100 * time.Millisecond,
		MaxDelay:  time.Second,
	}

	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 0},
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{4, 800 * time.Millisecond},
		{5, time.Second},
		{9, time.Second},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, backoff.NextDelay(tt.attempt), "attempt %d", tt.attempt)
	}
}

func TestExponentialBackoffJitterBounds(t *testing.T) {
	backoff := &ExponentialBackoff{BaseDelay: 100 * time.Millisecond, MaxDelay: time.Second, Jitter: 50 * time.Millisecond}

	for i := 0; i < 50; i++ {
		d := backoff.NextDelay(2)
		assert.GreaterOrEqual(t, d, 200*time.Millisecond)
		assert.Less(t, d, 250*time.Millisecond)
	}
}

func TestRateLimitBackoff(t *testing.T) {
	b := DefaultRateLimitBackoff()

	for i := 0; i < 20; i++ {
		first := b.NextDelay(1)
		assert.GreaterOrEqual(t, first, 25*time.Second)
		assert.LessOrEqual(t, first, 35*time.Second)

		capped := b.NextDelay(10)
		assert.GreaterOrEqual(t, capped, 295*time.Second)
		assert.LessOrEqual(t, capped, 305*time.Second)
	}
}

func TestDoSucceedsAfterTransientErrors(t *testing.T) {
	p := fastPolicy(3)
	calls := 0

	err := p.Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errs.New(errs.ErrorTypeNetwork, "connection reset")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoStopsAfterMaxAttempts(t *testing.T) {
	p := fastPolicy(3)
	calls := 0

	err := p.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return errs.New(errs.ErrorTypeServerError, "bad gateway")
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.True(t, errs.IsType(err, errs.ErrorTypeServerError))
}

func TestDoDoesNotRetryPermanentErrors(t *testing.T) {
	p := fastPolicy(3)
	calls := 0

	err := p.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return errs.New(errs.ErrorTypeUnresolvable, "not media")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoUsesRateLimitBackoff(t *testing.T) {
	p := fastPolicy(2)
	var delays []time.Duration
	p.RateLimit = &ExponentialBackoff{BaseDelay: 7 * time.Millisecond}
	p.OnRetry = func(attempt int, err error, delay time.Duration) {
		delays = append(delays, delay)
	}

	_ = p.Do(context.Background(), func(ctx context.Context) error {
		return errs.New(errs.ErrorTypeRateLimit, "slow down")
	})

	require.Len(t, delays, 1)
	assert.Equal(t, 7*time.Millisecond, delays[0])
}

func TestDoHonoursCancellation(t *testing.T) {
	p := NewPolicy(5, time.Hour, time.Hour, 0, 0)
	p.Logger = logger.NewTestLogger()
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	err := p.Do(ctx, func(ctx context.Context) error {
		calls++
		return errors.New("flaky")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Wait(ctx, time.Second), context.Canceled)
	assert.NoError(t, Wait(context.Background(), time.Millisecond))
}
