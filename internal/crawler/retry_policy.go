package crawler

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Default fetch retry budget: three attempts, two seconds apart.
const (
	DefaultMaxAttempts = 3
	DefaultRetryDelay  = 2 * time.Second
)

// FixedRetryPolicy retries a fixed number of times with a constant delay.
type FixedRetryPolicy struct {
	maxAttempts int
	delay       time.Duration
}

// NewFixedRetryPolicy builds a policy; non-positive values fall back to defaults.
func NewFixedRetryPolicy(maxAttempts int, delay time.Duration) FixedRetryPolicy {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if delay < 0 {
		delay = DefaultRetryDelay
	}
	return FixedRetryPolicy{maxAttempts: maxAttempts, delay: delay}
}

// MaxAttempts reports the total attempt budget.
func (p FixedRetryPolicy) MaxAttempts() int {
	return p.maxAttempts
}

// ShouldRetry decides whether another attempt is allowed after the given one (1-based).
func (p FixedRetryPolicy) ShouldRetry(err error, attempt int) bool {
	if err == nil || attempt >= p.maxAttempts {
		return false
	}
	if errors.Is(err, ErrInvalidURL) || errors.Is(err, context.Canceled) {
		return false
	}
	return true
}

// Backoff returns the wait before the next attempt.
func (p FixedRetryPolicy) Backoff(int) time.Duration {
	return p.delay
}

// Retry runs fn until it succeeds or the policy gives up. onRetry, when set,
// is called with each failed attempt that will be retried.
func Retry(
	ctx context.Context,
	policy FixedRetryPolicy,
	pauser Pauser,
	fn func(ctx context.Context, attempt int) error,
	onRetry func(attempt int, err error),
) error {
	if pauser == nil {
		pauser = &timerPauseController{}
	}
	var (
		lastErr error
		attempt int
	)
	for attempt = 1; ; attempt++ {
		lastErr = fn(ctx, attempt)
		if lastErr == nil {
			return nil
		}
		if !policy.ShouldRetry(lastErr, attempt) {
			break
		}
		if onRetry != nil {
			onRetry(attempt, lastErr)
		}
		pauser.Pause(ctx, policy.Backoff(attempt))
		if ctx.Err() != nil {
			return fmt.Errorf("retry interrupted: %w", ctx.Err())
		}
	}
	if errors.Is(lastErr, ErrInvalidURL) {
		return lastErr
	}
	return fmt.Errorf("%w after %d attempts: %w", ErrFetchExhausted, attempt, lastErr)
}
