package reliability

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// RetryPolicy decides whether a failed attempt should be retried and how
// long to wait before the next one.
type RetryPolicy interface {
	// ShouldRetry determines if a retry should be attempted after the given
	// zero-based attempt failed with err.
	ShouldRetry(attempt int, err error) (bool, time.Duration)
	// NextDelay calculates the delay before the given attempt is retried.
	NextDelay(attempt int) time.Duration
	// MaxRetries returns the maximum number of retries.
	MaxRetries() int
}

// ExponentialBackoff retries with exponentially growing delays.
type ExponentialBackoff struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	MaxAttempts     int
	Jitter          bool
}

// NewExponentialBackoff creates an exponential backoff policy with jitter.
func NewExponentialBackoff(initial, max time.Duration, multiplier float64, maxRetries int) *ExponentialBackoff {
	return &ExponentialBackoff{
		InitialInterval: initial,
		MaxInterval:     max,
		Multiplier:      multiplier,
		MaxAttempts:     maxRetries,
		Jitter:          true,
	}
}

// ShouldRetry implements RetryPolicy.
func (e *ExponentialBackoff) ShouldRetry(attempt int, err error) (bool, time.Duration) {
	if attempt >= e.MaxAttempts || !isRetryable(err) {
		return false, 0
	}
	return true, e.NextDelay(attempt)
}

// MaxRetries implements RetryPolicy.
func (e *ExponentialBackoff) MaxRetries() int {
	return e.MaxAttempts
}

// NextDelay implements RetryPolicy.
func (e *ExponentialBackoff) NextDelay(attempt int) time.Duration {
	delay := float64(e.InitialInterval) * math.Pow(e.Multiplier, float64(attempt))
	if delay > float64(e.MaxInterval) {
		delay = float64(e.MaxInterval)
	}
	if e.Jitter {
		// ±15% jitter
		delay += (rand.Float64() - 0.5) * 0.3 * delay
	}
	return time.Duration(delay)
}

// LinearBackoff retries with delays growing linearly per attempt.
type LinearBackoff struct {
	Interval    time.Duration
	MaxAttempts int
	Jitter      bool
}

// NewLinearBackoff creates a linear backoff policy with jitter.
func NewLinearBackoff(interval time.Duration, maxRetries int) *LinearBackoff {
	return &LinearBackoff{
		Interval:    interval,
		MaxAttempts: maxRetries,
		Jitter:      true,
	}
}

// ShouldRetry implements RetryPolicy.
func (l *LinearBackoff) ShouldRetry(attempt int, err error) (bool, time.Duration) {
	if attempt >= l.MaxAttempts || !isRetryable(err) {
		return false, 0
	}
	return true, l.NextDelay(attempt)
}

// MaxRetries implements RetryPolicy.
func (l *LinearBackoff) MaxRetries() int {
	return l.MaxAttempts
}

// NextDelay implements RetryPolicy.
func (l *LinearBackoff) NextDelay(attempt int) time.Duration {
	delay := float64(l.Interval) * float64(attempt+1)
	if l.Jitter {
		// ±15% jitter
		delay += (rand.Float64() - 0.5) * 0.3 * delay
	}
	return time.Duration(delay)
}

// FixedDelay retries with a constant delay between attempts.
type FixedDelay struct {
	Delay       time.Duration
	MaxAttempts int
}

// NewFixedDelay creates a fixed delay policy.
func NewFixedDelay(delay time.Duration, maxRetries int) *FixedDelay {
	return &FixedDelay{Delay: delay, MaxAttempts: maxRetries}
}

// ShouldRetry implements RetryPolicy.
func (f *FixedDelay) ShouldRetry(attempt int, err error) (bool, time.Duration) {
	if attempt >= f.MaxAttempts || !isRetryable(err) {
		return false, 0
	}
	return true, f.Delay
}

// NextDelay implements RetryPolicy.
func (f *FixedDelay) NextDelay(attempt int) time.Duration {
	return f.Delay
}

// MaxRetries implements RetryPolicy.
func (f *FixedDelay) MaxRetries() int {
	return f.MaxAttempts
}

// Retry executes fn until it succeeds, the policy gives up, or the context
// is cancelled. The error of the last attempt is returned.
func Retry(ctx context.Context, policy RetryPolicy, fn func() error) error {
	var lastErr error

	for attempt := 0; ; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		shouldRetry, delay := policy.ShouldRetry(attempt, err)
		if !shouldRetry {
			return lastErr
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// NonRetryableError marks an error as final so retry policies give up on it
// immediately.
type NonRetryableError struct {
	Err error
}

func (n *NonRetryableError) Error() string {
	return n.Err.Error()
}

// IsRetryable implements the retryable classification.
func (n *NonRetryableError) IsRetryable() bool {
	return false
}

func (n *NonRetryableError) Unwrap() error {
	return n.Err
}

// isRetryable reports whether an error may be retried. Errors that implement
// IsRetryable decide for themselves; unknown errors default to retryable.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	type retryable interface {
		IsRetryable() bool
	}
	if r, ok := err.(retryable); ok {
		return r.IsRetryable()
	}
	return true
}
