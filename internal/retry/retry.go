// Package retry provides the bounded retry executor used by every outbound
// remote call. Delays grow exponentially (base * 2^attempt) up to a cap, with
// optional jitter, and the executor stops as soon as the context is done or
// the callee returns a permanent error.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"
)

const (
	// DefaultMaxAttempts is the number of tries before Do gives up.
	DefaultMaxAttempts = 3

	// DefaultBaseDelay is the delay before the second attempt.
	DefaultBaseDelay = time.Second

	// DefaultMaxDelay caps the backoff interval.
	DefaultMaxDelay = 30 * time.Second
)

// Executor runs a function with bounded retries.
type Executor struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Jitter      bool

	// sleep waits for d or until ctx is done; replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates an Executor, falling back to defaults for non-positive values.
func New(maxAttempts int, baseDelay, maxDelay time.Duration, jitter bool) *Executor {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if baseDelay <= 0 {
		baseDelay = DefaultBaseDelay
	}
	if maxDelay <= 0 {
		maxDelay = DefaultMaxDelay
	}
	return &Executor{
		MaxAttempts: maxAttempts,
		BaseDelay:   baseDelay,
		MaxDelay:    maxDelay,
		Jitter:      jitter,
	}
}

// Do executes fn up to MaxAttempts times. It returns nil on the first success,
// the unwrapped cause of a permanent error, or the last failure wrapped with the
// number of attempts made.
func (e *Executor) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := e.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}

	var lastErr error
	for attempt := range attempts {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return fmt.Errorf("retry cancelled after %d attempt(s): %w", attempt, errors.Join(err, lastErr))
			}
			return fmt.Errorf("retry cancelled: %w", err)
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}

		var perm *permanentError
		if errors.As(lastErr, &perm) {
			return perm.err
		}

		if attempt < attempts-1 {
			if err := e.wait(ctx, e.Delay(attempt)); err != nil {
				return fmt.Errorf("retry cancelled after %d attempt(s): %w", attempt+1, errors.Join(err, lastErr))
			}
		}
	}
	return fmt.Errorf("all %d attempts failed: %w", attempts, lastErr)
}

// Delay returns the backoff before the attempt following the given zero-based attempt index.
func (e *Executor) Delay(attempt int) time.Duration {
	base := e.BaseDelay
	if base <= 0 {
		base = DefaultBaseDelay
	}
	maxDelay := e.MaxDelay
	if maxDelay <= 0 {
		maxDelay = DefaultMaxDelay
	}

	delay := base
	for range attempt {
		delay *= 2
		if delay >= maxDelay {
			delay = maxDelay
			break
		}
	}
	if delay > maxDelay {
		delay = maxDelay
	}

	if e.Jitter && delay > 1 {
		// uniform in [delay/2, delay)
		half := delay / 2
		delay = half + time.Duration(rand.Int64N(int64(delay-half))) //nolint:gosec // jitter does not need crypto/rand
	}
	return delay
}

func (e *Executor) wait(ctx context.Context, d time.Duration) error {
	if e.sleep != nil {
		return e.sleep(ctx, d)
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

type permanentError struct {
	err error
}

func (p *permanentError) Error() string { return p.err.Error() }

func (p *permanentError) Unwrap() error { return p.err }

// Permanent marks err as not worth retrying. Do returns the wrapped error as is.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}
