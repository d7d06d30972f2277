package util

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"
)

// BackoffConfig produces capped exponential delays with jitter.
type BackoffConfig struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
	JitterPct  float64 // 0.3 = +/-30%
}

// DefaultBackoff is the schedule used for transient upstream failures.
var DefaultBackoff = BackoffConfig{
	Initial:    time.Second,
	Max:        30 * time.Second,
	Multiplier: 2.0,
	JitterPct:  0.3,
}

// Duration returns the delay before retrying the given 0-indexed attempt.
func (b BackoffConfig) Duration(attempt int) time.Duration {
	d := float64(b.Initial)
	for i := 0; i < attempt; i++ {
		d *= b.Multiplier
		if d >= float64(b.Max) {
			d = float64(b.Max)
			break
		}
	}
	if b.JitterPct > 0 {
		d += d * b.JitterPct * (2*rand.Float64() - 1)
	}
	if d < 0 {
		d = 0
	}
	return time.Duration(d)
}

type permanentError struct{ err error }

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent marks an error as non-retryable. RetryWithBackoff returns it
// immediately instead of burning remaining attempts.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// RetryWithBackoff calls fn up to attempts times with capped, jittered
// exponential backoff between calls. fn receives the current attempt number
// (0-indexed) and should return nil on success. Errors wrapped with Permanent
// abort the loop at once. If the context is cancelled, the context error is
// returned immediately.
func RetryWithBackoff(ctx context.Context, attempts int, bo BackoffConfig, fn func(attempt int) error) error {
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		lastErr = fn(attempt)
		if lastErr == nil {
			return nil
		}

		var perm *permanentError
		if errors.As(lastErr, &perm) {
			return perm.err
		}

		// Don't wait after the last attempt
		if attempt == attempts-1 {
			break
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(bo.Duration(attempt)):
		}
	}
	return fmt.Errorf("failed after %d attempts: %w", attempts, lastErr)
}
