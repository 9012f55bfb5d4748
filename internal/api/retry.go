package api

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"
)

// RetryConfig configures retry behavior for transient failures.
type RetryConfig struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
	Multiplier  float64
}

// DefaultRetryConfig returns the retry policy used for answer delivery.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 4,
		InitialWait: 250 * time.Millisecond,
		MaxWait:     4 * time.Second,
		Multiplier:  2.0,
	}
}

// Do calls fn until it succeeds, returns a non-retryable error, or the
// attempts are exhausted. The last error is returned.
func (r RetryConfig) Do(ctx context.Context, fn func(context.Context) error) error {
	attempts := max(r.MaxAttempts, 1)

	var lastErr error
	for attempt := range attempts {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if !IsRetryable(err) {
			return err
		}

		// Last attempt: don't sleep.
		if attempt == attempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.backoff(attempt, err)):
		}
	}
	return lastErr
}

// backoff computes the wait duration for the given attempt.
func (r RetryConfig) backoff(attempt int, err error) time.Duration {
	var se *StatusError
	if errors.As(err, &se) && se.RetryAfter > 0 {
		return se.RetryAfter
	}

	mult := r.Multiplier
	if mult <= 0 {
		mult = 1
	}
	wait := float64(r.InitialWait) * math.Pow(mult, float64(attempt))
	if r.MaxWait > 0 && wait > float64(r.MaxWait) {
		wait = float64(r.MaxWait)
	}

	// ±20% jitter.
	wait += wait * 0.2 * (2*rand.Float64() - 1)
	if wait < 0 {
		wait = 0
	}
	return time.Duration(wait)
}
