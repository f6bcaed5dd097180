package app

import (
	"context"
	"time"
)

// RetryPolicy runs a multi-statement mutation up to Attempts times,
// sleeping Backoff[i] after failed attempt i+1. Sleep is injectable for
// tests and defaults to time.Sleep.
type RetryPolicy struct {
	Attempts int
	Backoff  []time.Duration
	Sleep    func(time.Duration)
}

// DefaultRetryPolicy matches the completion engine's contract: three
// attempts on a 0.5s/1s/2s curve.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Attempts: 3,
		Backoff:  []time.Duration{500 * time.Millisecond, time.Second, 2 * time.Second},
	}
}

// Run invokes fn until it succeeds, attempts are exhausted, or retryable
// reports the error as permanent. The caller sees only the final outcome.
func (p RetryPolicy) Run(ctx context.Context, fn func(ctx context.Context) error, retryable func(error) bool, onRetry func(attempt int, err error)) error {
	sleep := p.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if retryable != nil && !retryable(err) {
			return err
		}
		if attempt == attempts {
			break
		}
		if onRetry != nil {
			onRetry(attempt, err)
		}
		if attempt-1 < len(p.Backoff) {
			sleep(p.Backoff[attempt-1])
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return err
}
