package oracle

import (
	"context"
	"time"
)

// RetryOptions configure the retry decorator.
type RetryOptions struct {
	// Attempts is the total number of tries including the first.
	Attempts int
	// Backoff is the initial delay between tries; it doubles per retry.
	Backoff time.Duration
}

type retryOracle struct {
	inner Oracle
	opts  RetryOptions
}

// WithRetry wraps an oracle with bounded retries and exponential backoff.
// Context cancellation aborts the wait immediately. The last error is
// returned when every attempt fails.
func WithRetry(inner Oracle, optFns ...func(o *RetryOptions)) Oracle {
	opts := RetryOptions{Attempts: 3, Backoff: 500 * time.Millisecond}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Attempts < 1 {
		opts.Attempts = 1
	}

	return &retryOracle{inner: inner, opts: opts}
}

func (r *retryOracle) Decide(ctx context.Context, req Request) (Decision, error) {
	var lastErr error
	delay := r.opts.Backoff

	for attempt := 0; attempt < r.opts.Attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return Decision{}, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		d, err := r.inner.Decide(ctx, req)
		if err == nil {
			return d, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return Decision{}, ctx.Err()
		}
	}

	return Decision{}, lastErr
}
