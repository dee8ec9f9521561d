package client

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Retry runs op until it succeeds, fails with a non-retryable error, or the
// attempt budget (maxRetries+1 calls in total) is spent. The delay starts at
// initialDelay and doubles on every retry. Cancelled requests are never
// retried.
func Retry(ctx context.Context, op func() error, maxRetries int, initialDelay time.Duration) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = initialDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = time.Hour
	b.MaxElapsedTime = 0

	wrapped := func() error {
		err := op()
		if err == nil {
			return nil
		}
		if !IsRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	return backoff.Retry(wrapped, backoff.WithContext(backoff.WithMaxRetries(b, uint64(maxRetries)), ctx))
}
