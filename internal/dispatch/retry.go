package dispatch

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	// MaxRetries is the maximum number of retries for direct completions.
	MaxRetries = 3
	// RetryInitialInterval is the initial interval for exponential backoff.
	RetryInitialInterval = time.Second
	// RetryMaxInterval is the maximum interval for exponential backoff.
	RetryMaxInterval = 30 * time.Second
	// RetryMaxElapsedTime is the maximum total time for retries.
	RetryMaxElapsedTime = 2 * time.Minute
)

// BackOffFactory creates the retry policy for one direct call.
type BackOffFactory func(ctx context.Context) backoff.BackOff

// newRetryBackoff creates an exponential backoff with jitter for model retries.
func newRetryBackoff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = RetryInitialInterval
	b.MaxInterval = RetryMaxInterval
	b.MaxElapsedTime = RetryMaxElapsedTime
	b.RandomizationFactor = 0.5
	b.Multiplier = 2.0
	b.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(b, MaxRetries), ctx)
}

// NoRetry disables retries.
func NoRetry(ctx context.Context) backoff.BackOff {
	return backoff.WithContext(&backoff.StopBackOff{}, ctx)
}
