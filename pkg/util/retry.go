package util

import (
	"context"
	"github.com/cenkalti/backoff/v5"
	"time"
)

// RetryConfig provides standard retry configurations
type RetryConfig struct {
	InitialInterval     time.Duration
	MaxInterval         time.Duration
	MaxElapsedTime      time.Duration
	RandomizationFactor float64
}

var (
	// ReadinessRetry is configured for waiting on a local endpoint to come up
	ReadinessRetry = RetryConfig{
		InitialInterval:     100 * time.Millisecond,
		MaxInterval:         2 * time.Second,
		MaxElapsedTime:      30 * time.Second,
		RandomizationFactor: 0.2,
	}
)

// RetryOperation executes an operation with retry logic
func RetryOperation[T any](ctx context.Context, operation func() (T, error), config RetryConfig, maxRetries uint) (T, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = config.InitialInterval
	b.MaxInterval = config.MaxInterval
	b.RandomizationFactor = config.RandomizationFactor

	opts := []backoff.RetryOption{
		backoff.WithBackOff(b),
	}
	if maxRetries > 0 {
		opts = append(opts, backoff.WithMaxTries(maxRetries))
	}
	if config.MaxElapsedTime > 0 {
		opts = append(opts, backoff.WithMaxElapsedTime(config.MaxElapsedTime))
	}

	return backoff.Retry(ctx, operation, opts...)
}

// WaitReady blocks until check succeeds or gives up when the retry budget or ctx ends
func WaitReady(ctx context.Context, check func() error, config RetryConfig, maxRetries uint) error {
	_, err := RetryOperation(ctx, func() (struct{}, error) {
		return struct{}{}, check()
	}, config, maxRetries)
	return err
}
