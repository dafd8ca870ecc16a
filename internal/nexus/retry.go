package nexus

import (
	"context"
	"errors"
	"time"
)

const (
	defaultMaxRetries     = 3
	defaultInitialBackoff = time.Second
	defaultMaxBackoff     = 30 * time.Second
)

// retryPolicy retries transient upstream failures with doubling backoff.
type retryPolicy struct {
	maxRetries     int
	initialBackoff time.Duration
	maxBackoff     time.Duration
}

// isTransient reports whether the failure is worth retrying. Only rate
// limiting and server errors qualify; cancellation never does.
func isTransient(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrServerError)
}

// do runs fn, retrying transient failures up to maxRetries times. The
// backoff wait is preempted by ctx.
func (p retryPolicy) do(ctx context.Context, fn func() error) error {
	backoff := p.initialBackoff
	var err error

	for attempt := 0; ; attempt++ {
		err = fn()
		if err == nil || !isTransient(err) || attempt >= p.maxRetries {
			return err
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		backoff *= 2
		if backoff > p.maxBackoff {
			backoff = p.maxBackoff
		}
	}
}
