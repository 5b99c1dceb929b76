package retry

import (
	"context"
	"time"
)

// Backoff computes the delay before the next reconnect attempt.
type Backoff interface {
	Next(attempt int) time.Duration
}

// ExponentialBackoff grows delays by powers of two, capped at Max.
type ExponentialBackoff struct {
	Base time.Duration
	Max  time.Duration
}

// Next returns the delay for the given attempt (1-based).
func (b ExponentialBackoff) Next(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	base := b.Base
	if base <= 0 {
		base = 500 * time.Millisecond
	}
	if attempt > 32 {
		attempt = 32
	}
	delay := base << (attempt - 1)
	if delay <= 0 || (b.Max > 0 && delay > b.Max) {
		if b.Max > 0 {
			return b.Max
		}
		return base
	}
	return delay
}

// DefaultBackoff returns the default reconnect policy.
func DefaultBackoff() Backoff {
	return ExponentialBackoff{
		Base: 500 * time.Millisecond,
		Max:  30 * time.Second,
	}
}

// Wait blocks for the delay of the given attempt or until ctx is done.
func Wait(ctx context.Context, b Backoff, attempt int) error {
	if b == nil {
		b = DefaultBackoff()
	}
	timer := time.NewTimer(b.Next(attempt))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
