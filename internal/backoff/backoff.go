// Package backoff provides a bounded exponential retry policy for calls to
// external services.
package backoff

import (
	"context"
	"fmt"
	"time"
)

// Sleeper abstracts time.Sleep so retry timing is testable without real
// delays.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// RealSleeper sleeps on the wall clock, waking early on context cancellation.
type RealSleeper struct{}

func (RealSleeper) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Policy describes when and how often a failing call is retried. The zero
// value is not usable; construct with New.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Retryable   func(error) bool
	sleeper     Sleeper
}

// New returns a policy with exponentially growing delays: base, 2*base,
// 4*base and so on, capped at maxDelay. retryable decides whether a given
// error consumes the retry budget; errors it rejects fail immediately.
func New(maxAttempts int, baseDelay, maxDelay time.Duration, retryable func(error) bool) *Policy {
	return &Policy{
		MaxAttempts: maxAttempts,
		BaseDelay:   baseDelay,
		MaxDelay:    maxDelay,
		Retryable:   retryable,
		sleeper:     RealSleeper{},
	}
}

// WithSleeper replaces the sleeper. Used in tests.
func (p *Policy) WithSleeper(s Sleeper) *Policy {
	p.sleeper = s
	return p
}

// ExhaustedError reports that every attempt failed with a retryable error.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("retries exhausted after %d attempts: %v", e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error { return e.Last }

// Do invokes fn until it succeeds, fails with a non-retryable error, or the
// attempt budget runs out. The delay before attempt n+1 is
// min(base*2^(n-1), maxDelay).
func (p *Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	delay := p.BaseDelay

	var last error

	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}

		if p.Retryable == nil || !p.Retryable(err) {
			return err
		}

		last = err

		if attempt == p.MaxAttempts {
			break
		}

		if err := p.sleeper.Sleep(ctx, delay); err != nil {
			return fmt.Errorf("retry interrupted: %w", err)
		}

		delay *= 2
		if delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}

	return &ExhaustedError{Attempts: p.MaxAttempts, Last: last}
}
