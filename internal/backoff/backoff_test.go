package backoff_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DJ-RINO/freee-auto-bookkeeping/internal/backoff"
)

type recordingSleeper struct {
	slept []time.Duration
}

func (s *recordingSleeper) Sleep(_ context.Context, d time.Duration) error {
	s.slept = append(s.slept, d)
	return nil
}

var errTransient = errors.New("upstream returned 429")

func retryAll(error) bool { return true }

func TestPolicy_SucceedsOnFifthAttempt(t *testing.T) {
	sleeper := &recordingSleeper{}
	p := backoff.New(5, time.Second, 16*time.Second, retryAll).WithSleeper(sleeper)

	calls := 0
	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 5 {
			return errTransient
		}

		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 5, calls)
	assert.Equal(t, []time.Duration{
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
	}, sleeper.slept)

	var total time.Duration
	for _, d := range sleeper.slept {
		total += d
	}

	assert.GreaterOrEqual(t, total, 15*time.Second)
}

func TestPolicy_Exhaustion(t *testing.T) {
	sleeper := &recordingSleeper{}
	p := backoff.New(5, time.Second, 16*time.Second, retryAll).WithSleeper(sleeper)

	calls := 0
	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		return errTransient
	})

	require.Error(t, err)
	assert.Equal(t, 5, calls)

	var exhausted *backoff.ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 5, exhausted.Attempts)
	assert.ErrorIs(t, err, errTransient)

	// No sleep after the final attempt.
	assert.Len(t, sleeper.slept, 4)
}

func TestPolicy_NonRetryableFailsImmediately(t *testing.T) {
	sleeper := &recordingSleeper{}
	permanent := errors.New("400 bad request")
	p := backoff.New(5, time.Second, 16*time.Second, func(err error) bool {
		return !errors.Is(err, permanent)
	}).WithSleeper(sleeper)

	calls := 0
	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		return permanent
	})

	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
	assert.Empty(t, sleeper.slept)

	var exhausted *backoff.ExhaustedError
	assert.False(t, errors.As(err, &exhausted))
}

func TestPolicy_DelayCappedAtMax(t *testing.T) {
	sleeper := &recordingSleeper{}
	p := backoff.New(7, time.Second, 16*time.Second, retryAll).WithSleeper(sleeper)

	_ = p.Do(context.Background(), func(context.Context) error {
		return errTransient
	})

	require.Len(t, sleeper.slept, 6)
	assert.Equal(t, 16*time.Second, sleeper.slept[4])
	assert.Equal(t, 16*time.Second, sleeper.slept[5])
}

func TestPolicy_ContextCancelDuringSleep(t *testing.T) {
	p := backoff.New(5, time.Millisecond, 16*time.Millisecond, retryAll)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.Do(ctx, func(context.Context) error {
		return errTransient
	})

	assert.ErrorIs(t, err, context.Canceled)
}
