package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig(maxAttempts int) Config {
	return Config{
		MaxAttempts:  maxAttempts,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(3), func(attempt int) error {
		calls++
		assert.Equal(t, calls, attempt, "attempts are 1-based")
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_RetriesUntilSuccess(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(5), func(attempt int) error {
		calls++
		if attempt < 3 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	sentinel := errors.New("still failing")
	calls := 0
	err := Do(context.Background(), fastConfig(3), func(int) error {
		calls++
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, 3, calls)
}

func TestDo_PermanentErrorStopsImmediately(t *testing.T) {
	sentinel := errors.New("not worth retrying")
	calls := 0
	err := Do(context.Background(), fastConfig(5), func(int) error {
		calls++
		return Permanent(sentinel)
	})
	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, 1, calls)
}

func TestDo_RetryIfFilters(t *testing.T) {
	retryable := errors.New("retryable")
	terminal := errors.New("terminal")

	cfg := fastConfig(5)
	cfg.RetryIf = func(err error) bool { return errors.Is(err, retryable) }

	calls := 0
	err := Do(context.Background(), cfg, func(attempt int) error {
		calls++
		if attempt == 1 {
			return retryable
		}
		return terminal
	})
	assert.ErrorIs(t, err, terminal)
	assert.Equal(t, 2, calls)
}

func TestDo_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	err := Do(ctx, fastConfig(10), func(int) error {
		calls++
		cancel()
		return errors.New("transient")
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestDo_AttemptNumberAdvances(t *testing.T) {
	var attempts []int
	_ = Do(context.Background(), fastConfig(4), func(attempt int) error {
		attempts = append(attempts, attempt)
		return errors.New("transient")
	})
	assert.Equal(t, []int{1, 2, 3, 4}, attempts)
}
