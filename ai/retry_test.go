package ai

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryWithBackoff(t *testing.T) {
	ctx := context.Background()

	t.Run("succeeds first time", func(t *testing.T) {
		calls := 0
		err := RetryWithBackoff(ctx, func() error {
			calls++
			return nil
		}, 3, time.Millisecond)
		require.NoError(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("succeeds after failures", func(t *testing.T) {
		calls := 0
		err := RetryWithBackoff(ctx, func() error {
			calls++
			if calls < 3 {
				return errors.New("transient")
			}
			return nil
		}, 3, time.Millisecond)
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("returns last error", func(t *testing.T) {
		calls := 0
		err := RetryWithBackoff(ctx, func() error {
			calls++
			return fmt.Errorf("attempt %d", calls)
		}, 2, time.Millisecond)
		require.Error(t, err)
		assert.Equal(t, "attempt 2", err.Error())
	})

	t.Run("invalid max attempts", func(t *testing.T) {
		err := RetryWithBackoff(ctx, func() error { return nil }, 0, time.Millisecond)
		assert.ErrorIs(t, err, ErrInvalidMaxAttempts)
	})

	t.Run("permanent error stops", func(t *testing.T) {
		calls := 0
		sentinel := errors.New("bad request")
		err := RetryWithBackoff(ctx, func() error {
			calls++
			return Permanent(sentinel)
		}, 5, time.Millisecond)
		assert.Equal(t, sentinel, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("input too long is not retried", func(t *testing.T) {
		calls := 0
		err := RetryWithBackoff(ctx, func() error {
			calls++
			return fmt.Errorf("embed: %w", ErrInputTooLong)
		}, 5, time.Millisecond)
		assert.ErrorIs(t, err, ErrInputTooLong)
		assert.Equal(t, 1, calls)
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		err := RetryWithBackoff(cctx, func() error { return nil }, 3, time.Millisecond)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("permanent nil is nil", func(t *testing.T) {
		assert.NoError(t, Permanent(nil))
	})
}
