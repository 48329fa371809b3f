package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWithRetry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("succeeds after transient failures", func(t *testing.T) {
		calls := 0
		err := withRetry(ctx, fastRetry(), func() error {
			calls++
			if calls < 3 {
				return transient(errors.New("busy"))
			}
			return nil
		})
		assert.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("permanent errors stop immediately", func(t *testing.T) {
		calls := 0
		err := withRetry(ctx, fastRetry(), func() error {
			calls++
			return ErrSlotUnavailable
		})
		assert.ErrorIs(t, err, ErrSlotUnavailable)
		assert.Equal(t, 1, calls)
	})

	t.Run("exhausted budget reports contention", func(t *testing.T) {
		calls := 0
		err := withRetry(ctx, fastRetry(), func() error {
			calls++
			return transient(errors.New("busy"))
		})
		assert.ErrorIs(t, err, ErrContention)
		assert.Contains(t, err.Error(), "gave up after 2 retries")
		assert.Equal(t, 3, calls)
	})

	t.Run("context cancellation aborts backoff", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cfg := RetryConfig{MaxRetries: 5, InitialDelay: time.Hour}
		err := withRetry(cctx, cfg, func() error {
			cancel()
			return transient(errors.New("busy"))
		})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestTransient(t *testing.T) {
	t.Parallel()
	assert.Nil(t, transient(nil))
	base := errors.New("locked")
	err := transient(base)
	assert.True(t, isTransient(err))
	assert.ErrorIs(t, err, base)
	assert.False(t, isTransient(base))
}
