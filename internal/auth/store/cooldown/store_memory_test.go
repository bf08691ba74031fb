package cooldown

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"takenotes/pkg/platform/sentinel"
)

func TestInMemoryAcquire(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	store := NewInMemory(WithClock(func() time.Time { return now }))

	t.Run("zero interval never limits", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			wait, err := store.Acquire(ctx, "free@b.com", 0)
			require.NoError(t, err)
			assert.Zero(t, wait)
		}
	})

	t.Run("second issuance inside interval is rejected", func(t *testing.T) {
		_, err := store.Acquire(ctx, "a@b.com", time.Minute)
		require.NoError(t, err)

		now = now.Add(20 * time.Second)
		wait, err := store.Acquire(ctx, "a@b.com", time.Minute)
		require.ErrorIs(t, err, sentinel.ErrRateLimited)
		assert.Equal(t, 40*time.Second, wait)
	})

	t.Run("issuance allowed once interval elapsed", func(t *testing.T) {
		now = now.Add(40 * time.Second)
		_, err := store.Acquire(ctx, "a@b.com", time.Minute)
		require.NoError(t, err)
	})

	t.Run("addresses are limited independently", func(t *testing.T) {
		_, err := store.Acquire(ctx, "other@b.com", time.Minute)
		require.NoError(t, err)
	})
}
