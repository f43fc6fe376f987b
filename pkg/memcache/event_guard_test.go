package mem

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryGuard(t *testing.T) {
	ctx := context.Background()

	t.Run("second acquire is refused", func(t *testing.T) {
		g := NewMemoryGuard()

		ok, err := g.TryAcquire(ctx, "evt_1", time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = g.TryAcquire(ctx, "evt_1", time.Minute)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("release frees the key", func(t *testing.T) {
		g := NewMemoryGuard()
		_, _ = g.TryAcquire(ctx, "evt_1", time.Minute)
		require.NoError(t, g.Release(ctx, "evt_1"))

		ok, err := g.TryAcquire(ctx, "evt_1", time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("expired claim can be retaken", func(t *testing.T) {
		g := NewMemoryGuard()
		now := time.Now()
		g.now = func() time.Time { return now }
		_, _ = g.TryAcquire(ctx, "evt_1", time.Second)

		g.now = func() time.Time { return now.Add(2 * time.Second) }
		ok, err := g.TryAcquire(ctx, "evt_1", time.Second)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("only one concurrent winner", func(t *testing.T) {
		g := NewMemoryGuard()
		var wins int32
		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if ok, _ := g.TryAcquire(ctx, "evt_race", time.Minute); ok {
					atomic.AddInt32(&wins, 1)
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, int32(1), wins)
	})
}
