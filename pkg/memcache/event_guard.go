// pkg/memcache/event_guard.go
package mem

import (
	"context"
	"sync"
	"time"
)

// EventGuard claims a key for a bounded time so concurrent deliveries of the
// same webhook event are processed once.
type EventGuard interface {
	// TryAcquire returns false when key is already held and not expired.
	TryAcquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

type MemoryGuard struct {
	mu   sync.Mutex
	data map[string]time.Time
	now  func() time.Time
}

func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{
		data: make(map[string]time.Time),
		now:  time.Now,
	}
}

func (g *MemoryGuard) TryAcquire(_ context.Context, key string, ttl time.Duration) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if expiresAt, ok := g.data[key]; ok && now.Before(expiresAt) {
		return false, nil
	}
	g.data[key] = now.Add(ttl)
	g.sweep(now)
	return true, nil
}

func (g *MemoryGuard) Release(_ context.Context, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.data, key)
	return nil
}

// sweep drops expired entries; callers hold mu.
func (g *MemoryGuard) sweep(now time.Time) {
	for k, expiresAt := range g.data {
		if now.After(expiresAt) {
			delete(g.data, k)
		}
	}
}
