package orchestrator

import (
	"context"
	"time"

	"github.com/developer-mesh/tieredcache/pkg/tier"
)

// memoryBackend adapts a *tier.Store (which is non-suspending and takes
// no context) to the Backend interface.
type memoryBackend struct {
	store *tier.Store
}

func newMemoryBackend(store *tier.Store) *memoryBackend {
	return &memoryBackend{store: store}
}

func (b *memoryBackend) Get(_ context.Context, key string) (interface{}, bool) {
	return b.store.Get(key)
}

func (b *memoryBackend) Set(_ context.Context, key string, value interface{}, ttl time.Duration, tags []string) bool {
	return b.store.Set(key, value, tier.SetOptions{TTL: ttl, Tags: tags})
}

func (b *memoryBackend) Delete(_ context.Context, key string) bool {
	return b.store.Delete(key)
}

func (b *memoryBackend) InvalidateByTag(_ context.Context, tag string) int {
	return b.store.InvalidateByTag(tag)
}

func (b *memoryBackend) Has(_ context.Context, key string) bool {
	return b.store.Has(key)
}
