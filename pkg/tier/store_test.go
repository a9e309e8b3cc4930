package tier

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, policy EvictionPolicy, maxEntries int) *Store {
	t.Helper()
	cfg := NewDefaultConfig("test")
	cfg.Eviction = policy
	cfg.MaxEntries = maxEntries
	cfg.MemoryBudgetBytes = 1 << 20
	cfg.CleanupInterval = 0
	s := NewStore(cfg, nil, nil)
	t.Cleanup(s.Close)
	return s
}

func TestStoreSetGetRoundTrip(t *testing.T) {
	s := newTestStore(t, EvictionLRU, 10)
	ok := s.Set("a", "A1", SetOptions{})
	require.True(t, ok)
	v, ok := s.Get("a")
	require.True(t, ok)
	assert.Equal(t, "A1", v)
}

func TestStoreDeleteIdempotent(t *testing.T) {
	s := newTestStore(t, EvictionLRU, 10)
	s.Set("a", "A1", SetOptions{})
	assert.True(t, s.Delete("a"))
	assert.False(t, s.Delete("a"))
	_, ok := s.Get("a")
	assert.False(t, ok)
}

func TestStoreTTLExpiry(t *testing.T) {
	s := newTestStore(t, EvictionLRU, 10)
	s.Set("a", "A1", SetOptions{TTL: 10 * time.Millisecond})
	_, ok := s.Get("a")
	require.True(t, ok)
	time.Sleep(20 * time.Millisecond)
	_, ok = s.Get("a")
	assert.False(t, ok)
}

func TestStoreInvalidateByTag(t *testing.T) {
	s := newTestStore(t, EvictionLRU, 10)
	s.Set("q1", "R1", SetOptions{Tags: []string{"search"}})
	s.Set("q2", "R2", SetOptions{Tags: []string{"search"}})
	s.Set("q3", "R3", SetOptions{Tags: []string{"other"}})

	count := s.InvalidateByTag("search")
	assert.Equal(t, 2, count)

	_, ok := s.Get("q1")
	assert.False(t, ok)
	_, ok = s.Get("q2")
	assert.False(t, ok)
	_, ok = s.Get("q3")
	assert.True(t, ok)

	assert.Equal(t, 0, s.InvalidateByTag("search"))
}

func TestStoreRejectsOversizedEntry(t *testing.T) {
	s := newTestStore(t, EvictionLRU, 10)
	cfg := s.cfg
	cfg.MemoryBudgetBytes = 4
	ok := s.Set("big", "this value is much larger than four bytes", SetOptions{})
	assert.False(t, ok)
	_, exists := s.Get("big")
	assert.False(t, exists)
}

func TestStoreLRUEvictsLeastRecentlyUsed(t *testing.T) {
	s := newTestStore(t, EvictionLRU, 2)
	s.Set("a", "A1", SetOptions{})
	s.Set("b", "B1", SetOptions{})
	s.Set("c", "C1", SetOptions{}) // evicts "a" (LRU tail)

	_, ok := s.Get("a")
	assert.False(t, ok)
	_, ok = s.Get("b")
	assert.True(t, ok)
	_, ok = s.Get("c")
	assert.True(t, ok)
}

func TestStoreKeysMatchingPrefix(t *testing.T) {
	s := newTestStore(t, EvictionLRU, 10)
	s.Set("search:1", "v", SetOptions{})
	s.Set("search:2", "v", SetOptions{})
	s.Set("kb:1", "v", SetOptions{})

	keys := s.KeysMatching("search:")
	assert.Len(t, keys, 2)
}

func TestStoreSnapshotStatsHitRate(t *testing.T) {
	s := newTestStore(t, EvictionLRU, 10)
	s.Set("a", "A1", SetOptions{})
	s.Get("a")
	s.Get("missing")

	stats := s.SnapshotStats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.InDelta(t, 0.5, stats.HitRate, 0.001)
}

func TestStoreClearResetsState(t *testing.T) {
	s := newTestStore(t, EvictionLRU, 10)
	s.Set("a", "A1", SetOptions{})
	s.Get("a")
	s.Clear()

	_, ok := s.Get("a")
	assert.False(t, ok)
	stats := s.SnapshotStats()
	assert.Equal(t, int64(0), stats.Hits)
	assert.Equal(t, 0, stats.EntryCount)
}
