package orchestrator

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/developer-mesh/tieredcache/pkg/tier"
)

func newTieredOrchestrator(t *testing.T, l0Max, l1Max int) *Orchestrator {
	t.Helper()
	l0cfg := tier.NewDefaultConfig("L0")
	l0cfg.MaxEntries = l0Max
	l0cfg.CleanupInterval = 0
	l1cfg := tier.NewDefaultConfig("L1")
	l1cfg.MaxEntries = l1Max
	l1cfg.CleanupInterval = 0

	l0 := NewMemoryTier("L0", tier.NewStore(l0cfg, nil, nil), DefaultL0Strategy())
	l1 := NewMemoryTier("L1", tier.NewStore(l1cfg, nil, nil), DefaultL1Strategy())
	l2 := NewMemoryTier("L2", tier.NewStore(tier.NewDefaultConfig("L2"), nil, nil), DefaultL2Strategy())

	cfg := NewDefaultConfig()
	o := New(cfg, []*TierConfig{l0, l1, l2}, nil, nil)
	t.Cleanup(o.Shutdown)
	return o
}

func TestOrchestratorSetGetRoundTrip(t *testing.T) {
	o := newTieredOrchestrator(t, 2, 10)
	ctx := context.Background()

	ok := o.Set(ctx, "a", "A1", SetOptions{ProducerCostMs: 600})
	require.True(t, ok)

	v, ok := o.Get(ctx, "a", GetOptions{})
	require.True(t, ok)
	assert.Equal(t, "A1", v)
}

func TestOrchestratorDeleteBroadcasts(t *testing.T) {
	o := newTieredOrchestrator(t, 2, 10)
	ctx := context.Background()
	o.Set(ctx, "a", "A1", SetOptions{})

	deleted := o.Delete(ctx, "a")
	assert.GreaterOrEqual(t, deleted, 1)

	_, ok := o.Get(ctx, "a", GetOptions{})
	assert.False(t, ok)
}

func TestOrchestratorInvalidateByTag(t *testing.T) {
	o := newTieredOrchestrator(t, 2, 10)
	ctx := context.Background()
	o.Set(ctx, "q1", "R1", SetOptions{Tags: []string{"search"}})
	o.Set(ctx, "q2", "R2", SetOptions{Tags: []string{"search"}})

	count := o.InvalidateByTag(ctx, "search")
	assert.GreaterOrEqual(t, count, 2)

	_, ok := o.Get(ctx, "q1", GetOptions{})
	assert.False(t, ok)
}

func TestOrchestratorFallbackProducer(t *testing.T) {
	o := newTieredOrchestrator(t, 2, 10)
	ctx := context.Background()
	called := 0
	v, ok := o.Get(ctx, "missing", GetOptions{Fallback: func(context.Context) (interface{}, error) {
		called++
		return "produced", nil
	}})
	require.True(t, ok)
	assert.Equal(t, "produced", v)
	assert.Equal(t, 1, called)

	v2, ok2 := o.Get(ctx, "missing", GetOptions{})
	require.True(t, ok2)
	assert.Equal(t, "produced", v2)
}

func TestOrchestratorPromotionAfterThreshold(t *testing.T) {
	o := newTieredOrchestrator(t, 10, 10)
	ctx := context.Background()

	// Low producer cost keeps DefaultL0Strategy and DefaultL1Strategy
	// from accepting the entry directly, so it only lands in L2.
	ok := o.Set(ctx, "b", "B1", SetOptions{ProducerCostMs: 0})
	require.True(t, ok)

	// spec §4.2: default promotion threshold for hits on L2 is 3.
	const threshold = 3
	require.Equal(t, threshold, o.cfg.promotionThreshold("L2"))
	for i := 0; i < threshold; i++ {
		v, ok := o.Get(ctx, "b", GetOptions{})
		require.True(t, ok)
		assert.Equal(t, "B1", v)
	}

	// After enough repeated reads from L2, the entry should have been
	// promoted into L0 directly.
	v, ok := o.tiers[0].Backend.Get(ctx, "b")
	require.True(t, ok)
	assert.Equal(t, "B1", v)
}

func TestOrchestratorWarmToleratesFailures(t *testing.T) {
	o := newTieredOrchestrator(t, 10, 10)
	ctx := context.Background()

	var succeeded int32
	entries := []WarmEntry{
		{Key: "ok-1", Priority: "high", Producer: func(context.Context) (interface{}, error) {
			atomic.AddInt32(&succeeded, 1)
			return "v1", nil
		}},
		{Key: "fail-1", Priority: "low", Producer: func(context.Context) (interface{}, error) {
			return nil, assertErr{}
		}},
	}
	o.Warm(ctx, entries)
	assert.Equal(t, int32(1), atomic.LoadInt32(&succeeded))

	v, ok := o.Get(ctx, "ok-1", GetOptions{})
	assert.True(t, ok)
	assert.Equal(t, "v1", v)
}

type assertErr struct{}

func (assertErr) Error() string { return "boom" }

func TestOrchestratorConcurrentSetGet(t *testing.T) {
	o := newTieredOrchestrator(t, 50, 50)
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := "k"
			o.Set(ctx, key, i, SetOptions{})
			o.Get(ctx, key, GetOptions{})
		}(i)
	}
	wg.Wait()
	_, ok := o.Get(ctx, "k", GetOptions{})
	assert.True(t, ok)
}

func TestOrchestratorHealth(t *testing.T) {
	o := newTieredOrchestrator(t, 2, 10)
	h := o.Health(context.Background())
	assert.Equal(t, "healthy", h.Status)
	assert.Len(t, h.Tiers, 3)
}
