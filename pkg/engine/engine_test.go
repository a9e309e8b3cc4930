package engine

import (
	"context"
	"testing"
	"time"

	"github.com/developer-mesh/tieredcache/pkg/invalidation"
	"github.com/developer-mesh/tieredcache/pkg/loader"
	"github.com/developer-mesh/tieredcache/pkg/memoize"
	"github.com/developer-mesh/tieredcache/pkg/orchestrator"
	"github.com/developer-mesh/tieredcache/pkg/tier"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	l0cfg := tier.NewDefaultConfig("L0")
	l0cfg.CleanupInterval = 0
	l0store := tier.NewStore(l0cfg, nil, nil)
	l0 := orchestrator.NewMemoryTier("L0", l0store, orchestrator.DefaultL2Strategy())

	orch := orchestrator.New(orchestrator.NewDefaultConfig(), []*orchestrator.TierConfig{l0}, nil, nil)
	mem := memoize.New(memoize.NewDefaultConfig(), orch, nil, nil)
	ld := loader.New(loader.NewDefaultConfig(), l0store, nil, nil)
	invCfg := invalidation.NewDefaultConfig()
	invCfg.RegisterDefaults = false
	inv := invalidation.New(invCfg, orch, nil, nil)

	e := New(Config{
		Orchestrator: orch,
		Memoizer:     mem,
		Loader:       ld,
		Invalidation: inv,
		Tiers:        map[string]*tier.Store{"L0": l0store},
	})
	t.Cleanup(e.Shutdown)
	return e
}

func TestEngineSetGetDelete(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	if !e.Set(ctx, "k", "v", orchestrator.SetOptions{}) {
		t.Fatalf("expected set to be accepted")
	}
	v, ok := e.Get(ctx, "k", orchestrator.GetOptions{})
	if !ok || v != "v" {
		t.Fatalf("expected hit with v, got %v %v", v, ok)
	}
	if !e.Delete(ctx, "k") {
		t.Fatalf("expected delete to report removal")
	}
	if _, ok := e.Get(ctx, "k", orchestrator.GetOptions{}); ok {
		t.Fatalf("expected miss after delete")
	}
}

func TestEngineMemoizeAndInvalidateQueries(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	d := memoize.Descriptor{Kind: memoize.KindAPI, Operation: "op", Version: "v1"}
	var calls int
	producer := func(context.Context) (interface{}, error) {
		calls++
		return "v", nil
	}
	if _, err := e.Memoize(ctx, d, producer, time.Minute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := e.Memoize(ctx, d, producer, time.Minute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected producer invoked once, got %d", calls)
	}
	if n := e.InvalidateQueries(ctx, memoize.KindAPI, ""); n == 0 {
		t.Fatalf("expected at least one invalidation")
	}
}

func TestEngineLoadAndRegisterRule(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	req := loader.Request{ID: "r1", TotalSize: 30, ChunkSize: 10, Priority: loader.PriorityMedium, Strategy: loader.StrategySequential}
	res, err := e.Load(ctx, req, func(ctx context.Context, offset, limit int) ([]interface{}, error) {
		return []interface{}{offset}, nil
	}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Items) != 3 {
		t.Fatalf("expected 3 chunks worth of items, got %d", len(res.Items))
	}

	if err := e.RegisterInvalidationRule(&invalidation.Rule{ID: "x", Pattern: "x:", Tags: []string{"x"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stats := e.Stats(ctx)
	if stats.Health.Status == "" {
		t.Fatalf("expected a health status")
	}
}
