// Command example wires TierStore, TierOrchestrator, QueryMemoizer,
// IncrementalLoader, and InvalidationController into one Engine and
// runs a short demonstration of its main operations.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/developer-mesh/tieredcache/internal/observability"
	"github.com/developer-mesh/tieredcache/pkg/engine"
	"github.com/developer-mesh/tieredcache/pkg/invalidation"
	"github.com/developer-mesh/tieredcache/pkg/loader"
	"github.com/developer-mesh/tieredcache/pkg/memoize"
	"github.com/developer-mesh/tieredcache/pkg/orchestrator"
	"github.com/developer-mesh/tieredcache/pkg/tier"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	logger := observability.NewStandardLogger("example")

	l0Store := tier.NewStore(withEviction(tier.NewDefaultConfig("L0"), tier.EvictionLRU, 64), logger, nil)
	l1Store := tier.NewStore(withEviction(tier.NewDefaultConfig("L1"), tier.EvictionARC, 512), logger, nil)
	l2Store := tier.NewStore(withEviction(tier.NewDefaultConfig("L2"), tier.EvictionAdaptive, 4096), logger, nil)

	tiers := []*orchestrator.TierConfig{
		orchestrator.NewMemoryTier("L0", l0Store, orchestrator.DefaultL0Strategy()),
		orchestrator.NewMemoryTier("L1", l1Store, orchestrator.DefaultL1Strategy()),
		orchestrator.NewMemoryTier("L2", l2Store, orchestrator.DefaultL2Strategy()),
	}
	orch := orchestrator.New(orchestrator.NewDefaultConfig(), tiers, logger, nil)

	mem := memoize.New(memoize.NewDefaultConfig(), orch, logger, nil)
	ld := loader.New(loader.NewDefaultConfig(), l2Store, logger, nil)
	inv := invalidation.New(invalidation.NewDefaultConfig(), orch, logger, nil)

	e := engine.New(engine.Config{
		Orchestrator: orch,
		Memoizer:     mem,
		Loader:       ld,
		Invalidation: inv,
		Tiers: map[string]*tier.Store{
			"L0": l0Store,
			"L1": l1Store,
			"L2": l2Store,
		},
	})
	defer e.Shutdown()

	runDemo(ctx, e)
}

func withEviction(cfg *tier.Config, eviction tier.EvictionPolicy, maxEntries int) *tier.Config {
	cfg.Eviction = eviction
	cfg.MaxEntries = maxEntries
	return cfg
}

func runDemo(ctx context.Context, e *engine.Engine) {
	e.Set(ctx, "user:1", map[string]string{"name": "ada"}, orchestrator.SetOptions{Tags: []string{"user"}})
	if v, ok := e.Get(ctx, "user:1", orchestrator.GetOptions{}); ok {
		fmt.Println("get user:1 ->", v)
	}

	d := memoize.Descriptor{Kind: memoize.KindDatabase, Operation: "find-user", Version: "v1", Parameters: map[string]interface{}{"id": 1}}
	value, err := e.Memoize(ctx, d, func(ctx context.Context) (interface{}, error) {
		time.Sleep(10 * time.Millisecond)
		return "expensive result", nil
	}, time.Minute)
	if err != nil {
		log.Printf("memoize failed: %v", err)
	} else {
		fmt.Println("memoize ->", value)
	}

	req := loader.Request{ID: "demo-load", TotalSize: 450, ChunkSize: 100, Priority: loader.PriorityHigh, Strategy: loader.StrategyAdaptive, MaxParallelChunks: 4}
	source := func(ctx context.Context, offset, limit int) ([]interface{}, error) {
		items := make([]interface{}, 0, limit)
		for i := offset; i < offset+limit && i < req.TotalSize; i++ {
			items = append(items, i)
		}
		return items, nil
	}
	result, err := e.Load(ctx, req, source, func(p loader.Progress) {
		fmt.Printf("load progress: %d/%d chunks (%.0f%%)\n", p.LoadedChunks, p.TotalChunks, p.Percentage)
	})
	if err != nil {
		log.Printf("load failed: %v", err)
	} else {
		fmt.Println("loaded items:", len(result.Items))
	}

	e.OnEvent("user", "updated", nil)
	count := e.InvalidateByTag(ctx, "user")
	fmt.Println("invalidated entries tagged user:", count)

	health := e.Health(ctx)
	fmt.Println("health:", health.Status)
}
