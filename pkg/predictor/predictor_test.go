package predictor

import (
	"context"
	"testing"
	"time"

	"github.com/developer-mesh/tieredcache/pkg/orchestrator"
	"github.com/developer-mesh/tieredcache/pkg/tier"
)

func TestTapFansOutToMultipleSubscribers(t *testing.T) {
	storeCfg := tier.NewDefaultConfig("L0")
	storeCfg.CleanupInterval = 0
	l0 := orchestrator.NewMemoryTier("L0", tier.NewStore(storeCfg, nil, nil), orchestrator.DefaultL2Strategy())
	orch := orchestrator.New(orchestrator.NewDefaultConfig(), []*orchestrator.TierConfig{l0}, nil, nil)
	defer orch.Shutdown()

	tap := NewTap(orch)
	subA := tap.Subscribe(4)
	subB := tap.Subscribe(4)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go tap.Run(ctx)

	orch.Set(ctx, "k", "v", orchestrator.SetOptions{})
	orch.Get(ctx, "k", orchestrator.GetOptions{})

	select {
	case ev := <-subA:
		if ev.Key != "k" {
			t.Fatalf("unexpected key on subA: %v", ev.Key)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for event on subA")
	}
	select {
	case ev := <-subB:
		if ev.Key != "k" {
			t.Fatalf("unexpected key on subB: %v", ev.Key)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for event on subB")
	}
}

func TestSourceInterfaceSatisfiedByOrchestrator(t *testing.T) {
	var _ Source = (*orchestrator.Orchestrator)(nil)
}
