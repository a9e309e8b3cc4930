package memoize

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/developer-mesh/tieredcache/pkg/orchestrator"
	"github.com/developer-mesh/tieredcache/pkg/tier"
)

func newTestMemoizer(t *testing.T, cfg Config) *Memoizer {
	t.Helper()
	storeCfg := tier.NewDefaultConfig("L0")
	storeCfg.CleanupInterval = 0
	l0 := orchestrator.NewMemoryTier("L0", tier.NewStore(storeCfg, nil, nil), orchestrator.DefaultL2Strategy())
	orch := orchestrator.New(orchestrator.NewDefaultConfig(), []*orchestrator.TierConfig{l0}, nil, nil)
	m := New(cfg, orch, nil, nil)
	t.Cleanup(func() {
		m.Close()
		orch.Shutdown()
	})
	return m
}

func TestMemoizerCacheHitAfterMiss(t *testing.T) {
	m := newTestMemoizer(t, NewDefaultConfig())
	ctx := context.Background()
	d := Descriptor{Kind: KindGeneric, Operation: "op", Version: "v1", Parameters: map[string]interface{}{"id": 1}}

	var calls int32
	producer := func(context.Context) (interface{}, error) {
		atomic.AddInt32(&calls, 1)
		return "value", nil
	}

	v1, err := m.Execute(ctx, d, producer, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "value", v1)

	v2, err := m.Execute(ctx, d, producer, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "value", v2)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestMemoizerSingleFlight(t *testing.T) {
	m := newTestMemoizer(t, NewDefaultConfig())
	ctx := context.Background()
	d := Descriptor{Kind: KindGeneric, Operation: "slow", Version: "v1", Parameters: map[string]interface{}{}}

	var calls int32
	producer := func(context.Context) (interface{}, error) {
		atomic.AddInt32(&calls, 1)
		time.Sleep(200 * time.Millisecond)
		return 42, nil
	}

	const n = 50
	results := make([]interface{}, n)
	errs := make([]error, n)
	done := make(chan int, n)
	for i := 0; i < n; i++ {
		go func(i int) {
			v, err := m.Execute(ctx, d, producer, time.Minute)
			results[i] = v
			errs[i] = err
			done <- i
		}(i)
	}
	for i := 0; i < n; i++ {
		<-done
	}

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, 42, results[i])
	}
}

func TestMemoizerProducerFailurePropagates(t *testing.T) {
	m := newTestMemoizer(t, NewDefaultConfig())
	ctx := context.Background()
	d := Descriptor{Kind: KindGeneric, Operation: "fails", Version: "v1", Parameters: map[string]interface{}{}}

	_, err := m.Execute(ctx, d, func(context.Context) (interface{}, error) {
		return nil, assertErr{}
	}, time.Minute)
	require.Error(t, err)
}

type assertErr struct{}

func (assertErr) Error() string { return "boom" }

func TestMemoizerTimeoutPropagation(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.MaxQueryTime = 50 * time.Millisecond
	m := newTestMemoizer(t, cfg)
	ctx := context.Background()
	d := Descriptor{Kind: KindGeneric, Operation: "hang", Version: "v1", Parameters: map[string]interface{}{}}

	block := make(chan struct{})
	defer close(block)

	start := time.Now()
	_, err := m.Execute(ctx, d, func(ctx context.Context) (interface{}, error) {
		select {
		case <-block:
			return "late", nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}, time.Minute)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 200*time.Millisecond)
}

func TestMemoizerInvalidateByKind(t *testing.T) {
	m := newTestMemoizer(t, NewDefaultConfig())
	ctx := context.Background()
	d := Descriptor{Kind: KindSearch, Operation: "op", Version: "v1", Parameters: map[string]interface{}{"q": "a"}}
	_, err := m.Execute(ctx, d, func(context.Context) (interface{}, error) { return "v", nil }, time.Minute)
	require.NoError(t, err)

	count := m.Invalidate(ctx, KindSearch, "")
	assert.Equal(t, 1, count)

	var calls int32
	_, err = m.Execute(ctx, d, func(context.Context) (interface{}, error) {
		atomic.AddInt32(&calls, 1)
		return "v2", nil
	}, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestMemoizerBatchExecute(t *testing.T) {
	m := newTestMemoizer(t, NewDefaultConfig())
	ctx := context.Background()
	items := []BatchItem{
		{Descriptor: Descriptor{Kind: KindGeneric, Operation: "a", Version: "v1"}, Producer: func(context.Context) (interface{}, error) { return "A", nil }, TTL: time.Minute},
		{Descriptor: Descriptor{Kind: KindGeneric, Operation: "b", Version: "v1"}, Producer: func(context.Context) (interface{}, error) { return "B", nil }, TTL: time.Minute},
	}
	values, errs := m.ExecuteBatch(ctx, items)
	for _, err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, "A", values[0])
	assert.Equal(t, "B", values[1])
}
