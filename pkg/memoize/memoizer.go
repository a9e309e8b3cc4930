package memoize

import (
	"context"
	"sync"
	"time"

	"github.com/developer-mesh/tieredcache/internal/cerrors"
	"github.com/developer-mesh/tieredcache/internal/observability"
	"github.com/developer-mesh/tieredcache/pkg/orchestrator"
)

// Producer computes the value for a Descriptor on a cache miss.
type Producer func(ctx context.Context) (interface{}, error)

// call is the single-flight record for one in-progress key.
type call struct {
	wg    sync.WaitGroup
	value interface{}
	err   error
}

// Memoizer wraps an orchestrator to provide execute(descriptor,
// producer, ttl) -> value with single-flight deduplication (spec §4.3).
type Memoizer struct {
	cfg     Config
	orch    *orchestrator.Orchestrator
	logger  observability.Logger
	metrics observability.MetricsClient
	stats   *statsRegistry
	degraded *degradedController

	mu       sync.Mutex
	inflight map[string]*call

	cancelRecovery context.CancelFunc
}

// New constructs a Memoizer over orch and starts its degraded-mode
// recovery checker.
func New(cfg Config, orch *orchestrator.Orchestrator, logger observability.Logger, metrics observability.MetricsClient) *Memoizer {
	if logger == nil {
		logger = observability.NewNoopLogger()
	}
	if metrics == nil {
		metrics = observability.NewNoopMetrics()
	}
	l := logger.WithPrefix("memoize")
	m := &Memoizer{
		cfg:      cfg,
		orch:     orch,
		logger:   l,
		metrics:  metrics,
		stats:    newStatsRegistry(),
		degraded: newDegradedController(l, metrics),
		inflight: make(map[string]*call),
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.cancelRecovery = cancel
	go m.degraded.run(ctx, m.cfg.RecoveryCheckInterval, func(probeCtx context.Context) bool {
		return m.orch.Health(probeCtx).Status == "healthy"
	})
	return m
}

// Close stops the background recovery checker.
func (m *Memoizer) Close() {
	if m.cancelRecovery != nil {
		m.cancelRecovery()
	}
}

func (m *Memoizer) maxQueryTime() time.Duration {
	if m.cfg.MaxQueryTime <= 0 {
		return 30 * time.Second
	}
	return m.cfg.MaxQueryTime
}

func (m *Memoizer) ttlOrDefault(ttl time.Duration) time.Duration {
	if ttl > 0 {
		return ttl
	}
	return m.cfg.DefaultTTL
}

// Execute looks up d's canonical key via the orchestrator; on a miss
// it runs producer under single-flight so concurrent callers for the
// same key share one invocation (spec §8 P6).
func (m *Memoizer) Execute(ctx context.Context, d Descriptor, producer Producer, ttl time.Duration) (interface{}, error) {
	key, err := CanonicalKey(d)
	if err != nil {
		return nil, cerrors.ConfigurationError("memoize.execute", "invalid descriptor: "+err.Error())
	}

	if !m.degraded.isActive() {
		start := time.Now()
		if raw, ok := m.orch.Get(ctx, key, orchestrator.GetOptions{}); ok {
			if w, ok := raw.(*wrapper); ok && !w.expired(time.Now()) {
				m.stats.recordHit(key, time.Since(start))
				return w.Value, nil
			}
		}
		if m.orch.Health(ctx).Status == "unhealthy" {
			m.degraded.enter("orchestrator unhealthy")
		}
	}

	m.mu.Lock()
	if c, ok := m.inflight[key]; ok {
		m.mu.Unlock()
		return m.await(ctx, c)
	}
	c := &call{}
	c.wg.Add(1)
	m.inflight[key] = c
	m.mu.Unlock()

	value, err := m.runProducer(key, d, producer, ttl)
	c.value, c.err = value, err
	c.wg.Done()

	m.mu.Lock()
	delete(m.inflight, key)
	m.mu.Unlock()

	return value, err
}

func (m *Memoizer) await(ctx context.Context, c *call) (interface{}, error) {
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return c.value, c.err
	case <-ctx.Done():
		return nil, cerrors.ProducerTimeout("memoize.execute")
	}
}

// runProducer bounds producer by MaxQueryTime using a context
// independent of any single caller, so a timeout resolves identically
// for the originator and every single-flight waiter.
func (m *Memoizer) runProducer(key string, d Descriptor, producer Producer, ttl time.Duration) (interface{}, error) {
	ctx, cancel := context.WithTimeout(context.Background(), m.maxQueryTime())
	defer cancel()

	type result struct {
		value interface{}
		err   error
	}
	resultCh := make(chan result, 1)
	start := time.Now()
	go func() {
		v, err := producer(ctx)
		resultCh <- result{value: v, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, cerrors.ProducerTimeout("memoize.execute")
	case res := <-resultCh:
		elapsed := time.Since(start)
		if res.err != nil {
			return nil, cerrors.ProducerFailed("memoize.execute", res.err)
		}
		m.stats.recordProducer(key, elapsed)
		w := &wrapper{
			Value:           res.value,
			CreatedAt:       time.Now(),
			TTL:             m.ttlOrDefault(ttl),
			ExecutionTimeMs: elapsed.Milliseconds(),
			SizeBytes:       estimateSize(res.value),
			Descriptor:      d,
		}
		tags := []string{"query", "query-kind:" + string(d.Kind), "query-op:" + d.Operation}
		m.orch.Set(context.Background(), key, w, orchestrator.SetOptions{TTL: w.TTL, Tags: tags, SizeBytes: w.SizeBytes})
		return res.value, nil
	}
}

// ExecuteBatch runs Execute for every (descriptor, producer) pair
// concurrently, grounded on the teacher's batch-get pattern; ordering
// in the returned slices matches the input order.
func (m *Memoizer) ExecuteBatch(ctx context.Context, items []BatchItem) ([]interface{}, []error) {
	values := make([]interface{}, len(items))
	errs := make([]error, len(items))
	var wg sync.WaitGroup
	for i, item := range items {
		wg.Add(1)
		go func(i int, item BatchItem) {
			defer wg.Done()
			v, err := m.Execute(ctx, item.Descriptor, item.Producer, item.TTL)
			values[i] = v
			errs[i] = err
		}(i, item)
	}
	wg.Wait()
	return values, errs
}

// BatchItem is one unit of work for ExecuteBatch.
type BatchItem struct {
	Descriptor Descriptor
	Producer   Producer
	TTL        time.Duration
}

// Invalidate removes cached entries matching kind and/or operation
// (spec §4.3 "Tag-based invalidation"); an empty kind/operation
// invalidates every memoized entry.
func (m *Memoizer) Invalidate(ctx context.Context, kind Kind, operation string) int {
	if kind == "" && operation == "" {
		return m.orch.InvalidateByTag(ctx, "query")
	}
	total := 0
	if kind != "" {
		total += m.orch.InvalidateByTag(ctx, "query-kind:"+string(kind))
	}
	if operation != "" {
		total += m.orch.InvalidateByTag(ctx, "query-op:"+operation)
	}
	return total
}

// Stats returns the accumulated metrics for one cache key.
func (m *Memoizer) Stats(key string) KeyStats {
	return m.stats.snapshot(key)
}
