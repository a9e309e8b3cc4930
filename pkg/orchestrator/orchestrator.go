package orchestrator

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/developer-mesh/tieredcache/internal/observability"
	"github.com/developer-mesh/tieredcache/pkg/tier"
)

// GetOptions carries the optional arguments to Orchestrator.Get (spec §6).
type GetOptions struct {
	Tiers    []string
	TTL      time.Duration
	Tags     []string
	Fallback func(ctx context.Context) (interface{}, error)
}

// SetOptions carries the optional arguments to Orchestrator.Set.
type SetOptions struct {
	TTL            time.Duration
	Tags           []string
	SizeBytes      int64
	ProducerCostMs int64
	Priority       string
}

// WarmEntry is one item in a Warm batch (spec §4.6 prefetch sink).
type WarmEntry struct {
	Key      string
	Producer func(ctx context.Context) (interface{}, error)
	TTL      time.Duration
	Tags     []string
	Priority string
}

// TierStatus reports one tier's contribution to Health().
type TierStatus struct {
	Name    string
	Enabled bool
	Healthy bool
}

// Health summarizes the orchestrator's overall condition.
type Health struct {
	Status string // healthy | degraded | unhealthy
	Tiers  []TierStatus
}

// Orchestrator routes reads and writes across an ordered list of tiers
// (spec §4.2), promoting hot entries upward and broadcasting writes,
// deletes, and tag invalidations to every enabled tier.
type Orchestrator struct {
	cfg     Config
	tiers   []*TierConfig
	logger  observability.Logger
	metrics observability.MetricsClient

	mu        sync.Mutex
	hitCounts map[string]map[string]int64

	events chan AccessEvent
}

// New constructs an Orchestrator over tiers, given in priority order
// (index 0 = hottest).
func New(cfg Config, tiers []*TierConfig, logger observability.Logger, metrics observability.MetricsClient) *Orchestrator {
	if logger == nil {
		logger = observability.NewNoopLogger()
	}
	if metrics == nil {
		metrics = observability.NewNoopMetrics()
	}
	size := cfg.EventChannelSize
	if size <= 0 {
		size = defaultEventChannelSize()
	}
	return &Orchestrator{
		cfg:       cfg,
		tiers:     tiers,
		logger:    logger.WithPrefix("orchestrator"),
		metrics:   metrics,
		hitCounts: make(map[string]map[string]int64),
		events:    make(chan AccessEvent, size),
	}
}

// NewMemoryTier is a convenience constructor wrapping a *tier.Store as
// a TierConfig entry.
func NewMemoryTier(name string, store *tier.Store, strategy Strategy) *TierConfig {
	return &TierConfig{
		Name:     name,
		Enabled:  true,
		Backend:  newMemoryBackend(store),
		Strategy: strategy,
	}
}

// NewRemoteTierConfig wraps a *RemoteTier as a TierConfig entry.
func NewRemoteTierConfig(name string, remote *RemoteTier, strategy Strategy) *TierConfig {
	return &TierConfig{
		Name:     name,
		Enabled:  true,
		Backend:  remote,
		Strategy: strategy,
	}
}

// Events exposes the access-stream sink for an external predictor.
func (o *Orchestrator) Events() <-chan AccessEvent {
	return o.events
}

// Get probes enabled tiers in priority order, promoting on a
// sufficiently-repeated hit in a lower tier and falling back to a
// caller-supplied producer when every tier misses.
func (o *Orchestrator) Get(ctx context.Context, key string, opts GetOptions) (interface{}, bool) {
	for i, t := range o.tiers {
		if !o.tierSelected(t, opts.Tiers) {
			continue
		}
		v, ok := t.Backend.Get(ctx, key)
		if !ok {
			continue
		}
		o.metrics.RecordCounter("orchestrator_hits_total", 1, map[string]string{"tier": t.Name})
		publish(o.events, newAccessEvent(EventCacheHit, key, t.Name, OutcomeHit, nil))
		if i > 0 && o.cfg.ReadThrough {
			o.maybePromote(ctx, i, key, v)
		}
		return v, true
	}
	publish(o.events, newAccessEvent(EventCacheMiss, key, "", OutcomeMiss, nil))

	if opts.Fallback == nil {
		return nil, false
	}
	publish(o.events, newAccessEvent(EventProducerStart, key, "", "", nil))
	value, err := opts.Fallback(ctx)
	publish(o.events, newAccessEvent(EventProducerEnd, key, "", "", nil))
	if err != nil {
		return nil, false
	}
	o.Set(ctx, key, value, SetOptions{TTL: opts.TTL, Tags: opts.Tags})
	return value, true
}

func (o *Orchestrator) tierSelected(t *TierConfig, filter []string) bool {
	if !t.Enabled {
		return false
	}
	if len(filter) == 0 {
		return true
	}
	for _, name := range filter {
		if name == t.Name {
			return true
		}
	}
	return false
}

// maybePromote implements the promotion rule (spec §4.2): repeated
// reads from a lower tier copy the entry into every enabled
// higher-priority tier whose strategy accepts it, once the configured
// hit-count threshold for the tier the hit occurred on is reached.
func (o *Orchestrator) maybePromote(ctx context.Context, foundIdx int, key string, value interface{}) {
	source := o.tiers[foundIdx]
	threshold := o.cfg.promotionThreshold(source.Name)

	o.mu.Lock()
	counts, ok := o.hitCounts[source.Name]
	if !ok {
		counts = make(map[string]int64)
		o.hitCounts[source.Name] = counts
	}
	counts[key]++
	ready := counts[key] >= int64(threshold)
	if ready {
		counts[key] = 0
	}
	o.mu.Unlock()

	if !ready {
		return
	}
	for j := 0; j < foundIdx; j++ {
		target := o.tiers[j]
		if !target.Enabled {
			continue
		}
		sc := StrategyContext{HitCount: int64(threshold), SizeBytes: estimateValueSize(value)}
		if target.Strategy != nil && !target.Strategy(sc) {
			continue
		}
		target.Backend.Set(ctx, key, value, 0, nil)
	}
}

// Set writes to every enabled tier whose strategy accepts the entry,
// in parallel, and reports acceptance if at least one tier accepted.
func (o *Orchestrator) Set(ctx context.Context, key string, value interface{}, opts SetOptions) bool {
	sc := StrategyContext{
		SizeBytes:      opts.SizeBytes,
		ProducerCostMs: opts.ProducerCostMs,
		Priority:       opts.Priority,
	}
	if sc.SizeBytes == 0 {
		sc.SizeBytes = estimateValueSize(value)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted := false
	for _, t := range o.tiers {
		if !t.Enabled {
			continue
		}
		if t.Strategy != nil && !t.Strategy(sc) {
			continue
		}
		wg.Add(1)
		go func(t *TierConfig) {
			defer wg.Done()
			if t.Backend.Set(ctx, key, value, opts.TTL, opts.Tags) {
				mu.Lock()
				accepted = true
				mu.Unlock()
			}
		}(t)
	}
	wg.Wait()
	return accepted
}

// Delete broadcasts a delete to every enabled tier and sums how many
// tiers actually had the key.
func (o *Orchestrator) Delete(ctx context.Context, key string) int {
	var wg sync.WaitGroup
	var mu sync.Mutex
	count := 0
	for _, t := range o.tiers {
		if !t.Enabled {
			continue
		}
		wg.Add(1)
		go func(t *TierConfig) {
			defer wg.Done()
			if t.Backend.Delete(ctx, key) {
				mu.Lock()
				count++
				mu.Unlock()
			}
		}(t)
	}
	wg.Wait()
	return count
}

// InvalidateByTag broadcasts a tag invalidation to every enabled tier,
// summing deletion counts, and emits an Invalidate event.
func (o *Orchestrator) InvalidateByTag(ctx context.Context, tag string) int {
	var wg sync.WaitGroup
	var mu sync.Mutex
	total := 0
	for _, t := range o.tiers {
		if !t.Enabled {
			continue
		}
		wg.Add(1)
		go func(t *TierConfig) {
			defer wg.Done()
			n := t.Backend.InvalidateByTag(ctx, tag)
			mu.Lock()
			total += n
			mu.Unlock()
		}(t)
	}
	wg.Wait()
	publish(o.events, newAccessEvent(EventInvalidate, tag, "", "", nil))
	return total
}

// Warm processes entries in priority-ordered batches (spec §4.6):
// default batch size 10, default concurrency 3, per-entry failures
// tolerated.
func (o *Orchestrator) Warm(ctx context.Context, entries []WarmEntry) {
	batchSize := o.cfg.WarmBatchSize
	if batchSize <= 0 {
		batchSize = 10
	}
	concurrency := o.cfg.WarmConcurrency
	if concurrency <= 0 {
		concurrency = 3
	}

	sorted := make([]WarmEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return priorityRank(sorted[i].Priority) > priorityRank(sorted[j].Priority)
	})

	for start := 0; start < len(sorted); start += batchSize {
		end := start + batchSize
		if end > len(sorted) {
			end = len(sorted)
		}
		o.warmBatch(ctx, sorted[start:end], concurrency)
	}
}

func (o *Orchestrator) warmBatch(ctx context.Context, batch []WarmEntry, concurrency int) {
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	for _, e := range batch {
		wg.Add(1)
		sem <- struct{}{}
		go func(e WarmEntry) {
			defer wg.Done()
			defer func() { <-sem }()
			if e.Producer == nil {
				return
			}
			value, err := e.Producer(ctx)
			if err != nil {
				o.logger.Warn("warm entry failed", map[string]interface{}{"key": e.Key, "error": err.Error()})
				return
			}
			o.Set(ctx, e.Key, value, SetOptions{TTL: e.TTL, Tags: e.Tags, Priority: e.Priority})
		}(e)
	}
	wg.Wait()
}

func priorityRank(p string) int {
	switch p {
	case "critical":
		return 4
	case "high":
		return 3
	case "medium":
		return 2
	case "low":
		return 1
	default:
		return 0
	}
}

// Health reports healthy when every enabled tier's backing store is
// reachable (a remote tier behind an open circuit is degraded, not
// unhealthy, since local tiers continue serving).
func (o *Orchestrator) Health(ctx context.Context) Health {
	statuses := make([]TierStatus, 0, len(o.tiers))
	anyDown := false
	for _, t := range o.tiers {
		healthy := true
		if rt, ok := t.Backend.(*RemoteTier); ok && t.Enabled {
			healthy = rt.cb.State().String() != "open"
		}
		if t.Enabled && !healthy {
			anyDown = true
		}
		statuses = append(statuses, TierStatus{Name: t.Name, Enabled: t.Enabled, Healthy: healthy})
	}
	status := "healthy"
	if anyDown {
		status = "degraded"
	}
	return Health{Status: status, Tiers: statuses}
}

// Flush clears every in-memory tier, enabled or not (remote tiers are left
// alone; operators flush them independently).
func (o *Orchestrator) Flush() {
	for _, t := range o.tiers {
		if mb, ok := t.Backend.(*memoryBackend); ok {
			mb.store.Clear()
		}
	}
}

// Shutdown stops background goroutines owned by in-memory tiers.
func (o *Orchestrator) Shutdown() {
	for _, t := range o.tiers {
		if mb, ok := t.Backend.(*memoryBackend); ok {
			mb.store.Close()
		}
	}
	close(o.events)
}

func estimateValueSize(value interface{}) int64 {
	switch v := value.(type) {
	case []byte:
		return int64(len(v)) * 2
	case string:
		return int64(len(v)) * 2
	default:
		return 64
	}
}
