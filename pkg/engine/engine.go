// Package engine assembles TierStore, TierOrchestrator, QueryMemoizer,
// IncrementalLoader, and InvalidationController into the single public
// API surface described in spec §6: get/set/delete/invalidate_by_tag,
// memoize/invalidate_queries, load/preload/cancel_load,
// register_invalidation_rule/schedule_invalidation/on_event, and
// stats/health/flush/shutdown.
package engine

import (
	"context"
	"time"

	"github.com/developer-mesh/tieredcache/pkg/invalidation"
	"github.com/developer-mesh/tieredcache/pkg/loader"
	"github.com/developer-mesh/tieredcache/pkg/memoize"
	"github.com/developer-mesh/tieredcache/pkg/orchestrator"
	"github.com/developer-mesh/tieredcache/pkg/tier"
)

// Config wires already-constructed components into one Engine. Tiers
// is keyed by tier name purely for Stats() — the orchestrator itself
// owns the authoritative tier list and ordering.
type Config struct {
	Orchestrator *orchestrator.Orchestrator
	Memoizer     *memoize.Memoizer
	Loader       *loader.Loader
	Invalidation *invalidation.Controller
	Tiers        map[string]*tier.Store
}

// Engine is the cache engine facade (spec §6 public API).
type Engine struct {
	cfg Config
}

func New(cfg Config) *Engine { return &Engine{cfg: cfg} }

// Get probes the tier hierarchy for key, invoking opts.Fallback on a
// total miss (spec §6 `get`).
func (e *Engine) Get(ctx context.Context, key string, opts orchestrator.GetOptions) (interface{}, bool) {
	return e.cfg.Orchestrator.Get(ctx, key, opts)
}

// Set writes key/value to every accepting tier (spec §6 `set`).
func (e *Engine) Set(ctx context.Context, key string, value interface{}, opts orchestrator.SetOptions) bool {
	return e.cfg.Orchestrator.Set(ctx, key, value, opts)
}

// Delete removes key from every tier (spec §6 `delete`).
func (e *Engine) Delete(ctx context.Context, key string) bool {
	return e.cfg.Orchestrator.Delete(ctx, key) > 0
}

// InvalidateByTag deletes every entry carrying tag across all tiers
// (spec §6 `invalidate_by_tag`).
func (e *Engine) InvalidateByTag(ctx context.Context, tag string) int {
	return e.cfg.Orchestrator.InvalidateByTag(ctx, tag)
}

// Memoize executes producer under single-flight, caching its result
// against descriptor's canonical key (spec §6 `memoize`).
func (e *Engine) Memoize(ctx context.Context, d memoize.Descriptor, producer memoize.Producer, ttl time.Duration) (interface{}, error) {
	return e.cfg.Memoizer.Execute(ctx, d, producer, ttl)
}

// InvalidateQueries invalidates memoized entries by kind and/or
// operation (spec §6 `invalidate_queries`).
func (e *Engine) InvalidateQueries(ctx context.Context, kind memoize.Kind, operation string) int {
	return e.cfg.Memoizer.Invalidate(ctx, kind, operation)
}

// Load runs an IncrementalLoader request to completion (spec §6 `load`).
func (e *Engine) Load(ctx context.Context, req loader.Request, source loader.FetchFunc, onProgress loader.ProgressFunc) (loader.Result, error) {
	return e.cfg.Loader.Load(ctx, req, source, onProgress)
}

// Preload best-effort warms named chunks (spec §6 `preload`).
func (e *Engine) Preload(ctx context.Context, requestID string, chunkIDs []string, source loader.ChunkFetchFunc) int {
	return e.cfg.Loader.Preload(ctx, requestID, chunkIDs, source)
}

// CancelLoad marks requestID cancelled (spec §6 `cancel_load`).
func (e *Engine) CancelLoad(requestID string) {
	e.cfg.Loader.Cancel(requestID)
}

// RegisterInvalidationRule adds a rule to the InvalidationController
// (spec §6 `register_invalidation_rule`).
func (e *Engine) RegisterInvalidationRule(rule *invalidation.Rule) error {
	return e.cfg.Invalidation.RegisterRule(rule)
}

// ScheduleInvalidation starts a repeating sweep (spec §6
// `schedule_invalidation`).
func (e *Engine) ScheduleInvalidation(desc invalidation.ScheduleDesc) {
	e.cfg.Invalidation.Schedule(desc)
}

// OnEvent notifies the InvalidationController of an external event
// (spec §6 `on_event`).
func (e *Engine) OnEvent(entity, op string, data interface{}) {
	e.cfg.Invalidation.OnEvent(entity, op, data)
}

// Stats is the aggregate snapshot returned by spec §6 `stats()`.
type Stats struct {
	Tiers   map[string]tier.Stats
	Health  orchestrator.Health
}

func (e *Engine) Stats(ctx context.Context) Stats {
	tiers := make(map[string]tier.Stats, len(e.cfg.Tiers))
	for name, store := range e.cfg.Tiers {
		tiers[name] = store.SnapshotStats()
	}
	return Stats{Tiers: tiers, Health: e.cfg.Orchestrator.Health(ctx)}
}

// Health reports the orchestrator's overall condition (spec §6 `health()`).
func (e *Engine) Health(ctx context.Context) orchestrator.Health {
	return e.cfg.Orchestrator.Health(ctx)
}

// Flush clears every tier (spec §6 `flush()`).
func (e *Engine) Flush() {
	e.cfg.Orchestrator.Flush()
}

// Shutdown stops all background work across every component (spec §6
// `shutdown()`).
func (e *Engine) Shutdown() {
	if e.cfg.Invalidation != nil {
		e.cfg.Invalidation.Shutdown()
	}
	if e.cfg.Memoizer != nil {
		e.cfg.Memoizer.Close()
	}
	e.cfg.Orchestrator.Shutdown()
}
