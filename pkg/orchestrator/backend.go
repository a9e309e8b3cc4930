// Package orchestrator implements the TierOrchestrator (spec §4.2): an
// ordered set of cache tiers with per-tier strategy predicates,
// read-through promotion, parallel write-through, and an optional
// remote L3 tier guarded by a circuit breaker.
package orchestrator

import (
	"context"
	"time"
)

// Backend is the minimal surface every tier (in-memory or remote) must
// expose to the orchestrator. Context is accepted uniformly even
// though in-memory tiers never suspend (spec §5): the remote tier is
// the only implementation that actually blocks on it.
type Backend interface {
	Get(ctx context.Context, key string) (interface{}, bool)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration, tags []string) bool
	Delete(ctx context.Context, key string) bool
	InvalidateByTag(ctx context.Context, tag string) int
	Has(ctx context.Context, key string) bool
}
