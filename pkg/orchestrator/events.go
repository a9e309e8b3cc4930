package orchestrator

import (
	"time"

	"github.com/google/uuid"
)

// EventKind enumerates the typed events the orchestrator emits on its
// access-stream channel (spec §4.6, §9 event-channel redesign).
type EventKind string

const (
	EventCacheHit          EventKind = "cache_hit"
	EventCacheMiss         EventKind = "cache_miss"
	EventEvict             EventKind = "evict"
	EventInvalidate        EventKind = "invalidate"
	EventMigrationProgress EventKind = "migration_progress"
	EventProducerStart     EventKind = "producer_start"
	EventProducerEnd       EventKind = "producer_end"
)

// Outcome distinguishes a hit from a miss on the access-stream sink
// (spec §4.6).
type Outcome string

const (
	OutcomeHit  Outcome = "hit"
	OutcomeMiss Outcome = "miss"
)

// AccessEvent is delivered on the orchestrator's event channel so an
// external predictor/warmer can observe cache traffic.
type AccessEvent struct {
	ID          string
	Key         string
	Kind        EventKind
	Timestamp   time.Time
	Tier        string
	UserContext interface{}
	Outcome     Outcome
}

// newAccessEvent stamps ev with a fresh id, matching the teacher's own
// event-bus convention (apps/mcp-server/internal/api/events.Bus) of
// tagging every emitted event with a uuid.
func newAccessEvent(kind EventKind, key, tier string, outcome Outcome, userContext interface{}) AccessEvent {
	return AccessEvent{
		ID:          uuid.New().String(),
		Key:         key,
		Kind:        kind,
		Timestamp:   time.Now(),
		Tier:        tier,
		UserContext: userContext,
		Outcome:     outcome,
	}
}

func defaultEventChannelSize() int { return 1024 }

// publish is non-blocking: a full channel drops the event rather than
// stalling the hot path (spec §9: emitters are non-blocking).
func publish(ch chan AccessEvent, ev AccessEvent) {
	select {
	case ch <- ev:
	default:
	}
}
