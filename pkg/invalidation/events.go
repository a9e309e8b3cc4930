package invalidation

import (
	"time"

	"github.com/google/uuid"
)

// EventType distinguishes how an InvalidationEvent was triggered.
type EventType string

const (
	EventPattern    EventType = "pattern"
	EventDependency EventType = "dependency"
	EventTriggered  EventType = "triggered"
	EventScheduled  EventType = "scheduled"
)

// Affected summarizes what an invalidation touched.
type Affected struct {
	Tags  []string
	Count int
}

// InvalidationEvent is emitted after invalidate_by_pattern and
// invalidate_by_dependency complete (spec §4.5 step 4).
type InvalidationEvent struct {
	ID         string
	Type       EventType
	Trigger    string
	Timestamp  time.Time
	Affected   Affected
	DurationMs int64
}

func newInvalidationEvent(typ EventType, trigger string, affected Affected, durationMs int64) InvalidationEvent {
	return InvalidationEvent{
		ID:         uuid.New().String(),
		Type:       typ,
		Trigger:    trigger,
		Timestamp:  time.Now(),
		Affected:   affected,
		DurationMs: durationMs,
	}
}

func defaultEventChannelSize() int { return 256 }

func publish(ch chan InvalidationEvent, ev InvalidationEvent) {
	select {
	case ch <- ev:
	default:
	}
}
