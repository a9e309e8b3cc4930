// Package predictor defines the external collaborator surface the
// engine exposes to a prefetch predictor (spec §4.6): the engine does
// not implement any predictive model, only the two interfaces such a
// model consumes — an access-event sink and a prefetch sink.
package predictor

import (
	"context"

	"github.com/developer-mesh/tieredcache/pkg/orchestrator"
)

// AccessEvent is recorded for every cache access, mirroring
// orchestrator.AccessEvent so a predictor needn't import the
// orchestrator package directly.
type AccessEvent = orchestrator.AccessEvent

// PrefetchEntry is one candidate a predictor wants warmed, mirroring
// orchestrator.WarmEntry (spec §4.6 "warm(entries)").
type PrefetchEntry = orchestrator.WarmEntry

// EventRecorder is the access-stream sink a predictor subscribes to
// (spec §4.6's `recordEvent`). It is satisfied by *orchestrator.Orchestrator.
type EventRecorder interface {
	Events() <-chan AccessEvent
}

// PrefetchSink is the interface a predictor calls to act on its
// predictions (spec §4.6's `getPredictions` -> warm cycle). It is
// satisfied by *orchestrator.Orchestrator.
type PrefetchSink interface {
	Warm(ctx context.Context, entries []PrefetchEntry)
}

// Source bundles both interfaces, matching exactly what an external
// predictor process needs: a feed of access events and a sink to act
// on its own prefetch decisions. No ranking or scoring logic lives
// here — that is the predictor's own, unspecified, responsibility
// (spec §9 "the predictive subsystem's ML model is a placeholder").
type Source interface {
	EventRecorder
	PrefetchSink
}

// Tap is a convenience adapter that fans out an orchestrator's single
// access-event channel to any number of predictor subscribers, so more
// than one external consumer can observe the same stream without
// racing on the channel read.
type Tap struct {
	source EventRecorder
	subs   []chan AccessEvent
}

func NewTap(source EventRecorder) *Tap {
	return &Tap{source: source}
}

// Subscribe returns a new channel receiving every AccessEvent observed
// from now on. bufferSize bounds how far a slow subscriber can lag
// before events are dropped for it.
func (t *Tap) Subscribe(bufferSize int) <-chan AccessEvent {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	ch := make(chan AccessEvent, bufferSize)
	t.subs = append(t.subs, ch)
	return ch
}

// Run drains the source's event channel and fans each event out to
// every subscriber (non-blocking per subscriber), until ctx is done.
func (t *Tap) Run(ctx context.Context) {
	events := t.source.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			for _, sub := range t.subs {
				select {
				case sub <- ev:
				default:
				}
			}
		}
	}
}
