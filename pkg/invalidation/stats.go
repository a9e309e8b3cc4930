package invalidation

import (
	"sync"
	"time"
)

// RuleStats is the observable state of one rule's firing history (spec
// §4.5 step 5, P10).
type RuleStats struct {
	Triggered     int64
	AvgDurationMs float64
}

type statsRegistry struct {
	mu     sync.Mutex
	byRule map[string]*RuleStats
}

func newStatsRegistry() *statsRegistry {
	return &statsRegistry{byRule: make(map[string]*RuleStats)}
}

// record updates the running mean duration for ruleID, matching P10:
// triggered increments by exactly one and avg_duration is the running
// mean of all observed durations.
func (s *statsRegistry) record(ruleID string, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.byRule[ruleID]
	if !ok {
		st = &RuleStats{}
		s.byRule[ruleID] = st
	}
	ms := float64(d.Microseconds()) / 1000
	st.AvgDurationMs = (st.AvgDurationMs*float64(st.Triggered) + ms) / float64(st.Triggered+1)
	st.Triggered++
}

func (s *statsRegistry) snapshot(ruleID string) RuleStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.byRule[ruleID]; ok {
		return *st
	}
	return RuleStats{}
}
