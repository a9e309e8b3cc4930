package tier

import "time"

// Stats is the snapshot returned by Store.SnapshotStats (spec §4.1).
type Stats struct {
	Hits             int64
	Misses           int64
	HitRate          float64
	Evictions        int64
	CurrentMemory    int64
	EntryCount       int
	AvgAccessLatency time.Duration
	HotKeyCount      int
}

type statsTracker struct {
	hits      int64
	misses    int64
	evictions int64
	latencyNs int64
	latencyN  int64
}

func (s *statsTracker) recordHit(latency time.Duration) {
	s.hits++
	s.recordLatency(latency)
}

func (s *statsTracker) recordMiss(latency time.Duration) {
	s.misses++
	s.recordLatency(latency)
}

func (s *statsTracker) recordLatency(latency time.Duration) {
	s.latencyNs += latency.Nanoseconds()
	s.latencyN++
}

func (s *statsTracker) recordEviction() {
	s.evictions++
}

func (s *statsTracker) snapshot(currentMemory int64, entryCount, hotKeyCount int) Stats {
	total := s.hits + s.misses
	var rate float64
	if total > 0 {
		rate = float64(s.hits) / float64(total)
	}
	var avg time.Duration
	if s.latencyN > 0 {
		avg = time.Duration(s.latencyNs / s.latencyN)
	}
	return Stats{
		Hits:             s.hits,
		Misses:           s.misses,
		HitRate:          rate,
		Evictions:        s.evictions,
		CurrentMemory:    currentMemory,
		EntryCount:       entryCount,
		AvgAccessLatency: avg,
		HotKeyCount:      hotKeyCount,
	}
}
