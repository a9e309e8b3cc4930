package memoize

import (
	"sync"
	"time"
)

// keyStat accumulates per-key metrics (spec §4.3 "Metrics").
type keyStat struct {
	hitCount             int64
	retrievalLatencyNs   int64
	producerLatencyNs    int64
	producerInvocations  int64
}

type statsRegistry struct {
	mu   sync.Mutex
	byKey map[string]*keyStat
}

func newStatsRegistry() *statsRegistry {
	return &statsRegistry{byKey: make(map[string]*keyStat)}
}

func (r *statsRegistry) get(key string) *keyStat {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byKey[key]
	if !ok {
		s = &keyStat{}
		r.byKey[key] = s
	}
	return s
}

func (r *statsRegistry) recordHit(key string, retrievalLatency time.Duration) {
	s := r.get(key)
	r.mu.Lock()
	defer r.mu.Unlock()
	s.hitCount++
	s.retrievalLatencyNs += retrievalLatency.Nanoseconds()
}

func (r *statsRegistry) recordProducer(key string, latency time.Duration) {
	s := r.get(key)
	r.mu.Lock()
	defer r.mu.Unlock()
	s.producerInvocations++
	s.producerLatencyNs += latency.Nanoseconds()
}

// KeyStats is the public snapshot for one key's metrics.
type KeyStats struct {
	HitCount            int64
	AvgRetrievalLatency time.Duration
	AvgProducerLatency  time.Duration
	// BytesSaved is spec §4.3's literal formula: sum of producer
	// latency (ms) x hit count, an approximation rather than a true
	// byte count.
	BytesSaved int64
}

func (r *statsRegistry) snapshot(key string) KeyStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byKey[key]
	if !ok {
		return KeyStats{}
	}
	var avgRetrieval, avgProducer time.Duration
	if s.hitCount > 0 {
		avgRetrieval = time.Duration(s.retrievalLatencyNs / s.hitCount)
	}
	if s.producerInvocations > 0 {
		avgProducer = time.Duration(s.producerLatencyNs / s.producerInvocations)
	}
	bytesSaved := avgProducer.Milliseconds() * s.hitCount
	return KeyStats{
		HitCount:            s.hitCount,
		AvgRetrievalLatency: avgRetrieval,
		AvgProducerLatency:  avgProducer,
		BytesSaved:          bytesSaved,
	}
}
