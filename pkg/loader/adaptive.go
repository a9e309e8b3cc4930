package loader

import (
	"fmt"
	"sync"
)

// sizeClass buckets totalSize the way spec §4.4's adaptive chunk sizing
// pattern key expects (size_class, priority, query_term_count).
func sizeClass(totalSize int) string {
	switch {
	case totalSize < 1000:
		return "small"
	case totalSize < 100000:
		return "medium"
	default:
		return "large"
	}
}

func patternKey(req Request) string {
	return fmt.Sprintf("%s:%s:%d", sizeClass(req.TotalSize), req.Priority, req.QueryTermCount)
}

// bucketStat accumulates a running mean throughput (items per second)
// for one chunk-size bucket under one pattern key.
type bucketStat struct {
	sum   float64
	count int
}

func (b *bucketStat) mean() float64 {
	if b.count == 0 {
		return 0
	}
	return b.sum / float64(b.count)
}

// AdaptiveSizer learns, per pattern key, which chunk-size bucket (the
// chunk size rounded down to the nearest 10) yields the best observed
// throughput, and offers it back as the next chunk size for that
// pattern (spec §4.4 "adaptive chunk sizing").
type AdaptiveSizer struct {
	mu      sync.Mutex
	buckets map[string]map[int]*bucketStat
	optimal map[string]int
}

func NewAdaptiveSizer() *AdaptiveSizer {
	return &AdaptiveSizer{
		buckets: make(map[string]map[int]*bucketStat),
		optimal: make(map[string]int),
	}
}

func bucketOf(chunkSize int) int {
	if chunkSize <= 0 {
		return 0
	}
	return (chunkSize / 10) * 10
}

// RecordChunk records the throughput observed for a single non-cached
// chunk fetch.
func (a *AdaptiveSizer) RecordChunk(pattern string, chunkSize, items int, loadSeconds float64) {
	if loadSeconds <= 0 {
		return
	}
	throughput := float64(items) / loadSeconds
	bucket := bucketOf(chunkSize)

	a.mu.Lock()
	defer a.mu.Unlock()
	byBucket, ok := a.buckets[pattern]
	if !ok {
		byBucket = make(map[int]*bucketStat)
		a.buckets[pattern] = byBucket
	}
	stat, ok := byBucket[bucket]
	if !ok {
		stat = &bucketStat{}
		byBucket[bucket] = stat
	}
	stat.sum += throughput
	stat.count++

	best, bestMean := bucket, stat.mean()
	for b, s := range byBucket {
		if m := s.mean(); m > bestMean {
			best, bestMean = b, m
		}
	}
	a.optimal[pattern] = best
}

// OptimalChunkSize returns the learned chunk size for pattern, or
// fallback if nothing has been recorded yet.
func (a *AdaptiveSizer) OptimalChunkSize(pattern string, fallback int) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	if v, ok := a.optimal[pattern]; ok && v > 0 {
		return v
	}
	return fallback
}
