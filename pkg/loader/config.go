package loader

import "time"

// Config tunes one IncrementalLoader (spec §4.4).
type Config struct {
	RetryAttempts int
	RetryDelay    time.Duration
	FetchTimeout  time.Duration

	// MaxParallelChunks is the default concurrency for the parallel
	// strategy when a Request doesn't override it.
	MaxParallelChunks int

	// ChunkCacheTTL is how long a fetched chunk stays in the chunk
	// cache (spec §4.4 "chunk caching").
	ChunkCacheTTL time.Duration

	// EnableAdaptiveSizing turns on the throughput-learned chunk size
	// override described in spec §4.4.
	EnableAdaptiveSizing bool

	// EnablePrioritization turns on the priority-descending sort of
	// the chunk plan (spec §6 `enable_prioritization`). When false,
	// chunks run in plain offset order.
	EnablePrioritization bool

	// ParallelSizeThreshold and ParallelPriorityFloor gate the
	// adaptive strategy's choice between sequential and parallel
	// execution (spec §4.4): parallel when total_size exceeds the
	// threshold and priority is at least the floor; sequential when
	// total_size is below SequentialSizeCeiling; parallel otherwise.
	ParallelSizeThreshold int
	ParallelPriorityFloor Priority
	SequentialSizeCeiling int
}

func NewDefaultConfig() Config {
	return Config{
		RetryAttempts:         3,
		RetryDelay:            100 * time.Millisecond,
		FetchTimeout:          5 * time.Second,
		MaxParallelChunks:     4,
		ChunkCacheTTL:         5 * time.Minute,
		EnableAdaptiveSizing:  true,
		EnablePrioritization:  true,
		ParallelSizeThreshold: 1000,
		ParallelPriorityFloor: PriorityHigh,
		SequentialSizeCeiling: 100,
	}
}
