package memoize

import "time"

// wrapper is the wire record QueryMemoizer stores for each cached
// result (spec §4.3 step 4).
type wrapper struct {
	Value           interface{} `json:"value"`
	CreatedAt       time.Time   `json:"created_at"`
	TTL             time.Duration `json:"ttl"`
	ExecutionTimeMs int64       `json:"execution_time_ms"`
	SizeBytes       int64       `json:"size_bytes"`
	Descriptor      Descriptor  `json:"descriptor"`
}

func (w *wrapper) expired(now time.Time) bool {
	if w.TTL <= 0 {
		return false
	}
	return now.Sub(w.CreatedAt) > w.TTL
}

func estimateSize(value interface{}) int64 {
	switch v := value.(type) {
	case []byte:
		return int64(len(v)) * 2
	case string:
		return int64(len(v)) * 2
	default:
		return 64
	}
}
