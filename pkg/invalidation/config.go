package invalidation

import "time"

// Config tunes one Controller (spec §4.5).
type Config struct {
	// EventQueueSize bounds the fire-and-forget on_event dispatch
	// queue; a full queue drops the newest job rather than blocking
	// the caller.
	EventQueueSize int
	// EventWorkers is the number of goroutines draining the event
	// queue.
	EventWorkers int
	// EventRateLimit and EventBurst gate how fast queued jobs are
	// dispatched (spec §5 "bounded work queue" resource policy).
	EventRateLimit float64
	EventBurst     int

	RegisterDefaults bool
}

func NewDefaultConfig() Config {
	return Config{
		EventQueueSize:   1024,
		EventWorkers:     2,
		EventRateLimit:   50,
		EventBurst:       10,
		RegisterDefaults: true,
	}
}

func defaultRules() []Rule {
	return []Rule{
		{
			ID:         "search",
			Pattern:    "/^search:/",
			Tags:       []string{"search", "query"},
			Priority:   8,
			Conditions: Conditions{MaxAge: 3600 * time.Second},
			Enabled:    true,
		},
		{
			ID:         "knowledge-base",
			Pattern:    "/^kb:/",
			Tags:       []string{"kb", "knowledge", "data-change"},
			Priority:   9,
			Cascade:    true,
			Conditions: Conditions{Dependencies: []string{"kb:entries", "kb:categories"}},
			Enabled:    true,
		},
		{
			ID:         "user",
			Pattern:    "/^user:/",
			Tags:       []string{"user", "auth", "preferences"},
			Priority:   7,
			Conditions: Conditions{TimeWindow: 300000 * time.Millisecond},
			Enabled:    true,
		},
		{
			ID:         "database-query",
			Pattern:    "/^query:db:/",
			Tags:       []string{"database", "query", "data-change"},
			Priority:   10,
			Conditions: Conditions{MaxAge: 1800 * time.Second},
			Enabled:    true,
		},
	}
}

const ttlCleanupInterval = 300 * time.Second
const ttlCleanupPattern = "/expired|stale/"
