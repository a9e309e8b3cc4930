package tier

import (
	"math"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/developer-mesh/tieredcache/internal/observability"
)

// SetOptions carries the optional arguments to Store.Set (spec §4.1 set).
type SetOptions struct {
	TTL       time.Duration
	Tags      []string
	SizeBytes int64
}

// Store is a single bounded associative cache tier (spec §4.1
// TierStore): O(1) average get/set/delete, a selectable eviction
// policy, tag indexing for group invalidation, and both lazy and eager
// TTL expiry.
type Store struct {
	cfg     *Config
	logger  observability.Logger
	metrics observability.MetricsClient

	mu            sync.Mutex
	entries       map[string]*Entry
	tagIndex      map[string]map[string]struct{}
	pol           policy
	currentMemory int64
	stats         statsTracker

	closeOnce sync.Once
	closeCh   chan struct{}
	done      chan struct{}
}

// NewStore constructs a Store. A nil logger/metrics defaults to no-ops.
func NewStore(cfg *Config, logger observability.Logger, metrics observability.MetricsClient) *Store {
	if cfg == nil {
		cfg = NewDefaultConfig("tier")
	}
	if logger == nil {
		logger = observability.NewNoopLogger()
	}
	if metrics == nil {
		metrics = observability.NewNoopMetrics()
	}
	s := &Store{
		cfg:      cfg,
		logger:   logger.WithPrefix("tier." + cfg.Name),
		metrics:  metrics,
		entries:  make(map[string]*Entry),
		tagIndex: make(map[string]map[string]struct{}),
		pol:      newPolicy(cfg.Eviction, cfg.MaxEntries),
		closeCh:  make(chan struct{}),
		done:     make(chan struct{}),
	}
	if cfg.CleanupInterval > 0 {
		go s.maintenanceLoop()
	} else {
		close(s.done)
	}
	return s
}

func (s *Store) halfLife() time.Duration {
	if s.cfg.HalfLife <= 0 {
		return 24 * time.Hour
	}
	return s.cfg.HalfLife
}

func (s *Store) decayFactor() float64 {
	if s.cfg.DecayFactor <= 0 {
		return 0.95
	}
	return s.cfg.DecayFactor
}

// Get returns the current value for key if present and unexpired. A
// miss (absent or expired) never returns an error; expired entries are
// deleted as a side effect of discovery.
func (s *Store) Get(key string) (interface{}, bool) {
	start := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		s.stats.recordMiss(time.Since(start))
		return nil, false
	}
	now := time.Now()
	if e.Expired(now) {
		s.removeEntryLocked(key, false)
		s.stats.recordMiss(time.Since(start))
		return nil, false
	}
	s.touchEntryLocked(e, now)
	s.stats.recordHit(time.Since(start))
	return e.Value, true
}

// Has reports presence without mutating access fields, still honoring
// lazy TTL expiry.
func (s *Store) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return false
	}
	if e.Expired(time.Now()) {
		s.removeEntryLocked(key, false)
		return false
	}
	return true
}

func (s *Store) touchEntryLocked(e *Entry, now time.Time) {
	var delta time.Duration
	if !e.LastAccessAt.IsZero() {
		delta = now.Sub(e.LastAccessAt)
	}
	decay := math.Exp(-float64(delta) / float64(s.halfLife()))
	e.FrequencyScore = e.FrequencyScore*decay + 1
	e.LastAccessAt = now
	e.AccessCount++
	s.pol.touch(e.Key, e.FrequencyScore)
}

// Set upserts key. If the resulting memory or entry budget would be
// exceeded, entries are evicted per the configured policy until the
// new entry fits or the store is empty; an entry larger than the
// entire memory budget is rejected outright and the store is left
// unchanged.
func (s *Store) Set(key string, value interface{}, opts SetOptions) bool {
	size := opts.SizeBytes
	if size <= 0 {
		size = estimateSize(value)
	}
	if s.cfg.MemoryBudgetBytes > 0 && size > s.cfg.MemoryBudgetBytes {
		s.logger.Warn("rejecting set: entry exceeds memory budget", map[string]interface{}{"key": key, "size": size})
		return false
	}
	ttl := opts.TTL
	if ttl == 0 {
		ttl = s.cfg.DefaultTTL
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, wasLive := s.entries[key]
	var version int64
	if wasLive {
		version = existing.Version + 1
		s.currentMemory -= existing.SizeBytes
		s.unindexTagsLocked(key, existing)
		delete(s.entries, key)
	}

	if !wasLive {
		for _, victim := range s.pol.onMiss(key) {
			s.removeEntryLocked(victim, true)
		}
	}
	s.evictUntilFitsLocked(size, key)

	if s.cfg.MaxEntries > 0 && len(s.entries) >= s.cfg.MaxEntries {
		s.logger.Warn("rejecting set: budget could not be satisfied by eviction", map[string]interface{}{"key": key})
		return false
	}

	now := time.Now()
	entry := &Entry{
		Key:           key,
		Value:         value,
		CreatedAt:     now,
		LastAccessAt:  now,
		AccessCount:   0,
		FrequencyScore: 0,
		TTL:           ttl,
		SizeBytes:     size,
		Tags:          tagSet(opts.Tags),
		Version:       version,
	}
	s.entries[key] = entry
	s.currentMemory += size
	s.indexTagsLocked(key, entry)

	if wasLive {
		s.pol.touch(key, entry.FrequencyScore)
	} else {
		s.pol.add(key)
	}
	return true
}

func (s *Store) evictUntilFitsLocked(newSize int64, excludeKey string) {
	for s.overBudgetLocked(newSize) {
		key, ok := s.pol.victim()
		if !ok || key == excludeKey {
			return
		}
		s.removeEntryLocked(key, true)
	}
}

func (s *Store) overBudgetLocked(newSize int64) bool {
	if s.cfg.MemoryBudgetBytes > 0 && s.currentMemory+newSize > s.cfg.MemoryBudgetBytes {
		return true
	}
	if s.cfg.MaxEntries > 0 && len(s.entries) >= s.cfg.MaxEntries {
		return true
	}
	return false
}

// Delete removes key and its tag-index back-references. Idempotent.
func (s *Store) Delete(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[key]; !ok {
		return false
	}
	s.removeEntryLocked(key, false)
	return true
}

// InvalidateByTag deletes every key currently indexed under tag and
// returns the number deleted.
func (s *Store) InvalidateByTag(tag string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.tagIndex[tag]
	if !ok || len(set) == 0 {
		return 0
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	count := 0
	for _, k := range keys {
		if _, ok := s.entries[k]; ok {
			s.removeEntryLocked(k, false)
			count++
		}
	}
	return count
}

// KeysMatching returns every live, unexpired key matching pattern. A
// pattern beginning with "^" is compiled as an anchored regex;
// otherwise it is treated as a literal prefix.
func (s *Store) KeysMatching(pattern string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var re *regexp.Regexp
	if strings.HasPrefix(pattern, "^") {
		re, _ = regexp.Compile(pattern)
	}
	now := time.Now()
	var out []string
	for k, e := range s.entries {
		if e.Expired(now) {
			continue
		}
		if re != nil {
			if re.MatchString(k) {
				out = append(out, k)
			}
			continue
		}
		if strings.HasPrefix(k, pattern) {
			out = append(out, k)
		}
	}
	return out
}

// Clear deletes all entries and resets stats counters.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]*Entry)
	s.tagIndex = make(map[string]map[string]struct{})
	s.currentMemory = 0
	s.pol = newPolicy(s.cfg.Eviction, s.cfg.MaxEntries)
	s.stats = statsTracker{}
}

// SnapshotStats reports hits, misses, hit-rate, evictions, memory and
// entry counts, average access latency, and the hot-key count.
func (s *Store) SnapshotStats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	hot := 0
	for _, e := range s.entries {
		if e.AccessCount > 1 {
			hot++
		}
	}
	return s.stats.snapshot(s.currentMemory, len(s.entries), hot)
}

func (s *Store) indexTagsLocked(key string, e *Entry) {
	for tag := range e.Tags {
		set, ok := s.tagIndex[tag]
		if !ok {
			set = make(map[string]struct{})
			s.tagIndex[tag] = set
		}
		set[key] = struct{}{}
	}
}

func (s *Store) unindexTagsLocked(key string, e *Entry) {
	for tag := range e.Tags {
		if set, ok := s.tagIndex[tag]; ok {
			delete(set, key)
			if len(set) == 0 {
				delete(s.tagIndex, tag)
			}
		}
	}
}

func (s *Store) removeEntryLocked(key string, isEviction bool) {
	e, ok := s.entries[key]
	if !ok {
		return
	}
	delete(s.entries, key)
	s.currentMemory -= e.SizeBytes
	s.unindexTagsLocked(key, e)
	s.pol.remove(key)
	if isEviction {
		s.stats.recordEviction()
		s.metrics.IncrementCounter("tier_evictions_total", 1)
	}
}

// Close stops the store's background maintenance goroutine.
func (s *Store) Close() {
	s.closeOnce.Do(func() {
		close(s.closeCh)
	})
	<-s.done
}

func (s *Store) maintenanceLoop() {
	defer close(s.done)
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.closeCh:
			return
		case <-ticker.C:
			s.maintenanceTick()
		}
	}
}

func (s *Store) maintenanceTick() {
	s.mu.Lock()
	defer s.mu.Unlock()

	decay := s.decayFactor()
	for _, e := range s.entries {
		e.FrequencyScore *= decay
	}

	now := time.Now()
	batch := s.cfg.TTLSweepBatchSize
	if batch <= 0 {
		batch = 256
	}
	swept := 0
	for k, e := range s.entries {
		if swept >= batch {
			break
		}
		if e.Expired(now) {
			s.removeEntryLocked(k, false)
			swept++
		}
	}
}
