package loader

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/developer-mesh/tieredcache/internal/cerrors"
	"github.com/developer-mesh/tieredcache/internal/observability"
	"github.com/developer-mesh/tieredcache/pkg/tier"
)

// Loader is an IncrementalLoader (spec §4.4): it breaks a large fetch
// into prioritized chunks, executes them sequentially, in parallel, or
// adaptively between the two, caching each chunk and reporting progress
// as it goes. The parallel strategy keeps at most the configured number
// of chunks in flight and starts the next chunk as soon as any running
// one finishes; it does not run chunks in waves that wait for each
// other.
type Loader struct {
	cfg     Config
	cache   *tier.Store
	sizer   *AdaptiveSizer
	logger  observability.Logger
	metrics observability.MetricsClient

	mu        sync.Mutex
	cancelled map[string]*atomic.Bool
}

// New constructs a Loader. cache may be nil to disable chunk caching.
func New(cfg Config, cache *tier.Store, logger observability.Logger, metrics observability.MetricsClient) *Loader {
	if logger == nil {
		logger = observability.NewNoopLogger()
	}
	if metrics == nil {
		metrics = observability.NewNoopMetrics()
	}
	return &Loader{
		cfg:       cfg,
		cache:     cache,
		sizer:     NewAdaptiveSizer(),
		logger:    logger.WithPrefix("loader"),
		metrics:   metrics,
		cancelled: make(map[string]*atomic.Bool),
	}
}

func chunkCacheKey(requestID string, w chunkWindow) string {
	return fmt.Sprintf("%s:%d-%d", requestID, w.Offset, w.Limit)
}

func (l *Loader) cancelFlag(requestID string) *atomic.Bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	f, ok := l.cancelled[requestID]
	if !ok {
		f = &atomic.Bool{}
		l.cancelled[requestID] = f
	}
	return f
}

// Cancel marks requestID as cancelled; an in-flight Load for that id
// stops scheduling new chunks and returns a cancelled Result.
func (l *Loader) Cancel(requestID string) {
	l.cancelFlag(requestID).Store(true)
}

func (l *Loader) clearCancel(requestID string) {
	l.mu.Lock()
	delete(l.cancelled, requestID)
	l.mu.Unlock()
}

// resolveStrategy picks sequential/parallel for an adaptive Request
// per spec §4.4: parallel when total_size exceeds the configured
// threshold and priority is at least the configured floor; sequential
// when total_size is below the sequential ceiling; parallel otherwise.
func (l *Loader) resolveStrategy(req Request) Strategy {
	if req.Strategy != StrategyAdaptive {
		return req.Strategy
	}
	if req.TotalSize > l.cfg.ParallelSizeThreshold && req.Priority.atLeast(l.cfg.ParallelPriorityFloor) {
		return StrategyParallel
	}
	if req.TotalSize < l.cfg.SequentialSizeCeiling {
		return StrategySequential
	}
	return StrategyParallel
}

func (l *Loader) chunkSize(req Request) int {
	if !l.cfg.EnableAdaptiveSizing {
		return req.ChunkSize
	}
	return l.sizer.OptimalChunkSize(patternKey(req), req.ChunkSize)
}

// Load executes req against fetch, reporting progress via onProgress
// (which may be nil).
func (l *Loader) Load(ctx context.Context, req Request, fetch FetchFunc, onProgress ProgressFunc) (Result, error) {
	if req.ChunkSize <= 0 {
		return Result{}, cerrors.ConfigurationError("loader.load", "chunk_size must be positive")
	}
	if req.ID == "" {
		req.ID = uuid.New().String()
	}
	effective := req
	effective.ChunkSize = l.chunkSize(req)
	windows := buildPlan(effective, l.cfg.EnablePrioritization)
	total := len(windows)
	cancelFlag := l.cancelFlag(req.ID)
	cancelFlag.Store(false)
	defer l.clearCancel(req.ID)

	strategy := l.resolveStrategy(effective)
	maxParallel := req.MaxParallelChunks
	if maxParallel <= 0 {
		maxParallel = l.cfg.MaxParallelChunks
	}

	out := make(map[int][]interface{}, total)
	var outMu sync.Mutex
	var loaded int32
	var loadedSize int32
	start := time.Now()

	pattern := patternKey(req)
	step := func(w chunkWindow) error {
		chunkStart := time.Now()
		items, fromCache, err := l.fetchChunk(ctx, req.ID, w, fetch)
		if err != nil {
			return err
		}
		outMu.Lock()
		out[w.Offset] = items
		outMu.Unlock()

		n := int32(len(items))
		atomic.AddInt32(&loaded, 1)
		atomic.AddInt32(&loadedSize, n)

		if !fromCache && l.cfg.EnableAdaptiveSizing {
			l.sizer.RecordChunk(pattern, w.Limit, len(items), time.Since(chunkStart).Seconds())
		}
		if onProgress != nil {
			done := int(atomic.LoadInt32(&loaded))
			elapsed := time.Since(start)
			throughput := float64(atomic.LoadInt32(&loadedSize)) / elapsed.Seconds()
			var etaMs int64
			if throughput > 0 && done < total {
				remaining := total - done
				avgPerChunk := elapsed.Seconds() / float64(done)
				etaMs = int64(avgPerChunk * float64(remaining) * 1000)
			}
			onProgress(Progress{
				LoadedChunks:      done,
				TotalChunks:       total,
				LoadedSize:        int(atomic.LoadInt32(&loadedSize)),
				Percentage:        100 * float64(done) / float64(total),
				ETAMs:             etaMs,
				CurrentThroughput: throughput,
			})
		}
		return nil
	}

	var runErr error
	switch strategy {
	case StrategySequential:
		for _, w := range windows {
			if cancelFlag.Load() {
				return l.assemble(out, windows, true), nil
			}
			if err := step(w); err != nil {
				runErr = err
				break
			}
		}
	default:
		runErr = l.runParallel(ctx, windows, maxParallel, cancelFlag, step)
	}

	if cancelFlag.Load() {
		return l.assemble(out, windows, true), nil
	}
	if runErr != nil {
		return Result{}, runErr
	}
	return l.assemble(out, windows, false), nil
}

func (l *Loader) runParallel(ctx context.Context, windows []chunkWindow, maxParallel int, cancelFlag *atomic.Bool, step func(chunkWindow) error) error {
	sem := make(chan struct{}, maxParallel)
	var wg sync.WaitGroup
	var firstErr error
	var errMu sync.Mutex

	for _, w := range windows {
		if cancelFlag.Load() {
			break
		}
		select {
		case <-ctx.Done():
			errMu.Lock()
			if firstErr == nil {
				firstErr = ctx.Err()
			}
			errMu.Unlock()
		case sem <- struct{}{}:
		}
		if cancelFlag.Load() {
			break
		}
		wg.Add(1)
		go func(w chunkWindow) {
			defer wg.Done()
			defer func() { <-sem }()
			if cancelFlag.Load() {
				return
			}
			if err := step(w); err != nil {
				errMu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				errMu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return firstErr
}

// assemble orders fetched windows back into plan (offset) order.
func (l *Loader) assemble(out map[int][]interface{}, windows []chunkWindow, cancelled bool) Result {
	ordered := make([]chunkWindow, len(windows))
	copy(ordered, windows)
	sortByOffset(ordered)
	var items []interface{}
	for _, w := range ordered {
		if v, ok := out[w.Offset]; ok {
			items = append(items, v...)
		}
	}
	return Result{Items: items, Cancelled: cancelled}
}

func sortByOffset(windows []chunkWindow) {
	for i := 1; i < len(windows); i++ {
		for j := i; j > 0 && windows[j].Offset < windows[j-1].Offset; j-- {
			windows[j], windows[j-1] = windows[j-1], windows[j]
		}
	}
}

// fetchChunk serves w from the chunk cache when present, otherwise
// fetches (with retry) and populates the cache (spec §4.4 "chunk
// caching"). Returns whether the result came from the cache.
func (l *Loader) fetchChunk(ctx context.Context, requestID string, w chunkWindow, fetch FetchFunc) ([]interface{}, bool, error) {
	key := chunkCacheKey(requestID, w)
	if l.cache != nil {
		if v, ok := l.cache.Get(key); ok {
			if items, ok := v.([]interface{}); ok {
				return items, true, nil
			}
		}
	}

	items, err := fetchWithRetry(ctx, l.cfg, func(attemptCtx context.Context) ([]interface{}, error) {
		return fetch(attemptCtx, w.Offset, w.Limit)
	})
	if err != nil {
		return nil, false, cerrors.ProducerFailed("loader.fetch_chunk", err)
	}
	if l.cache != nil {
		l.cache.Set(key, items, tier.SetOptions{TTL: l.cfg.ChunkCacheTTL})
	}
	return items, false, nil
}

// Preload best-effort fetches chunkIDs via source and stores them in
// the chunk cache under requestID, ignoring individual failures (spec
// §4.4 preload).
func (l *Loader) Preload(ctx context.Context, requestID string, chunkIDs []string, source ChunkFetchFunc) int {
	var ok int32
	var wg sync.WaitGroup
	sem := make(chan struct{}, l.cfg.MaxParallelChunks)
	for _, id := range chunkIDs {
		wg.Add(1)
		sem <- struct{}{}
		go func(id string) {
			defer wg.Done()
			defer func() { <-sem }()
			items, err := source(ctx, id)
			if err != nil {
				l.logger.Debug("preload chunk failed", map[string]interface{}{"request_id": requestID, "chunk_id": id, "error": err.Error()})
				return
			}
			if l.cache != nil {
				l.cache.Set(requestID+":"+id, items, tier.SetOptions{TTL: l.cfg.ChunkCacheTTL})
			}
			atomic.AddInt32(&ok, 1)
		}(id)
	}
	wg.Wait()
	return int(ok)
}
