package invalidation

import (
	"context"
	"sort"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/developer-mesh/tieredcache/internal/cerrors"
	"github.com/developer-mesh/tieredcache/internal/observability"
	"github.com/developer-mesh/tieredcache/pkg/orchestrator"
)

type eventJob struct {
	rule    *Rule
	trigger string
}

// Controller is the InvalidationController (spec §4.5): it owns the
// rule set, the entity dependency graph, and the scheduled-sweep
// timers, and drives orchestrator.InvalidateByTag for all of them.
type Controller struct {
	cfg     Config
	orch    *orchestrator.Orchestrator
	logger  observability.Logger
	metrics observability.MetricsClient

	mu    sync.RWMutex // reader-preferring lock over rules (spec §5)
	rules map[string]*Rule
	graph *DependencyGraph
	stats *statsRegistry

	events chan InvalidationEvent
	queue  chan eventJob
	limiter *rate.Limiter

	schedMu   sync.Mutex
	schedules map[string]*time.Ticker
	stopOnce  sync.Once
	stopCh    chan struct{}
	wg        sync.WaitGroup
}

// New constructs a Controller over orch. If cfg.RegisterDefaults is
// set, the four default rules and the ttl-cleanup sweep from spec
// §4.5 are registered immediately.
func New(cfg Config, orch *orchestrator.Orchestrator, logger observability.Logger, metrics observability.MetricsClient) *Controller {
	if logger == nil {
		logger = observability.NewNoopLogger()
	}
	if metrics == nil {
		metrics = observability.NewNoopMetrics()
	}
	c := &Controller{
		cfg:       cfg,
		orch:      orch,
		logger:    logger.WithPrefix("invalidation"),
		metrics:   metrics,
		rules:     make(map[string]*Rule),
		graph:     NewDependencyGraph(),
		stats:     newStatsRegistry(),
		events:    make(chan InvalidationEvent, defaultEventChannelSize()),
		queue:     make(chan eventJob, cfg.EventQueueSize),
		limiter:   rate.NewLimiter(rate.Limit(cfg.EventRateLimit), cfg.EventBurst),
		schedules: make(map[string]*time.Ticker),
		stopCh:    make(chan struct{}),
	}
	workers := cfg.EventWorkers
	if workers <= 0 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		c.wg.Add(1)
		go c.eventWorker()
	}
	if cfg.RegisterDefaults {
		for _, r := range defaultRules() {
			r := r
			_ = c.RegisterRule(&r)
		}
		c.Schedule(ScheduleDesc{Name: "ttl-cleanup", Pattern: ttlCleanupPattern, Interval: ttlCleanupInterval})
	}
	return c
}

// Events returns the channel of emitted InvalidationEvents.
func (c *Controller) Events() <-chan InvalidationEvent { return c.events }

// RegisterRule inserts rule, validating its id is unique and, if its
// pattern is a regex, that it compiles (spec §4.5).
func (c *Controller) RegisterRule(r *Rule) error {
	if r.ID == "" {
		return cerrors.ConfigurationError("invalidation.register_rule", "rule id must not be empty")
	}
	if err := r.compile(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.rules[r.ID]; exists {
		return cerrors.ConfigurationError("invalidation.register_rule", "duplicate rule id "+r.ID)
	}
	r.Enabled = true
	c.rules[r.ID] = r
	for _, dep := range r.Conditions.Dependencies {
		_ = c.graph.AddDependency(r.ID, dep)
	}
	return nil
}

// cascadeInvalidate invalidates every tag reachable from r.ID in the
// dependency graph when r.Cascade is set (spec §3 "cascade"), reusing
// the same transitive Dependents() closure invalidate_by_dependency
// uses. The dependency edges walked here were registered from
// r.Conditions.Dependencies at RegisterRule time.
func (c *Controller) cascadeInvalidate(ctx context.Context, r *Rule) ([]string, int) {
	if !r.Cascade {
		return nil, 0
	}
	dependents := c.graph.Dependents(r.ID)
	if len(dependents) == 0 {
		return nil, 0
	}
	count := 0
	for _, tag := range dependents {
		count += c.orch.InvalidateByTag(ctx, tag)
	}
	return dependents, count
}

// RemoveRule deletes a rule by id; a no-op if it doesn't exist.
func (c *Controller) RemoveRule(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.rules, id)
}

func (c *Controller) matchingRules(pattern string) []*Rule {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var matched []*Rule
	for _, r := range c.rules {
		if r.Enabled && r.matches(pattern) {
			matched = append(matched, r)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].Priority > matched[j].Priority })
	return matched
}

// InvalidateByPattern implements spec §4.5's five-step procedure.
func (c *Controller) InvalidateByPattern(ctx context.Context, pattern, trigger string) InvalidationEvent {
	start := time.Now()
	rules := c.matchingRules(pattern)

	tagSet := make(map[string]struct{})
	count := 0
	for _, r := range rules {
		ruleStart := time.Now()
		for _, tag := range r.Tags {
			tagSet[tag] = struct{}{}
			count += c.orch.InvalidateByTag(ctx, tag)
		}
		cascaded, cascadedCount := c.cascadeInvalidate(ctx, r)
		for _, tag := range cascaded {
			tagSet[tag] = struct{}{}
		}
		count += cascadedCount
		c.stats.record(r.ID, time.Since(ruleStart))
	}

	ev := newInvalidationEvent(EventPattern, trigger, Affected{Tags: tagsOf(tagSet), Count: count}, time.Since(start).Milliseconds())
	publish(c.events, ev)
	return ev
}

func tagsOf(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	return out
}

// AddDependency registers parent -> dependent in the controller's
// dependency graph, rejecting cycles (spec §4.5).
func (c *Controller) AddDependency(parent, dependent string) error {
	return c.graph.AddDependency(parent, dependent)
}

// InvalidateByDependency invalidates parent and every transitive
// dependent by tag (spec §4.5).
func (c *Controller) InvalidateByDependency(ctx context.Context, parent string) InvalidationEvent {
	start := time.Now()
	targets := append([]string{parent}, c.graph.Dependents(parent)...)

	count := 0
	for _, t := range targets {
		count += c.orch.InvalidateByTag(ctx, t)
	}

	ev := newInvalidationEvent(EventDependency, "dependency:"+parent, Affected{Tags: targets, Count: count}, time.Since(start).Milliseconds())
	publish(c.events, ev)
	return ev
}

// OnEvent schedules every rule whose trigger set includes entity, op,
// or the wildcard "data-change" (spec §4.5). Dispatch is fire-and-
// forget: a full queue silently drops the job.
func (c *Controller) OnEvent(entity, op string, data interface{}) {
	c.mu.RLock()
	var matched []*Rule
	for _, r := range c.rules {
		if r.Enabled && (r.hasTrigger(entity) || r.hasTrigger(op)) {
			matched = append(matched, r)
		}
	}
	c.mu.RUnlock()

	for _, r := range matched {
		select {
		case c.queue <- eventJob{rule: r, trigger: "event:" + entity + ":" + op}:
		default:
			c.logger.Debug("invalidation event queue full, dropping job", map[string]interface{}{"rule": r.ID, "entity": entity, "op": op})
		}
	}
}

func (c *Controller) eventWorker() {
	defer c.wg.Done()
	ctx := context.Background()
	for {
		select {
		case <-c.stopCh:
			return
		case job := <-c.queue:
			if c.limiter != nil {
				_ = c.limiter.Wait(ctx)
			}
			c.applyRule(ctx, job.rule, job.trigger)
		}
	}
}

func (c *Controller) applyRule(ctx context.Context, r *Rule, trigger string) {
	start := time.Now()
	count := 0
	for _, tag := range r.Tags {
		count += c.orch.InvalidateByTag(ctx, tag)
	}
	cascaded, cascadedCount := c.cascadeInvalidate(ctx, r)
	count += cascadedCount
	tags := append(append([]string{}, r.Tags...), cascaded...)
	c.stats.record(r.ID, time.Since(start))
	publish(c.events, newInvalidationEvent(EventTriggered, trigger, Affected{Tags: tags, Count: count}, time.Since(start).Milliseconds()))
}

// ScheduleDesc describes a repeating sweep (spec §4.5 schedule).
type ScheduleDesc struct {
	Name     string
	Pattern  string
	Interval time.Duration
}

// Schedule starts a repeating timer that calls
// invalidate_by_pattern(pattern, "scheduled:"+name) every interval.
func (c *Controller) Schedule(desc ScheduleDesc) {
	if desc.Interval <= 0 {
		return
	}
	ticker := time.NewTicker(desc.Interval)
	c.schedMu.Lock()
	c.schedules[desc.Name] = ticker
	c.schedMu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			select {
			case <-c.stopCh:
				return
			case <-ticker.C:
				c.InvalidateByPattern(context.Background(), desc.Pattern, "scheduled:"+desc.Name)
			}
		}
	}()
}

// ClearScheduled cancels every scheduled sweep.
func (c *Controller) ClearScheduled() {
	c.schedMu.Lock()
	defer c.schedMu.Unlock()
	for name, t := range c.schedules {
		t.Stop()
		delete(c.schedules, name)
	}
}

// Stats returns the observed firing stats for ruleID (spec P10).
func (c *Controller) Stats(ruleID string) RuleStats { return c.stats.snapshot(ruleID) }

// Shutdown stops all scheduled sweeps and event workers.
func (c *Controller) Shutdown() {
	c.ClearScheduled()
	c.stopOnce.Do(func() { close(c.stopCh) })
	c.wg.Wait()
}
