package memoize

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/developer-mesh/tieredcache/internal/observability"
)

// degradedController tracks whether the memoizer skips cache lookups
// and calls producers directly (their results are still written to
// the cache) — entered when the
// backing orchestrator reports itself unhealthy, exited once a
// periodic recovery probe succeeds again.
type degradedController struct {
	active  atomic.Bool
	logger  observability.Logger
	metrics observability.MetricsClient
}

func newDegradedController(logger observability.Logger, metrics observability.MetricsClient) *degradedController {
	return &degradedController{logger: logger, metrics: metrics}
}

func (d *degradedController) isActive() bool { return d.active.Load() }

func (d *degradedController) enter(reason string) {
	if !d.active.Swap(true) {
		d.logger.Warn("memoizer entering degraded mode", map[string]interface{}{"reason": reason})
		d.metrics.IncrementCounterWithLabels("memoize_degraded_mode_total", 1, map[string]string{"reason": reason})
	}
}

func (d *degradedController) exit() {
	if d.active.Swap(false) {
		d.logger.Info("memoizer exiting degraded mode", nil)
		d.metrics.IncrementCounter("memoize_degraded_mode_exit_total", 1)
	}
}

// run polls probe at interval and exits degraded mode the first time
// probe returns healthy==true. It stops when ctx is cancelled.
func (d *degradedController) run(ctx context.Context, interval time.Duration, probe func(context.Context) bool) {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !d.isActive() {
				continue
			}
			if probe(ctx) {
				d.exit()
			}
		}
	}
}
