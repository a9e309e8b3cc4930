package loader

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// linearBackOff implements backoff.BackOff with the literal interval
// spec §4.4 names for fetch retries: retry_delay * attempt. cenkalti's
// own exponential backoff multiplies geometrically, which does not
// match that formula, so this plugs a purpose-built BackOff into the
// same backoff.Retry driver the teacher wires in pkg/adapters/resilience.
type linearBackOff struct {
	delay       time.Duration
	maxAttempts int
	attempt     int
}

func (b *linearBackOff) NextBackOff() time.Duration {
	b.attempt++
	if b.maxAttempts > 0 && b.attempt > b.maxAttempts {
		return backoff.Stop
	}
	return b.delay * time.Duration(b.attempt)
}

func (b *linearBackOff) Reset() { b.attempt = 0 }

// fetchWithRetry runs fetch, retrying up to cfg.RetryAttempts times with
// delay cfg.RetryDelay*attempt between tries (spec §4.4). Each attempt
// is bounded by cfg.FetchTimeout; a timed-out attempt counts as a
// failure and is retried like any other error.
func fetchWithRetry(ctx context.Context, cfg Config, fetch func(context.Context) ([]interface{}, error)) ([]interface{}, error) {
	var result []interface{}
	operation := func() error {
		attemptCtx := ctx
		var cancel context.CancelFunc
		if cfg.FetchTimeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, cfg.FetchTimeout)
			defer cancel()
		}
		items, err := fetch(attemptCtx)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}
		result = items
		return nil
	}

	b := &linearBackOff{delay: cfg.RetryDelay, maxAttempts: cfg.RetryAttempts}
	err := backoff.Retry(operation, backoff.WithContext(b, ctx))
	return result, err
}
