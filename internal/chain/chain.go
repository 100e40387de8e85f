// Package chain sequences source adapters per record, short-circuiting on
// the first acceptable result.
package chain

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/rclib/bookweaver/internal/catalog"
	"github.com/rclib/bookweaver/internal/source"
)

// Limiter gates adapter calls per source.
type Limiter interface {
	Wait(ctx context.Context, key string) error
}

// AttemptObserver is notified after every adapter attempt, resolved or not.
type AttemptObserver func(sourceName string, kind source.Kind, dur time.Duration)

// Result is the terminal outcome of one record's walk through the chain.
type Result struct {
	ISBN        string
	Status      catalog.Status
	Description string
	Source      string
	Attempts    int
	// Skipped is set for records that were already terminal (idempotent
	// resume); no adapter was invoked.
	Skipped bool
	// Canceled is set when shutdown interrupted the chain; the record keeps
	// its previous non-terminal status.
	Canceled bool
}

// Controller walks one record through the adapters in priority order.
type Controller struct {
	adapters  []source.Adapter
	retry     *RetryPolicy
	limiter   Limiter
	onAttempt AttemptObserver
	sleep     func(context.Context, time.Duration)
	logger    *zap.Logger
}

// Option tweaks Controller construction.
type Option func(*Controller)

// WithLimiter installs a per-source rate limiter.
func WithLimiter(l Limiter) Option {
	return func(c *Controller) { c.limiter = l }
}

// WithAttemptObserver installs a per-attempt callback.
func WithAttemptObserver(fn AttemptObserver) Option {
	return func(c *Controller) { c.onAttempt = fn }
}

// withSleep overrides the backoff sleeper; tests use it to avoid real waits.
func withSleep(fn func(context.Context, time.Duration)) Option {
	return func(c *Controller) { c.sleep = fn }
}

// New builds a Controller over the adapters in declared priority order.
func New(adapters []source.Adapter, retry *RetryPolicy, logger *zap.Logger, opts ...Option) *Controller {
	if retry == nil {
		retry = NewRetryPolicy(0, 0, 0)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Controller{
		adapters: adapters,
		retry:    retry,
		sleep:    sleepCtx,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run executes the fallback chain for one record. Already-terminal records
// are skipped without touching any adapter. The record itself is not
// mutated; the caller owns the commit.
func (c *Controller) Run(ctx context.Context, rec catalog.Record) Result {
	res := Result{
		ISBN:        rec.ISBN,
		Status:      rec.Status,
		Description: rec.Description,
		Source:      rec.Source,
	}
	if rec.Status.Terminal() {
		res.Skipped = true
		return res
	}

	for _, adapter := range c.adapters {
		outcome, canceled := c.runAdapter(ctx, adapter, rec, &res)
		if canceled {
			res.Canceled = true
			return res
		}
		if outcome.Kind == source.KindResolved {
			res.Status = catalog.StatusResolved
			res.Description = outcome.Description
			res.Source = adapter.Name()
			return res
		}
		// Unavailable, NotFound, or exhausted retries: advance.
	}

	res.Status = catalog.StatusNotFound
	res.Description = ""
	res.Source = ""
	return res
}

// runAdapter applies the retry policy around one adapter. Returns the final
// outcome for this adapter and whether the run was canceled.
func (c *Controller) runAdapter(ctx context.Context, adapter source.Adapter, rec catalog.Record, res *Result) (source.Outcome, bool) {
	for attempt := 1; ; attempt++ {
		if ctx.Err() != nil {
			return source.Outcome{}, true
		}
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx, adapter.Name()); err != nil {
				return source.Outcome{}, true
			}
		}

		start := time.Now()
		outcome := adapter.Attempt(ctx, rec)
		res.Attempts++
		if c.onAttempt != nil {
			c.onAttempt(adapter.Name(), outcome.Kind, time.Since(start))
		}

		if outcome.Kind != source.KindTransient {
			return outcome, false
		}
		if !c.retry.ShouldRetry(attempt) {
			c.logger.Debug("adapter retries exhausted",
				zap.String("isbn", rec.ISBN),
				zap.String("source", adapter.Name()),
				zap.Int("attempts", attempt),
				zap.Error(outcome.Err),
			)
			// Exhausted transient failures count as this adapter's
			// not-found; the chain advances.
			return source.NotFound(), false
		}
		c.sleep(ctx, c.retry.Backoff(attempt))
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
