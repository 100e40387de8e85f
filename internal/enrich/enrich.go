// Package enrich coordinates the concurrent enrichment run: it fans records
// out to a worker pool, commits results from a single goroutine, and
// checkpoints progress so an interrupted run resumes where it stopped.
package enrich

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/rclib/bookweaver/internal/catalog"
	"github.com/rclib/bookweaver/internal/chain"
	"github.com/rclib/bookweaver/internal/clock"
)

// Runner walks one record through the fallback chain.
type Runner interface {
	Run(ctx context.Context, rec catalog.Record) chain.Result
}

// Checkpointer persists the full record set.
type Checkpointer interface {
	Save(ctx context.Context, records []catalog.Record) (string, error)
}

// Config sizes the run.
type Config struct {
	// Workers is the pool width.
	Workers int
	// CheckpointEvery saves after this many committed results. Zero disables
	// the count trigger.
	CheckpointEvery int
	// CheckpointInterval saves when this much time has passed since the last
	// save. Zero disables the time trigger.
	CheckpointInterval time.Duration
}

// Summary reports what one run did.
type Summary struct {
	RunID     string         `json:"run_id"`
	Counts    catalog.Counts `json:"counts"`
	Processed int            `json:"processed"`
	Skipped   int            `json:"skipped"`
	Canceled  int            `json:"canceled"`
	// ExcludedInvalid counts catalog rows dropped before the run because
	// their identifier could not be normalized. Set by the caller; the
	// orchestrator never sees those rows.
	ExcludedInvalid int       `json:"excluded_invalid"`
	Checkpoints     int       `json:"checkpoints"`
	StartedAt       time.Time `json:"started_at"`
	FinishedAt      time.Time `json:"finished_at"`
}

// Orchestrator runs the enrichment over a record set. The record slice is
// mutated in place; only the coordinator goroutine writes to it.
type Orchestrator struct {
	runner       Runner
	checkpointer Checkpointer
	cfg          Config
	clock        clock.Clock
	logger       *zap.Logger
	onCommit     func(isbn string, status catalog.Status)
	onCheckpoint func()
}

// Option tweaks Orchestrator construction.
type Option func(*Orchestrator)

// WithClock overrides the wall clock; tests use it to drive the interval
// trigger.
func WithClock(c clock.Clock) Option {
	return func(o *Orchestrator) { o.clock = c }
}

// WithCommitObserver is notified after every committed result.
func WithCommitObserver(fn func(isbn string, status catalog.Status)) Option {
	return func(o *Orchestrator) { o.onCommit = fn }
}

// WithCheckpointObserver is notified after every successful snapshot save.
func WithCheckpointObserver(fn func()) Option {
	return func(o *Orchestrator) { o.onCheckpoint = fn }
}

// New builds an Orchestrator.
func New(runner Runner, checkpointer Checkpointer, cfg Config, logger *zap.Logger, opts ...Option) (*Orchestrator, error) {
	if runner == nil {
		return nil, fmt.Errorf("runner is required")
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 20
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	o := &Orchestrator{
		runner:       runner,
		checkpointer: checkpointer,
		cfg:          cfg,
		clock:        clock.NewSystem(),
		logger:       logger,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

type indexedResult struct {
	idx int
	res chain.Result
}

// Run enriches every non-terminal record. It returns once all submitted
// records have committed or ctx was canceled, flushing a final checkpoint.
// A checkpoint write failure aborts the run and is returned as its error.
// Records already resolved or not-found are never re-fetched.
func (o *Orchestrator) Run(ctx context.Context, runID string, records []catalog.Record) (Summary, error) {
	summary := Summary{RunID: runID, StartedAt: o.clock.Now()}

	var jobs []int
	for i, rec := range records {
		if rec.Status.Terminal() {
			summary.Skipped++
			continue
		}
		jobs = append(jobs, i)
	}
	o.logger.Info("enrichment run starting",
		zap.String("run_id", runID),
		zap.Int("records", len(records)),
		zap.Int("queued", len(jobs)),
		zap.Int("skipped", summary.Skipped),
		zap.Int("workers", o.cfg.Workers),
	)

	pool, err := ants.NewPool(o.cfg.Workers)
	if err != nil {
		return summary, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	// runCtx lets the coordinator stop in-flight chains when the checkpoint
	// store turns out to be unhealthy.
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Submission runs off the coordinator goroutine: Submit blocks when the
	// pool is saturated, and the coordinator must keep draining results.
	results := make(chan indexedResult, o.cfg.Workers)
	go func() {
		var wg sync.WaitGroup
		for _, idx := range jobs {
			idx := idx
			rec := records[idx]
			wg.Add(1)
			if err := pool.Submit(func() {
				defer wg.Done()
				results <- indexedResult{idx: idx, res: o.runner.Run(runCtx, rec)}
			}); err != nil {
				wg.Done()
				o.logger.Error("submit record", zap.String("isbn", rec.ISBN), zap.Error(err))
			}
		}
		wg.Wait()
		close(results)
	}()

	// Single-writer commit loop. Workers never touch the record slice. A
	// failed save is fatal: without durable snapshots an interrupted run
	// would silently lose all progress, so dispatch stops and the run fails.
	lastSave := o.clock.Now()
	sinceSave := 0
	var saveErr error
	for ir := range results {
		o.commit(&records[ir.idx], ir.res, &summary)
		if ir.res.Canceled {
			continue
		}
		sinceSave++
		if saveErr != nil || !o.shouldCheckpoint(sinceSave, lastSave) {
			continue
		}
		if err := o.saveCheckpoint(ctx, records, &summary); err != nil {
			saveErr = err
			cancel()
			continue
		}
		lastSave = o.clock.Now()
		sinceSave = 0
	}

	// Final flush runs even after cancellation so the resume point is the
	// last committed state. Skipped when a save already failed; the store is
	// not trustworthy.
	if saveErr == nil {
		saveErr = o.saveCheckpoint(context.WithoutCancel(ctx), records, &summary)
	}

	summary.FinishedAt = o.clock.Now()
	summary.Counts = catalog.Count(records)
	o.logger.Info("enrichment run finished",
		zap.String("run_id", runID),
		zap.Int("processed", summary.Processed),
		zap.Int("canceled", summary.Canceled),
		zap.Int("resolved", summary.Counts.Resolved),
		zap.Int("not_found", summary.Counts.NotFound),
		zap.Int("unavailable", summary.Counts.Unavailable),
		zap.Int("pending", summary.Counts.Pending),
		zap.Duration("elapsed", summary.FinishedAt.Sub(summary.StartedAt)),
	)
	if saveErr != nil {
		return summary, saveErr
	}
	return summary, ctx.Err()
}

func (o *Orchestrator) commit(rec *catalog.Record, res chain.Result, summary *Summary) {
	if res.Canceled {
		summary.Canceled++
		return
	}
	rec.Status = res.Status
	rec.Description = res.Description
	rec.Source = res.Source
	summary.Processed++
	if o.onCommit != nil {
		o.onCommit(rec.ISBN, res.Status)
	}
}

func (o *Orchestrator) shouldCheckpoint(sinceSave int, lastSave time.Time) bool {
	if o.checkpointer == nil || sinceSave == 0 {
		return false
	}
	if o.cfg.CheckpointEvery > 0 && sinceSave >= o.cfg.CheckpointEvery {
		return true
	}
	if o.cfg.CheckpointInterval > 0 && o.clock.Now().Sub(lastSave) >= o.cfg.CheckpointInterval {
		return true
	}
	return false
}

// saveCheckpoint writes one snapshot. A nil checkpointer is a no-op; any
// write failure is returned and ends the run.
func (o *Orchestrator) saveCheckpoint(ctx context.Context, records []catalog.Record, summary *Summary) error {
	if o.checkpointer == nil {
		return nil
	}
	if _, err := o.checkpointer.Save(ctx, records); err != nil {
		o.logger.Error("checkpoint save failed", zap.Error(err))
		return fmt.Errorf("save checkpoint: %w", err)
	}
	summary.Checkpoints++
	if o.onCheckpoint != nil {
		o.onCheckpoint()
	}
	return nil
}
