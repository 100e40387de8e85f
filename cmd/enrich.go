package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	gcs "cloud.google.com/go/storage"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rclib/bookweaver/internal/catalog"
	"github.com/rclib/bookweaver/internal/chain"
	"github.com/rclib/bookweaver/internal/checkpoint"
	"github.com/rclib/bookweaver/internal/config"
	"github.com/rclib/bookweaver/internal/enrich"
	"github.com/rclib/bookweaver/internal/id"
	"github.com/rclib/bookweaver/internal/metrics"
	"github.com/rclib/bookweaver/internal/progress"
	"github.com/rclib/bookweaver/internal/progress/sinks"
	"github.com/rclib/bookweaver/internal/publisher"
	"github.com/rclib/bookweaver/internal/ratelimit"
	"github.com/rclib/bookweaver/internal/source"
)

func newEnrichCmd() *cobra.Command {
	var resume bool

	cmd := &cobra.Command{
		Use:   "enrich",
		Short: "Run the description enrichment pipeline",
		Long: `Walks every catalog record through the source fallback chain,
checkpointing progress as it goes. With --resume the latest checkpoint is
loaded instead of the raw catalog and only unfinished records are fetched.`,

		RunE: func(cmd *cobra.Command, _ []string) error {
			return runEnrichCommand(cmd.Context(), resume)
		},
	}
	cmd.Flags().BoolVar(&resume, "resume", false, "resume from the latest checkpoint")
	return cmd
}

func runEnrichCommand(parent context.Context, resume bool) error {
	rt, err := resolveRuntime(parent)
	if err != nil {
		return err
	}
	cfg, logger := rt.cfg, rt.logger

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	blobStore, err := buildBlobStore(ctx, cfg)
	if err != nil {
		return err
	}

	runID := id.NewRunID()
	manager, err := checkpoint.NewManager(blobStore, cfg.Checkpoint.Prefix, runID, logger)
	if err != nil {
		return fmt.Errorf("init checkpoint manager: %w", err)
	}

	records, excluded, err := loadRecords(ctx, cfg, logger, manager, resume)
	if err != nil {
		return err
	}

	renderer, err := buildRenderer(cfg, logger)
	if err != nil {
		return err
	}
	if renderer != nil {
		defer renderer.Close()
	}

	adapters, err := buildAdapters(cfg, renderer, logger)
	if err != nil {
		return err
	}

	promSink, err := sinks.NewPrometheusSink(nil)
	if err != nil {
		logger.Warn("progress collectors already registered", zap.Error(err))
	}
	hubSinks := []progress.Sink{sinks.NewLogSink(logger.WithOptions(zap.IncreaseLevel(zap.WarnLevel)))}
	if promSink != nil {
		hubSinks = append(hubSinks, promSink)
	}
	hub := progress.NewHub(progress.Config{Logger: logger}, hubSinks...)
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if cerr := hub.Close(closeCtx); cerr != nil {
			logger.Warn("progress hub close", zap.Error(cerr))
		}
	}()

	limiter := meteredLimiter{ratelimit.New(cfg.Enrich.SourceRPS, cfg.Enrich.SourceBurst)}
	retry := chain.NewRetryPolicy(
		cfg.Enrich.MaxRetries,
		time.Duration(cfg.Enrich.BackoffInitialMs)*time.Millisecond,
		time.Duration(cfg.Enrich.BackoffMaxMs)*time.Millisecond,
	)
	controller := chain.New(adapters, retry, logger,
		chain.WithLimiter(limiter),
		chain.WithAttemptObserver(func(src string, kind source.Kind, dur time.Duration) {
			metrics.ObserveAttempt(src, string(kind), dur)
			hub.Emit(progress.Event{
				RunID: runID, TS: time.Now().UTC(), Stage: progress.StageAttempt,
				Source: src, Outcome: string(kind), Dur: dur,
			})
		}),
	)

	orchestrator, err := enrich.New(gaugedRunner{controller}, manager, enrich.Config{
		Workers:            cfg.Enrich.Workers,
		CheckpointEvery:    cfg.Checkpoint.EveryRecords,
		CheckpointInterval: cfg.CheckpointInterval(),
	}, logger,
		enrich.WithCommitObserver(func(isbn string, status catalog.Status) {
			metrics.ObserveRecord(string(status))
			hub.Emit(progress.Event{
				RunID: runID, TS: time.Now().UTC(), Stage: progress.StageRecord,
				ISBN: isbn, Status: string(status),
			})
		}),
		enrich.WithCheckpointObserver(func() {
			metrics.ObserveCheckpoint()
			hub.Emit(progress.Event{RunID: runID, TS: time.Now().UTC(), Stage: progress.StageCheckpoint})
		}),
	)
	if err != nil {
		return fmt.Errorf("init orchestrator: %w", err)
	}

	hub.Emit(progress.Event{RunID: runID, TS: time.Now().UTC(), Stage: progress.StageRunStart})
	summary, runErr := orchestrator.Run(ctx, runID, records)
	summary.ExcludedInvalid = excluded
	hub.Emit(progress.Event{
		RunID: runID, TS: time.Now().UTC(), Stage: progress.StageRunDone,
		Dur: summary.FinishedAt.Sub(summary.StartedAt),
	})

	if err := publishSummary(parent, cfg, logger, summary); err != nil {
		logger.Warn("publish run summary", zap.Error(err))
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return fmt.Errorf("enrichment run: %w", runErr)
	}
	logger.Info("enrich command finished",
		zap.String("run_id", runID),
		zap.Bool("interrupted", errors.Is(runErr, context.Canceled)),
	)
	return nil
}

// loadRecords chooses the run input: the latest checkpoint when resuming,
// otherwise the raw catalog export (with optional crosswalk backfill). The
// int is the number of rows dropped for unusable identifiers.
func loadRecords(ctx context.Context, cfg config.Config, logger *zap.Logger, manager *checkpoint.Manager, resume bool) ([]catalog.Record, int, error) {
	if resume {
		records, err := manager.LoadLatest(ctx)
		if err == nil {
			return records, 0, nil
		}
		if !errors.Is(err, checkpoint.ErrNoCheckpoint) {
			return nil, 0, fmt.Errorf("load checkpoint: %w", err)
		}
		logger.Info("no checkpoint found, starting from the raw catalog")
	}

	loader := catalog.NewLoader(logger)
	records, stats, err := loader.LoadFile(cfg.Catalog.Path)
	if err != nil {
		return nil, 0, fmt.Errorf("load catalog: %w", err)
	}
	if cfg.Catalog.CrosswalkPath != "" {
		authoritative, _, err := loader.LoadFile(cfg.Catalog.CrosswalkPath)
		if err != nil {
			return nil, 0, fmt.Errorf("load crosswalk catalog: %w", err)
		}
		updated := catalog.BackfillISBNs(authoritative, records)
		logger.Info("crosswalk backfill applied", zap.Int("updated", updated))
	}
	return records, stats.Invalid, nil
}

func buildBlobStore(ctx context.Context, cfg config.Config) (checkpoint.BlobStore, error) {
	switch cfg.Checkpoint.Provider {
	case "gcs":
		client, err := gcs.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("init gcs client: %w", err)
		}
		return checkpoint.NewGCSStore(client, cfg.Checkpoint.GCSBucket)
	default:
		return checkpoint.NewLocalStore(cfg.Checkpoint.Dir)
	}
}

func buildRenderer(cfg config.Config, logger *zap.Logger) (*source.ChromedpRenderer, error) {
	if !cfg.Headless.Enabled {
		return nil, nil
	}
	renderer, err := source.NewChromedpRenderer(source.RendererConfig{
		UserAgent:   cfg.Sources.UserAgent,
		MaxParallel: cfg.Headless.MaxParallel,
		NavTimeout:  time.Duration(cfg.Headless.NavTimeoutSec) * time.Second,
	}, logger)
	switch {
	case err == nil:
		return renderer, nil
	case errors.Is(err, source.ErrRendererDisabled):
		logger.Warn("headless renderer disabled despite feature flag")
		return nil, nil
	default:
		return nil, fmt.Errorf("init renderer: %w", err)
	}
}

func buildAdapters(cfg config.Config, renderer *source.ChromedpRenderer, logger *zap.Logger) ([]source.Adapter, error) {
	srcCfg := source.Config{
		UserAgent:         cfg.Sources.UserAgent,
		Timeout:           cfg.SourceTimeout(),
		Delay:             cfg.SourceDelay(),
		MaxConns:          cfg.Enrich.Workers,
		MinDescriptionLen: cfg.Sources.MinDescriptionLen,
		OpenLibraryURL:    cfg.Sources.OpenLibraryURL,
		GoogleBooksURL:    cfg.Sources.GoogleBooksURL,
		BookswagonURL:     cfg.Sources.BookswagonURL,
		GoogleBooksAPIURL: cfg.Sources.GoogleBooksAPIURL,
	}
	client := source.NewClient(srcCfg)

	var detector source.Detector
	var htmlRenderer source.Renderer
	if renderer != nil {
		detector = source.NewHeuristicDetector(cfg.Headless.MinHTMLBytes, cfg.Headless.Keywords)
		htmlRenderer = renderer
	}
	googleHTML, err := source.NewGoogleBooksHTMLAdapter(srcCfg, htmlRenderer, detector, logger)
	if err != nil {
		return nil, fmt.Errorf("init googlebooks html adapter: %w", err)
	}
	bookswagon, err := source.NewBookswagonAdapter(srcCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("init bookswagon adapter: %w", err)
	}

	return []source.Adapter{
		source.NewOpenLibraryAdapter(srcCfg, client, logger),
		googleHTML,
		bookswagon,
		source.NewGoogleBooksAPIAdapter(srcCfg, client, logger),
	}, nil
}

// meteredLimiter records how long each rate-limit wait took.
type meteredLimiter struct {
	inner *ratelimit.SourceLimiter
}

func (m meteredLimiter) Wait(ctx context.Context, key string) error {
	start := time.Now()
	err := m.inner.Wait(ctx, key)
	metrics.ObserveRateLimitDelay(key, time.Since(start))
	return err
}

// gaugedRunner tracks how many workers are mid-chain at once.
type gaugedRunner struct {
	inner enrich.Runner
}

func (g gaugedRunner) Run(ctx context.Context, rec catalog.Record) chain.Result {
	metrics.IncActiveWorkers()
	defer metrics.DecActiveWorkers()
	return g.inner.Run(ctx, rec)
}

func publishSummary(ctx context.Context, cfg config.Config, logger *zap.Logger, summary enrich.Summary) error {
	pub, cleanup, err := buildPublisher(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	pubCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	msgID, err := pub.Publish(pubCtx, summary)
	if err != nil {
		return err
	}
	logger.Info("run summary published", zap.String("message_id", msgID))
	return nil
}

func buildPublisher(ctx context.Context, cfg config.Config) (publisher.Publisher, func(), error) {
	if cfg.PubSub.Provider != "pubsub" {
		return publisher.NewMemory(), func() {}, nil
	}
	client, err := pubsub.NewClient(ctx, cfg.PubSub.ProjectID)
	if err != nil {
		return nil, nil, fmt.Errorf("init pubsub client: %w", err)
	}
	topic := client.Topic(cfg.PubSub.TopicName)
	pub, err := publisher.NewPubSub(topic)
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	cleanup := func() {
		pub.Stop()
		_ = client.Close()
	}
	return pub, cleanup, nil
}
