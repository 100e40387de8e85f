package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rclib/bookweaver/internal/catalog"
	"github.com/rclib/bookweaver/internal/checkpoint"
	"github.com/rclib/bookweaver/internal/store"
)

func newLoadCmd() *cobra.Command {
	var resolvedOnly bool

	cmd := &cobra.Command{
		Use:   "load",
		Short: "Load the enriched record set into Postgres",
		Long: `Reads the latest enrichment checkpoint and bulk-inserts the records
into the books table. Records already present (by ISBN) are left untouched,
so repeated loads are safe.`,

		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLoadCommand(cmd.Context(), resolvedOnly)
		},
	}
	cmd.Flags().BoolVar(&resolvedOnly, "resolved-only", false, "load only records that obtained a description")
	return cmd
}

func runLoadCommand(parent context.Context, resolvedOnly bool) error {
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
	// The run ID is irrelevant for reading; LoadLatest follows the shared
	// marker regardless of which run wrote it.
	manager, err := checkpoint.NewManager(blobStore, cfg.Checkpoint.Prefix, "load", logger)
	if err != nil {
		return fmt.Errorf("init checkpoint manager: %w", err)
	}
	records, err := manager.LoadLatest(ctx)
	if errors.Is(err, checkpoint.ErrNoCheckpoint) {
		return fmt.Errorf("no checkpoint to load; run enrich first")
	}
	if err != nil {
		return fmt.Errorf("load checkpoint: %w", err)
	}

	if resolvedOnly {
		kept := records[:0]
		for _, r := range records {
			if r.Status == catalog.StatusResolved {
				kept = append(kept, r)
			}
		}
		records = kept
	}

	books, err := store.New(ctx, store.Config{
		DSN:      cfg.DB.DSN,
		Table:    cfg.DB.Table,
		MaxConns: cfg.DB.MaxConns,
		MinConns: cfg.DB.MinConns,
	})
	if err != nil {
		return fmt.Errorf("init book store: %w", err)
	}
	defer books.Close()

	if err := books.EnsureSchema(ctx); err != nil {
		return err
	}
	inserted, err := books.InsertRecords(ctx, records)
	if err != nil {
		return fmt.Errorf("insert records: %w", err)
	}

	logger.Info("load command finished",
		zap.Int("records", len(records)),
		zap.Int64("inserted", inserted),
		zap.Int64("skipped", int64(len(records))-inserted),
	)
	return nil
}
