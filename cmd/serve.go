package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rclib/bookweaver/internal/api"
	"github.com/rclib/bookweaver/internal/store"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the read-only query API",
		Long: `Serves the books table over HTTP: health and metrics endpoints,
lookup by ISBN, and a bounded substring search over titles and authors.`,

		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServeCommand(cmd.Context())
		},
	}
}

func runServeCommand(parent context.Context) error {
	rt, err := resolveRuntime(parent)
	if err != nil {
		return err
	}
	cfg, logger := rt.cfg, rt.logger

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

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

	server := api.NewServer(books, logger, 30*time.Second)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("query API listening", zap.Int("port", cfg.Server.Port))
		if serveErr := httpServer.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			errCh <- serveErr
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("query API stopped")
	return nil
}
