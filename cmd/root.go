// Package cmd defines the CLI commands for the bookweaver executable.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rclib/bookweaver/internal/config"
	"github.com/rclib/bookweaver/internal/logging"
	"github.com/rclib/bookweaver/internal/metrics"
)

var cfgFile string

// runtimeKey is the context key for the shared command runtime.
type runtimeKey struct{}

// runtime carries the dependencies every subcommand needs.
type runtime struct {
	cfg    config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bookweaver",
		Short: "Enrich a library catalog with book descriptions.",
		Long: `bookweaver takes a raw library catalog export and fills in book
descriptions by querying a chain of public sources, checkpointing progress
so interrupted runs resume where they stopped. The finished record set is
loaded into Postgres and served over a small query API.`,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			logger, err := logging.New(cfg.Logging.Development)
			if err != nil {
				return fmt.Errorf("initialize logger: %w", err)
			}
			metrics.Init()
			ctx := context.WithValue(cmd.Context(), runtimeKey{}, &runtime{cfg: cfg, logger: logger})
			cmd.SetContext(ctx)
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if rt, ok := cmd.Context().Value(runtimeKey{}).(*runtime); ok && rt != nil {
				_ = rt.logger.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default uses built-in defaults and BOOKWEAVER_* env vars)")

	cmd.AddCommand(newEnrichCmd())
	cmd.AddCommand(newLoadCmd())
	cmd.AddCommand(newServeCmd())

	return cmd
}

func resolveRuntime(ctx context.Context) (*runtime, error) {
	rt, ok := ctx.Value(runtimeKey{}).(*runtime)
	if !ok || rt == nil {
		return nil, fmt.Errorf("command runtime not initialized")
	}
	return rt, nil
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
