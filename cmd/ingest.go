package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// newIngestCmd creates the 'ingest' subcommand, which runs a single
// ingestion pass over the configured feeds and exits.
func newIngestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest",
		Short: "Run one ingestion pass and exit",
		Long: `Fetches every configured feed once, normalizes the entries, and
writes the new ones to the store. Useful for backfills and for running
under an external scheduler such as cron.`,

		RunE: runIngestCommand,
	}
}

func runIngestCommand(cmd *cobra.Command, _ []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	counters, err := appInstance.Runner().Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("run ingestion: %w", err)
	}

	appInstance.Logger().Info("ingest command finished",
		zap.Int("inserted", counters.Inserted),
		zap.Int("duplicates", counters.Duplicates),
	)
	return nil
}
