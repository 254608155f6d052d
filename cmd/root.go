// Package cmd defines and implements the CLI commands for the arxivd executable.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/paperdesk/arxivd/internal/app"
	"github.com/paperdesk/arxivd/internal/config"
	"github.com/paperdesk/arxivd/internal/ingest"
	"github.com/paperdesk/arxivd/internal/store"
)

var cfgFile string

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// App is the slice of the service container the commands use. Keeping it
// an interface lets tests inject a fake container.
type App interface {
	Close()
	Config() config.Config
	Logger() *zap.Logger
	Items() store.ItemStore
	Runner() *ingest.Runner
}

// newApp is the application factory. It is a variable so tests can swap
// in a fake.
var newApp = func(ctx context.Context) (App, error) {
	return app.New(ctx, cfgFile)
}

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "arxivd",
		Short: "Daily arXiv feed ingestion daemon.",
		Long: `arxivd pulls the daily arXiv RSS feeds, normalizes each announcement
into a canonical record, and stores it exactly once. It can run a single
ingestion pass or stay resident with a weekday scheduler and a small
review API.`,

		// Build the service container once, before any subcommand runs.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := newApp(cmd.Context())
			if err != nil {
				return fmt.Errorf("initialize services: %w", err)
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, appInstance))
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if appInstance, ok := cmd.Context().Value(appKey).(App); ok && appInstance != nil {
				appInstance.Close()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./arxivd.yaml)")

	cmd.AddCommand(newIngestCmd())
	cmd.AddCommand(newServeCmd())

	return cmd
}

func resolveApp(ctx context.Context) (App, error) {
	appInstance, ok := ctx.Value(appKey).(App)
	if !ok || appInstance == nil {
		return nil, fmt.Errorf("application services not initialized")
	}
	return appInstance, nil
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
