// Package app initializes and holds long-lived application services, acting as a dependency injection container.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/paperdesk/arxivd/internal/clock/system"
	"github.com/paperdesk/arxivd/internal/config"
	"github.com/paperdesk/arxivd/internal/feed"
	"github.com/paperdesk/arxivd/internal/fetch"
	"github.com/paperdesk/arxivd/internal/ingest"
	"github.com/paperdesk/arxivd/internal/logging"
	"github.com/paperdesk/arxivd/internal/store"
	"github.com/paperdesk/arxivd/internal/store/postgres"
)

// App holds the shared, long-lived services for the daemon. It is built
// once at startup from the loaded configuration and handed to whichever
// command is running.
type App struct {
	cfg    config.Config
	logger *zap.Logger
	clock  feed.Clock
	items  *postgres.ItemStore
	runner *ingest.Runner
}

// Config returns the loaded configuration.
func (a *App) Config() config.Config {
	return a.cfg
}

// Logger returns the shared zap logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Items exposes the paper store.
func (a *App) Items() store.ItemStore {
	return a.items
}

// Runner returns the ingestion runner.
func (a *App) Runner() *ingest.Runner {
	return a.runner
}

// New loads configuration from path and wires every service the commands
// need. It fails fast if the database is unreachable or the schema cannot
// be applied.
func New(ctx context.Context, configPath string) (*App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	logger.Info("initializing services", zap.Int("feeds", len(cfg.Feeds.URLs)))

	items, err := postgres.New(ctx, postgres.Config{
		DSN:      cfg.DB.DSN,
		MaxConns: cfg.DB.MaxConns,
		MinConns: cfg.DB.MinConns,
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := items.EnsureSchema(ctx); err != nil {
		items.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	clk := system.New()
	policy := fetch.FixedDelayPolicy{
		MaxAttempts: cfg.Fetch.MaxAttempts,
		Delay:       cfg.Fetch.RetryDelay(),
	}
	fetcher := fetch.New(policy, clk, logger)
	runner := ingest.New(cfg.Feeds.URLs, fetcher, items, clk, logger)

	logger.Info("services initialized")

	return &App{
		cfg:    cfg,
		logger: logger,
		clock:  clk,
		items:  items,
		runner: runner,
	}, nil
}

// Close shuts down the services held by the container. Flushing the logger
// is best-effort.
func (a *App) Close() {
	a.logger.Info("shutting down services")
	a.items.Close()
	_ = a.logger.Sync()
}
