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

	"github.com/paperdesk/arxivd/internal/api"
	"github.com/paperdesk/arxivd/internal/clock/system"
	"github.com/paperdesk/arxivd/internal/schedule"
)

const shutdownTimeout = 10 * time.Second

// newServeCmd creates the 'serve' subcommand, which stays resident with
// the daily scheduler and the review HTTP API.
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the daily scheduler and review API",
		Long: `Starts the resident daemon: a scheduler that triggers one ingestion
pass per weekday at the configured wall-clock time, plus an HTTP API for
browsing stored papers and tracking review state.`,

		RunE: runServeCommand,
	}
}

func runServeCommand(cmd *cobra.Command, _ []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	logger := appInstance.Logger()
	cfg := appInstance.Config()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hour, minute, err := cfg.Schedule.TriggerTime()
	if err != nil {
		return err
	}
	triggerLoc, gateLoc, err := cfg.Schedule.Locations()
	if err != nil {
		return err
	}

	sched := schedule.New(schedule.Config{
		Hour:            hour,
		Minute:          minute,
		TriggerLocation: triggerLoc,
		GateLocation:    gateLoc,
	}, appInstance.Runner().RunJob, system.New(), logger)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           api.NewServer(appInstance.Items(), logger).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	schedErr := make(chan error, 1)
	go func() {
		schedErr <- sched.Run(ctx)
	}()

	httpErr := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", srv.Addr))
		httpErr <- srv.ListenAndServe()
	}()

	var runErr error
	schedDone := false
	select {
	case <-ctx.Done():
	case err := <-httpErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			runErr = fmt.Errorf("http server: %w", err)
		}
	case err := <-schedErr:
		schedDone = true
		if err != nil && !errors.Is(err, context.Canceled) {
			runErr = fmt.Errorf("scheduler: %w", err)
		}
	}
	stop()

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	if !schedDone {
		if err := <-schedErr; err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("scheduler exit", zap.Error(err))
		}
	}
	return runErr
}
