// Package ingest implements the fetch, normalize, write pipeline for one run.
package ingest

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/paperdesk/arxivd/internal/feed"
	"github.com/paperdesk/arxivd/internal/id/uuid"
	"github.com/paperdesk/arxivd/internal/metrics"
	"github.com/paperdesk/arxivd/internal/normalize"
	"github.com/paperdesk/arxivd/internal/store"
)

// Counters aggregates per-run outcomes.
type Counters struct {
	Inserted       int
	Duplicates     int
	EntriesDropped int
	WritesFailed   int
	SourcesFailed  int
}

// Runner executes one ingestion pass over all configured sources.
// Sources are processed one at a time; failures below the run level
// are logged and isolated at their own granularity.
type Runner struct {
	sources []string
	fetcher feed.Fetcher
	items   store.ItemStore
	clock   feed.Clock
	ids     *uuid.Generator
	logger  *zap.Logger
}

// New constructs a Runner.
func New(sources []string, fetcher feed.Fetcher, items store.ItemStore, clock feed.Clock, logger *zap.Logger) *Runner {
	return &Runner{
		sources: sources,
		fetcher: fetcher,
		items:   items,
		clock:   clock,
		ids:     uuid.NewGenerator(),
		logger:  logger,
	}
}

// Run fetches every configured source, normalizes its entries, and
// writes each record with an atomic conditional insert. Only context
// cancellation and missing collaborators surface as errors; everything
// else is logged and skipped at source, entry, or record granularity.
func (r *Runner) Run(ctx context.Context) (Counters, error) {
	var c Counters
	if r.fetcher == nil || r.items == nil {
		return c, errors.New("runner is not fully configured")
	}

	runID, err := r.ids.NewID()
	if err != nil {
		return c, err
	}
	log := r.logger.With(zap.String("run_id", runID))
	start := r.clock.Now()
	log.Info("ingestion run started", zap.Int("sources", len(r.sources)))

	for _, url := range r.sources {
		if err := ctx.Err(); err != nil {
			metrics.RunsTotal.WithLabelValues("canceled").Inc()
			return c, err
		}
		result, err := r.fetcher.Fetch(ctx, url)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				metrics.RunsTotal.WithLabelValues("canceled").Inc()
				return c, err
			}
			c.SourcesFailed++
			metrics.SourcesFailed.Inc()
			log.Error("source fetch failed, skipping for this run",
				zap.String("url", url), zap.Error(err))
			continue
		}
		r.writeEntries(ctx, log, url, result, &c)
	}

	elapsed := r.clock.Now().Sub(start)
	metrics.RunsTotal.WithLabelValues("completed").Inc()
	metrics.RunDurationSeconds.Observe(elapsed.Seconds())
	log.Info("ingestion run finished",
		zap.Int("inserted", c.Inserted),
		zap.Int("duplicates", c.Duplicates),
		zap.Int("entries_dropped", c.EntriesDropped),
		zap.Int("writes_failed", c.WritesFailed),
		zap.Int("sources_failed", c.SourcesFailed),
		zap.Duration("elapsed", elapsed),
	)
	return c, nil
}

func (r *Runner) writeEntries(ctx context.Context, log *zap.Logger, url string, result feed.FetchResult, c *Counters) {
	for _, entry := range result.Entries {
		rec, err := normalize.Entry(entry, result.Updated)
		if err != nil {
			c.EntriesDropped++
			metrics.EntriesDropped.Inc()
			log.Warn("entry dropped", zap.String("url", url), zap.Error(err))
			continue
		}
		inserted, err := r.items.InsertIfAbsent(ctx, rec)
		if err != nil {
			c.WritesFailed++
			metrics.WritesFailed.Inc()
			log.Error("record write failed", zap.String("id", rec.ID), zap.Error(err))
			continue
		}
		if inserted {
			c.Inserted++
			metrics.RecordsInserted.Inc()
		} else {
			c.Duplicates++
			metrics.DuplicatesSkipped.Inc()
		}
	}
}

// RunJob adapts Run to the scheduler's job signature.
func (r *Runner) RunJob(ctx context.Context) error {
	_, err := r.Run(ctx)
	return err
}
