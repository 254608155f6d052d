// Package fetch retrieves feed sources over the network with bounded retry.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"

	"github.com/paperdesk/arxivd/internal/feed"
	"github.com/paperdesk/arxivd/internal/metrics"
)

// ErrEmptyFeed marks an attempt that parsed cleanly but carried no
// entries. Empty feeds are treated like network failures and retried.
var ErrEmptyFeed = errors.New("feed contains no entries")

type feedParser interface {
	ParseURLWithContext(url string, ctx context.Context) (*gofeed.Feed, error)
}

// Source fetches one RSS/Atom endpoint, retrying per policy. It holds
// no state between calls and persists nothing itself.
type Source struct {
	parser feedParser
	policy FixedDelayPolicy
	clock  feed.Clock
	logger *zap.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

// New constructs a Source backed by a gofeed parser.
func New(policy FixedDelayPolicy, clock feed.Clock, logger *zap.Logger) *Source {
	return &Source{
		parser: gofeed.NewParser(),
		policy: policy,
		clock:  clock,
		logger: logger,
		sleep:  sleepContext,
	}
}

// Fetch retrieves the current entry list and feed-level updated time
// for one source address. Attempts that error or return zero entries
// are retried up to the policy bound with a fixed pause in between;
// exhaustion returns the last error for the caller to log and skip.
func (s *Source) Fetch(ctx context.Context, url string) (feed.FetchResult, error) {
	var lastErr error
	for attempt := 1; ; attempt++ {
		parsed, err := s.attempt(ctx, url)
		if err == nil {
			return s.result(parsed), nil
		}
		lastErr = err
		s.logger.Warn("feed fetch attempt failed",
			zap.String("url", url),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", s.policy.MaxAttempts),
			zap.Error(err),
		)
		if !s.policy.ShouldRetry(attempt) {
			break
		}
		metrics.FetchRetries.Inc()
		if err := s.sleep(ctx, s.policy.Backoff(attempt)); err != nil {
			return feed.FetchResult{}, err
		}
	}
	return feed.FetchResult{}, fmt.Errorf(
		"fetch %s: %d attempts exhausted: %w", url, s.policy.MaxAttempts, lastErr)
}

func (s *Source) attempt(ctx context.Context, url string) (*gofeed.Feed, error) {
	parsed, err := s.parser.ParseURLWithContext(url, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	if len(parsed.Items) == 0 {
		return nil, ErrEmptyFeed
	}
	return parsed, nil
}

func (s *Source) result(parsed *gofeed.Feed) feed.FetchResult {
	updated := s.clock.Now()
	if parsed.UpdatedParsed != nil {
		updated = *parsed.UpdatedParsed
	}
	return feed.FetchResult{Entries: parsed.Items, Updated: updated}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
