package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/paperdesk/arxivd/internal/feed"
	"github.com/paperdesk/arxivd/internal/store"
)

type fakeFetcher struct {
	results map[string]feed.FetchResult
	errs    map[string]error
	calls   []string
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (feed.FetchResult, error) {
	f.calls = append(f.calls, url)
	if err, ok := f.errs[url]; ok {
		return feed.FetchResult{}, err
	}
	return f.results[url], nil
}

type fakeStore struct {
	records map[string]feed.Record
	failIDs map[string]error
	writes  int
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: map[string]feed.Record{}, failIDs: map[string]error{}}
}

func (s *fakeStore) InsertIfAbsent(_ context.Context, rec feed.Record) (bool, error) {
	s.writes++
	if err, ok := s.failIDs[rec.ID]; ok {
		return false, err
	}
	if _, exists := s.records[rec.ID]; exists {
		return false, nil
	}
	s.records[rec.ID] = rec
	return true, nil
}

func (s *fakeStore) SetReviewState(_ context.Context, id string, state feed.ReviewState) (bool, error) {
	rec, ok := s.records[id]
	if !ok {
		return false, nil
	}
	rec.ReviewState = state
	s.records[id] = rec
	return true, nil
}

func (s *fakeStore) CountByFilter(context.Context, store.Filter) (int64, error) {
	return int64(len(s.records)), nil
}

func (s *fakeStore) DistinctBucketDates(context.Context, store.Filter) ([]string, error) {
	return nil, nil
}

func (s *fakeStore) FindPage(context.Context, string, store.Filter, int, int) ([]feed.Record, error) {
	return nil, nil
}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func entry(id, author string) *gofeed.Item {
	item := &gofeed.Item{
		GUID:        "oai:arXiv.org:" + id,
		Title:       "Paper " + id,
		Link:        "https://arxiv.org/abs/" + id,
		Description: "Announce Type: new\nAbstract for " + id,
		Categories:  []string{"cs.CL"},
	}
	if author != "" {
		item.Authors = []*gofeed.Person{{Name: author}}
	}
	return item
}

func TestRunPersistsAllEntries(t *testing.T) {
	t.Parallel()

	updated := time.Date(2024, 1, 2, 13, 10, 0, 0, time.UTC)
	fetcher := &fakeFetcher{results: map[string]feed.FetchResult{
		"https://rss.arxiv.org/rss/cs.CL": {
			Entries: []*gofeed.Item{entry("2401.00001", "Ada"), entry("2401.00002", "Alan")},
			Updated: updated,
		},
	}}
	items := newFakeStore()
	r := New([]string{"https://rss.arxiv.org/rss/cs.CL"}, fetcher, items, fixedClock{now: updated}, zap.NewNop())

	c, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, c.Inserted)
	require.Zero(t, c.Duplicates)
	require.Contains(t, items.records, "arXiv:2401.00001")
	require.Contains(t, items.records, "arXiv:2401.00002")
	require.Equal(t, "2024-01-02", items.records["arXiv:2401.00001"].BucketDate)
}

func TestRunIsIdempotent(t *testing.T) {
	t.Parallel()

	updated := time.Date(2024, 1, 2, 13, 10, 0, 0, time.UTC)
	fetcher := &fakeFetcher{results: map[string]feed.FetchResult{
		"https://rss.arxiv.org/rss/cs.CL": {
			Entries: []*gofeed.Item{entry("2401.00001", "Ada")},
			Updated: updated,
		},
	}}
	items := newFakeStore()
	r := New([]string{"https://rss.arxiv.org/rss/cs.CL"}, fetcher, items, fixedClock{now: updated}, zap.NewNop())

	_, err := r.Run(context.Background())
	require.NoError(t, err)

	// A manual review-state change must survive re-ingestion untouched.
	ok, err := items.SetReviewState(context.Background(), "arXiv:2401.00001", feed.ReviewStar)
	require.NoError(t, err)
	require.True(t, ok)
	before := items.records["arXiv:2401.00001"]

	c, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, c.Duplicates)
	require.Zero(t, c.Inserted)
	require.Equal(t, before, items.records["arXiv:2401.00001"])
}

func TestRunMalformedEntryIsIsolated(t *testing.T) {
	t.Parallel()

	entries := []*gofeed.Item{
		entry("2401.00001", "Ada"),
		entry("2401.00002", "Alan"),
		entry("2401.00003", ""), // no author metadata
		entry("2401.00004", "Grace"),
		entry("2401.00005", "Edsger"),
	}
	fetcher := &fakeFetcher{results: map[string]feed.FetchResult{
		"https://rss.arxiv.org/rss/cs.CL": {Entries: entries, Updated: time.Now()},
	}}
	items := newFakeStore()
	r := New([]string{"https://rss.arxiv.org/rss/cs.CL"}, fetcher, items, fixedClock{now: time.Now()}, zap.NewNop())

	c, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 4, c.Inserted)
	require.Equal(t, 1, c.EntriesDropped)
	require.Len(t, items.records, 4)
	require.NotContains(t, items.records, "arXiv:2401.00003")
}

func TestRunSourceFailureIsSoft(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{
		errs: map[string]error{
			"https://rss.arxiv.org/rss/cs.CL": errors.New("attempts exhausted"),
		},
		results: map[string]feed.FetchResult{
			"https://rss.arxiv.org/rss/cs.AI": {
				Entries: []*gofeed.Item{entry("2401.00009", "Barbara")},
				Updated: time.Now(),
			},
		},
	}
	items := newFakeStore()
	r := New(
		[]string{"https://rss.arxiv.org/rss/cs.CL", "https://rss.arxiv.org/rss/cs.AI"},
		fetcher, items, fixedClock{now: time.Now()}, zap.NewNop(),
	)

	c, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, c.SourcesFailed)
	require.Equal(t, 1, c.Inserted)
	require.Equal(t, []string{"https://rss.arxiv.org/rss/cs.CL", "https://rss.arxiv.org/rss/cs.AI"}, fetcher.calls)
}

func TestRunWriteFailureContinuesBatch(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{results: map[string]feed.FetchResult{
		"https://rss.arxiv.org/rss/cs.CL": {
			Entries: []*gofeed.Item{entry("2401.00001", "Ada"), entry("2401.00002", "Alan")},
			Updated: time.Now(),
		},
	}}
	items := newFakeStore()
	items.failIDs["arXiv:2401.00001"] = errors.New("store unavailable")
	r := New([]string{"https://rss.arxiv.org/rss/cs.CL"}, fetcher, items, fixedClock{now: time.Now()}, zap.NewNop())

	c, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, c.WritesFailed)
	require.Equal(t, 1, c.Inserted)
}

func TestRunCanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fetcher := &fakeFetcher{}
	r := New([]string{"https://rss.arxiv.org/rss/cs.CL"}, fetcher, newFakeStore(), fixedClock{now: time.Now()}, zap.NewNop())

	_, err := r.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.Empty(t, fetcher.calls)
}
