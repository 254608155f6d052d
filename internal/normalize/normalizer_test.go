package normalize

import (
	"testing"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/stretchr/testify/require"

	"github.com/paperdesk/arxivd/internal/feed"
)

func sampleItem() *gofeed.Item {
	return &gofeed.Item{
		GUID:        "oai:arXiv.org:2401.00001",
		Title:       "Attention <i>Is</i> All You Need &amp; Then Some",
		Link:        "https://arxiv.org/abs/2401.00001",
		Description: "Announce Type: new\nWe study attention.\nIt works.",
		Categories:  []string{"cs.CL", "cs.AI"},
		Authors: []*gofeed.Person{
			{Name: "Ada Lovelace"},
			{Name: "Alan Turing"},
		},
	}
}

func TestEntryCanonicalID(t *testing.T) {
	t.Parallel()

	updated := time.Date(2024, 1, 2, 13, 10, 0, 0, time.UTC)
	rec, err := Entry(sampleItem(), updated)
	require.NoError(t, err)
	require.Equal(t, "arXiv:2401.00001", rec.ID)
}

func TestCanonicalID(t *testing.T) {
	t.Parallel()

	require.Equal(t, "arXiv:2401.00001", CanonicalID("oai:arXiv.org:2401.00001"))
	require.Equal(t, "arXiv:2401.00001", CanonicalID("2401.00001"))
	require.Equal(t, "arXiv:hep-th/9901001", CanonicalID("oai:arXiv.org:hep-th/9901001"))
}

func TestEntryTagFlattening(t *testing.T) {
	t.Parallel()

	rec, err := Entry(sampleItem(), time.Now())
	require.NoError(t, err)
	require.Equal(t, map[string]bool{"cs.CL": true, "cs.AI": true}, rec.Tags)
}

func TestEntrySummarySplit(t *testing.T) {
	t.Parallel()

	rec, err := Entry(sampleItem(), time.Now())
	require.NoError(t, err)
	require.Equal(t, "new", rec.Status)
	require.Equal(t, "We study attention.\nIt works.", rec.Abstract)
}

func TestEntrySummaryWithoutLineBreak(t *testing.T) {
	t.Parallel()

	item := sampleItem()
	item.Description = "Announce Type: cross"
	rec, err := Entry(item, time.Now())
	require.NoError(t, err)
	require.Equal(t, "cross", rec.Status)
	require.Empty(t, rec.Abstract)
}

func TestEntryStripsMarkupAndEntities(t *testing.T) {
	t.Parallel()

	rec, err := Entry(sampleItem(), time.Now())
	require.NoError(t, err)
	require.Equal(t, "Attention Is All You Need & Then Some", rec.Title)
	require.Equal(t, "Ada Lovelace, Alan Turing", rec.Authors)
}

func TestEntryDateAndBucketAgree(t *testing.T) {
	t.Parallel()

	updated := time.Date(2024, 1, 2, 23, 59, 59, 0, time.UTC)
	rec, err := Entry(sampleItem(), updated)
	require.NoError(t, err)
	require.Equal(t, updated, rec.Date)
	require.Equal(t, "2024-01-02", rec.BucketDate)
	require.Equal(t, rec.Date.Format(feed.BucketDateLayout), rec.BucketDate)
}

func TestEntryStampsParserVersionAndUnreadState(t *testing.T) {
	t.Parallel()

	rec, err := Entry(sampleItem(), time.Now())
	require.NoError(t, err)
	require.Equal(t, feed.ParserVersion, rec.ParserVersion)
	require.Equal(t, feed.ReviewUnread, rec.ReviewState)
}

func TestEntryMissingAuthorIsError(t *testing.T) {
	t.Parallel()

	item := sampleItem()
	item.Authors = nil
	_, err := Entry(item, time.Now())
	require.Error(t, err)
	require.Contains(t, err.Error(), "no author metadata")
}
