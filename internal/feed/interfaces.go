package feed

import (
	"context"
	"time"

	"github.com/mmcdole/gofeed"
)

// FetchResult carries the raw entries of one feed source plus the
// feed-level updated time.
type FetchResult struct {
	Entries []*gofeed.Item
	Updated time.Time
}

// Fetcher retrieves the current entry list for one feed source address.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (FetchResult, error)
}
