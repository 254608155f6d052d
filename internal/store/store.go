package store

import (
	"context"
	"fmt"

	"github.com/paperdesk/arxivd/internal/feed"
)

// StateFilter selects records by review state.
type StateFilter string

// Filter states understood by the store. StateRead matches any record
// with a review state set, starred included, matching the browsing
// semantics of "already read".
const (
	StateAll    StateFilter = "all"
	StateUnread StateFilter = "unread"
	StateRead   StateFilter = "read"
	StateStar   StateFilter = "star"
)

// ParseStateFilter maps a query-string value onto a StateFilter. An
// empty value defaults to unread, the browsing surface's default view.
func ParseStateFilter(s string) (StateFilter, error) {
	switch StateFilter(s) {
	case "":
		return StateUnread, nil
	case StateAll, StateUnread, StateRead, StateStar:
		return StateFilter(s), nil
	default:
		return "", fmt.Errorf("unknown state filter %q", s)
	}
}

// Filter narrows queries by review state, category tag, and bucket
// date. Zero values mean "no restriction" except State, whose zero
// value is StateAll only when set explicitly.
type Filter struct {
	State      StateFilter
	Tag        string
	BucketDate string
}

// ItemStore persists canonical records keyed by id.
//
// InsertIfAbsent must be a single atomic conditional insert: if a
// record with the same id already exists it is left completely
// unmodified, review state included. It must never be implemented as
// read-then-write.
type ItemStore interface {
	InsertIfAbsent(ctx context.Context, rec feed.Record) (inserted bool, err error)
	SetReviewState(ctx context.Context, id string, state feed.ReviewState) (acknowledged bool, err error)
	CountByFilter(ctx context.Context, f Filter) (int64, error)
	DistinctBucketDates(ctx context.Context, f Filter) ([]string, error)
	FindPage(ctx context.Context, bucketDate string, f Filter, skip, limit int) ([]feed.Record, error)
}
