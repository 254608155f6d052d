// Package feed defines the core types shared across subsystems.
package feed

import "time"

// ReviewState tracks whether a paper has been reviewed by the user.
// The zero value means unread. The ingestion pipeline never sets a
// non-zero state; only the browsing surface does.
type ReviewState string

// Review state values persisted in the item store.
const (
	ReviewUnread ReviewState = ""
	ReviewRead   ReviewState = "read"
	ReviewStar   ReviewState = "star"
)

// ParserVersion is stamped onto every record the normalizer produces.
const ParserVersion = "2.1"

// IDPrefix is the tag prepended to raw arXiv identifiers to form the
// canonical record id, e.g. "2401.00001" becomes "arXiv:2401.00001".
const IDPrefix = "arXiv:"

// BucketDateLayout is the date-only format used to group records for
// browsing.
const BucketDateLayout = "2006-01-02"

// Record is the canonical persisted shape of one feed entry.
//
// BucketDate is always derived from the same value as Date; the two
// must never diverge for a given record.
type Record struct {
	ID            string          `json:"id"`
	Title         string          `json:"title"`
	Authors       string          `json:"authors"`
	Abstract      string          `json:"abstract"`
	Link          string          `json:"link"`
	Status        string          `json:"status"`
	Tags          map[string]bool `json:"tags"`
	Date          time.Time       `json:"date"`
	BucketDate    string          `json:"bucket_date"`
	ParserVersion string          `json:"parser_version"`
	ReviewState   ReviewState     `json:"review_state,omitempty"`
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}
