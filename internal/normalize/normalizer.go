// Package normalize transforms raw feed entries into canonical records.
package normalize

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/paperdesk/arxivd/internal/feed"
)

const (
	idNamespace  = "arXiv.org:"
	statusPrefix = "Announce Type: "
)

// Entry builds the canonical record for one raw feed entry. The
// feed-level updated time drives both Date and BucketDate so the two
// cannot diverge. Any per-entry malformation (no author metadata) is
// returned as an error for the caller to log and drop; the rest of the
// batch is unaffected.
func Entry(item *gofeed.Item, updated time.Time) (feed.Record, error) {
	if item == nil {
		return feed.Record{}, fmt.Errorf("nil entry")
	}
	authors, err := authorNames(item)
	if err != nil {
		return feed.Record{}, err
	}
	header, abstract := splitSummary(item.Description)
	return feed.Record{
		ID:            CanonicalID(entryID(item)),
		Title:         CleanMarkup(item.Title),
		Authors:       CleanMarkup(authors),
		Abstract:      abstract,
		Link:          item.Link,
		Status:        announceStatus(header),
		Tags:          flattenTags(item.Categories),
		Date:          updated,
		BucketDate:    updated.Format(feed.BucketDateLayout),
		ParserVersion: feed.ParserVersion,
		ReviewState:   feed.ReviewUnread,
	}, nil
}

// CanonicalID strips the OAI namespace (and anything before it) from a
// raw entry identifier and re-prefixes it with the arXiv tag:
// "oai:arXiv.org:2401.00001" becomes "arXiv:2401.00001". Identifiers
// without the namespace are tagged as-is.
func CanonicalID(raw string) string {
	if i := strings.LastIndex(raw, idNamespace); i >= 0 {
		raw = raw[i+len(idNamespace):]
	}
	return feed.IDPrefix + raw
}

// CleanMarkup strips markup and unescapes entities, leaving plain text.
func CleanMarkup(s string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return html.UnescapeString(s)
	}
	return html.UnescapeString(doc.Text())
}

// splitSummary cuts the entry summary on the first line break: the
// first line is the status header, the remainder the abstract body. A
// summary without a line break is all header and an empty abstract,
// which is accepted, not an error.
func splitSummary(summary string) (header, abstract string) {
	header, abstract, _ = strings.Cut(summary, "\n")
	return header, abstract
}

func announceStatus(header string) string {
	parts := strings.Split(header, statusPrefix)
	return strings.TrimSpace(parts[len(parts)-1])
}

func flattenTags(categories []string) map[string]bool {
	tags := make(map[string]bool, len(categories))
	for _, c := range categories {
		if c = strings.TrimSpace(c); c != "" {
			tags[c] = true
		}
	}
	return tags
}

func entryID(item *gofeed.Item) string {
	if item.GUID != "" {
		return item.GUID
	}
	return item.Link
}

func authorNames(item *gofeed.Item) (string, error) {
	names := make([]string, 0, len(item.Authors))
	for _, a := range item.Authors {
		if a != nil && a.Name != "" {
			names = append(names, a.Name)
		}
	}
	if len(names) == 0 {
		return "", fmt.Errorf("entry %q has no author metadata", entryID(item))
	}
	return strings.Join(names, ", "), nil
}
