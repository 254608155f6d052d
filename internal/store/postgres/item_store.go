// Package postgres provides the Postgres-backed item store.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/paperdesk/arxivd/internal/feed"
	"github.com/paperdesk/arxivd/internal/store"
)

// Config controls the Postgres connection pool.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// ItemStore implements store.ItemStore on a pgx pool. Records live in
// the papers table keyed by canonical id, with tags as a JSONB map so
// per-category filtering is a containment match rather than an array
// scan.
type ItemStore struct {
	pool pgxPool
}

// New creates a Postgres-backed ItemStore using the provided config.
func New(ctx context.Context, cfg Config) (*ItemStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &ItemStore{pool: pool}, nil
}

// NewWithPool constructs a store from an existing pool (primarily for testing).
func NewWithPool(pool pgxPool) (*ItemStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &ItemStore{pool: pool}, nil
}

// Close releases the underlying pool resources.
func (s *ItemStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS papers (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	authors TEXT NOT NULL,
	abstract TEXT NOT NULL,
	link TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT '',
	tags JSONB NOT NULL DEFAULT '{}',
	date TIMESTAMPTZ NOT NULL,
	bucket_date TEXT NOT NULL,
	parser_version TEXT NOT NULL,
	review_state TEXT
);
CREATE INDEX IF NOT EXISTS papers_bucket_date_idx ON papers (bucket_date);
CREATE INDEX IF NOT EXISTS papers_tags_idx ON papers USING GIN (tags)`

// EnsureSchema creates the papers table and its indexes if missing.
func (s *ItemStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// InsertIfAbsent persists the record only when no record with its id
// exists. The conflict clause makes this a single atomic operation;
// an existing record, its review state included, is never modified.
func (s *ItemStore) InsertIfAbsent(ctx context.Context, rec feed.Record) (bool, error) {
	if rec.ID == "" {
		return false, fmt.Errorf("record id is required")
	}
	tags := rec.Tags
	if tags == nil {
		tags = map[string]bool{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return false, fmt.Errorf("marshal tags: %w", err)
	}
	query := `
INSERT INTO papers (
	id, title, authors, abstract, link, status, tags,
	date, bucket_date, parser_version, review_state
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,NULLIF($11,'')
)
ON CONFLICT (id) DO NOTHING`
	tag, err := s.pool.Exec(ctx, query,
		rec.ID,
		rec.Title,
		rec.Authors,
		rec.Abstract,
		rec.Link,
		rec.Status,
		tagsJSON,
		rec.Date,
		rec.BucketDate,
		rec.ParserVersion,
		string(rec.ReviewState),
	)
	if err != nil {
		return false, fmt.Errorf("insert paper: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// SetReviewState sets the review state of one record. Transitions are
// plain sets: starring overwrites read. The returned bool reports
// whether a record with the id existed.
func (s *ItemStore) SetReviewState(ctx context.Context, id string, state feed.ReviewState) (bool, error) {
	query := `UPDATE papers SET review_state = NULLIF($2,'') WHERE id = $1`
	tag, err := s.pool.Exec(ctx, query, id, string(state))
	if err != nil {
		return false, fmt.Errorf("set review state: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// CountByFilter returns the number of records matching the filter.
func (s *ItemStore) CountByFilter(ctx context.Context, f store.Filter) (int64, error) {
	where, args, err := filterSQL(f, nil)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM papers"+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count papers: %w", err)
	}
	return n, nil
}

// DistinctBucketDates returns the distinct bucket dates of records
// matching the filter, ascending. The filter's own BucketDate field is
// ignored here.
func (s *ItemStore) DistinctBucketDates(ctx context.Context, f store.Filter) ([]string, error) {
	f.BucketDate = ""
	where, args, err := filterSQL(f, nil)
	if err != nil {
		return nil, err
	}
	query := "SELECT DISTINCT bucket_date FROM papers" + where + " ORDER BY bucket_date ASC"
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("distinct bucket dates: %w", err)
	}
	defer rows.Close()

	var dates []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scan bucket date: %w", err)
		}
		dates = append(dates, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bucket dates: %w", err)
	}
	return dates, nil
}

// FindPage returns one page of records for a bucket date, ordered by
// id so pagination is stable.
func (s *ItemStore) FindPage(ctx context.Context, bucketDate string, f store.Filter, skip, limit int) ([]feed.Record, error) {
	f.BucketDate = bucketDate
	where, args, err := filterSQL(f, nil)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`
SELECT id, title, authors, abstract, link, status, tags,
	date, bucket_date, parser_version, COALESCE(review_state, '')
FROM papers%s
ORDER BY id ASC
LIMIT $%d OFFSET $%d`, where, len(args)+1, len(args)+2)
	args = append(args, limit, skip)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find page: %w", err)
	}
	defer rows.Close()

	var records []feed.Record
	for rows.Next() {
		var rec feed.Record
		var tagsJSON []byte
		var state string
		if err := rows.Scan(
			&rec.ID,
			&rec.Title,
			&rec.Authors,
			&rec.Abstract,
			&rec.Link,
			&rec.Status,
			&tagsJSON,
			&rec.Date,
			&rec.BucketDate,
			&rec.ParserVersion,
			&state,
		); err != nil {
			return nil, fmt.Errorf("scan paper: %w", err)
		}
		if len(tagsJSON) > 0 {
			if err := json.Unmarshal(tagsJSON, &rec.Tags); err != nil {
				return nil, fmt.Errorf("unmarshal tags for %s: %w", rec.ID, err)
			}
		}
		rec.ReviewState = feed.ReviewState(state)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate papers: %w", err)
	}
	return records, nil
}

// filterSQL renders the WHERE clause for a Filter, continuing the
// placeholder numbering from args.
func filterSQL(f store.Filter, args []any) (string, []any, error) {
	var clauses []string
	switch f.State {
	case "", store.StateAll:
		// no restriction
	case store.StateUnread:
		clauses = append(clauses, "review_state IS NULL")
	case store.StateRead:
		clauses = append(clauses, "review_state IS NOT NULL")
	case store.StateStar:
		args = append(args, string(feed.ReviewStar))
		clauses = append(clauses, fmt.Sprintf("review_state = $%d", len(args)))
	default:
		return "", nil, fmt.Errorf("unknown state filter %q", f.State)
	}
	if f.Tag != "" {
		tagJSON, err := json.Marshal(map[string]bool{f.Tag: true})
		if err != nil {
			return "", nil, fmt.Errorf("marshal tag filter: %w", err)
		}
		args = append(args, tagJSON)
		clauses = append(clauses, fmt.Sprintf("tags @> $%d", len(args)))
	}
	if f.BucketDate != "" {
		args = append(args, f.BucketDate)
		clauses = append(clauses, fmt.Sprintf("bucket_date = $%d", len(args)))
	}
	if len(clauses) == 0 {
		return "", args, nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args, nil
}
