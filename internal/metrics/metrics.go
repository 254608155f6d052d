// Package metrics exposes Prometheus collectors for the ingestion service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RunsTotal counts completed ingestion runs, labeled by outcome.
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arxivd_runs_total",
			Help: "Total number of ingestion runs, labeled by outcome.",
		},
		[]string{"outcome"},
	)

	// RecordsInserted counts records newly persisted by the writer.
	RecordsInserted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "arxivd_records_inserted_total",
			Help: "Total number of records inserted into the store.",
		},
	)

	// DuplicatesSkipped counts conditional inserts that found an
	// existing record and left it untouched.
	DuplicatesSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "arxivd_duplicates_skipped_total",
			Help: "Total number of records skipped because they already existed.",
		},
	)

	// EntriesDropped counts entries dropped for per-entry malformation.
	EntriesDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "arxivd_entries_dropped_total",
			Help: "Total number of feed entries dropped during normalization.",
		},
	)

	// WritesFailed counts per-record store failures.
	WritesFailed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "arxivd_writes_failed_total",
			Help: "Total number of record writes that failed.",
		},
	)

	// SourcesFailed counts sources skipped after retry exhaustion.
	SourcesFailed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "arxivd_sources_failed_total",
			Help: "Total number of feed sources skipped after exhausting retries.",
		},
	)

	// FetchRetries counts individual failed fetch attempts that were retried.
	FetchRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "arxivd_fetch_retries_total",
			Help: "Total number of feed fetch attempts that were retried.",
		},
	)

	// RunDurationSeconds observes wall-clock duration of ingestion runs.
	RunDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "arxivd_run_duration_seconds",
			Help:    "Histogram of ingestion run durations.",
			Buckets: []float64{1, 5, 15, 60, 300, 900, 3600},
		},
	)

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arxivd_http_requests_total",
			Help: "Total number of HTTP requests, labeled by method and code.",
		},
		[]string{"method", "code"},
	)

	httpRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "arxivd_http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, labeled by method and route.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"method", "route"},
	)
)

// Handler serves the default Prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
