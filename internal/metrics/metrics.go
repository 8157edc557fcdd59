// Package metrics exposes Prometheus collectors for the ledger service and
// the archive worker. Everything is registered on the default registry and
// served by promhttp from the HTTP server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EntriesCreated counts ledger writes by entry kind (grocery, deposit).
	EntriesCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cassa_ledger_entries_created_total",
		Help: "Ledger entries created, by kind.",
	}, []string{"kind"})

	// EntriesDeleted counts soft-deletions by entry kind.
	EntriesDeleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cassa_ledger_entries_deleted_total",
		Help: "Ledger entries soft-deleted, by kind.",
	}, []string{"kind"})

	// SummariesComputed counts balance summary computations (cache misses).
	SummariesComputed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cassa_balance_summaries_computed_total",
		Help: "Balance reconciliation passes executed.",
	})

	// ArchiveSyncs counts worker sync attempts by result (ok, error).
	ArchiveSyncs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cassa_archive_syncs_total",
		Help: "Archive sync attempts, by result.",
	}, []string{"result"})

	// HTTPRequests counts served HTTP requests by method and status code.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cassa_http_requests_total",
		Help: "HTTP requests served, by method and status.",
	}, []string{"method", "status"})

	// HTTPDuration observes request latency per route.
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cassa_http_request_duration_seconds",
		Help:    "HTTP request latency, by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})

	// RateLimitHits counts requests rejected by the per-client rate limiter.
	RateLimitHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cassa_rate_limit_hits_total",
		Help: "Requests rejected by the rate limiter.",
	})
)
