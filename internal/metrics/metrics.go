// Package metrics exposes the prometheus collectors shared across services.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RowsUpserted counts daily metric rows written by the loader, by metric.
	RowsUpserted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storepulse_etl_rows_upserted_total",
		Help: "Daily metric rows written by the loader.",
	}, []string{"metric"})

	// ImportFiles counts processed uploads by result.
	ImportFiles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storepulse_etl_files_total",
		Help: "Uploaded files processed by the ETL pipeline.",
	}, []string{"result"}) // result: ok|failed

	// ImportWarnings counts recovered row-level input problems.
	ImportWarnings = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storepulse_etl_row_warnings_total",
		Help: "Rows skipped with a warning during extraction.",
	})

	// NarrativeLatency tracks the hosted-model call duration.
	NarrativeLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "storepulse_narrative_request_seconds",
		Help:    "Latency of narrative completion requests.",
		Buckets: prometheus.DefBuckets,
	})

	// NarrativeFailures counts degraded narrative panels.
	NarrativeFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storepulse_narrative_failures_total",
		Help: "Narrative requests that degraded to the fallback message.",
	})
)
