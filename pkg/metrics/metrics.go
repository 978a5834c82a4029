// Package metrics exposes the Prometheus instruments for the parsing
// pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OCRRequests counts calls made to the external OCR service, by outcome.
	OCRRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "statement_ocr_requests_total",
		Help: "OCR service calls by outcome (success, error).",
	}, []string{"outcome"})

	// CacheHits counts OCR results served from the on-disk cache.
	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "statement_ocr_cache_hits_total",
		Help: "OCR results served from the disk cache instead of the service.",
	})

	// StatementsProcessed counts completed parse runs, by detected bank.
	StatementsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "statement_parses_total",
		Help: "Completed statement parses by detected bank.",
	}, []string{"bank"})

	// ParseFailures counts uploads that ended in the failed status.
	ParseFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "statement_parse_failures_total",
		Help: "Statement uploads whose processing ended in failure.",
	})

	// ParseDuration observes end-to-end processing time per statement.
	ParseDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "statement_parse_duration_seconds",
		Help:    "End-to-end statement processing duration.",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
	})
)
