// Package metrics provides Prometheus metrics for the Incubator import MCP
// server. It tracks tool calls, MediaWiki API traffic, catalog cache
// performance and per-page import outcomes.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace for all metrics
const (
	Namespace = "incubator_import"
)

var (
	// RequestsTotal counts total MCP tool calls by tool name and status
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "requests_total",
		Help:      "Total number of MCP tool calls",
	}, []string{"tool", "status"})

	// RequestDuration measures request latency distribution
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "request_duration_seconds",
		Help:      "Request latency distribution by tool",
		Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"tool"})

	// RequestInFlight tracks currently executing requests
	RequestInFlight = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "requests_in_flight",
		Help:      "Number of requests currently being processed",
	}, []string{"tool"})

	// PanicsRecovered counts recovered panics
	PanicsRecovered = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "panics_recovered_total",
		Help:      "Number of panics recovered in tool handlers",
	}, []string{"tool"})

	// WikiAPIRequestsTotal counts MediaWiki API requests by host and action
	WikiAPIRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "wiki_api_requests_total",
		Help:      "Total MediaWiki API requests by host, action and status",
	}, []string{"host", "action", "status"})

	// WikiAPILatency measures MediaWiki API call latency
	WikiAPILatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "wiki_api_latency_seconds",
		Help:      "MediaWiki API call latency by host and action",
		Buckets:   prometheus.DefBuckets,
	}, []string{"host", "action"})

	// WikiAPIErrors counts MediaWiki API errors by error code
	WikiAPIErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "wiki_api_errors_total",
		Help:      "MediaWiki API errors by action and error code",
	}, []string{"action", "error_code"})

	// WikiAPIRetries counts destination request retries
	WikiAPIRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "wiki_api_retries_total",
		Help:      "Destination API retry count by action",
	}, []string{"action"})

	// CacheHits counts namespace catalog cache hits
	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "cache_hits_total",
		Help:      "Total catalog cache hit count",
	})

	// CacheMisses counts namespace catalog cache misses
	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "cache_misses_total",
		Help:      "Total catalog cache miss count",
	})

	// CacheSize tracks current catalog cache entry count
	CacheSize = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "cache_entries",
		Help:      "Current number of catalog cache entries",
	})

	// ImportRunsTotal counts whole-wiki import runs by outcome
	ImportRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "import_runs_total",
		Help:      "Whole-wiki import runs by outcome",
	}, []string{"status"})

	// PagesImportedTotal counts per-page import attempts by wiki and outcome
	PagesImportedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "pages_imported_total",
		Help:      "Page import attempts by destination wiki and outcome",
	}, []string{"wiki", "status"})

	// PagesSkippedTotal counts pages skipped because they already exist
	PagesSkippedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "pages_skipped_total",
		Help:      "Pages skipped because the destination already has them",
	}, []string{"wiki"})

	// AccountPrecreationsTotal counts contributor account pre-creations
	AccountPrecreationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "account_precreations_total",
		Help:      "Contributor account pre-creation attempts by outcome",
	}, []string{"status"})

	// ImportXMLSize tracks the size of uploaded history exports
	ImportXMLSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "import_xml_size_bytes",
		Help:      "Size distribution of uploaded XML history exports",
		Buckets:   []float64{1000, 10000, 50000, 100000, 250000, 500000, 1000000, 5000000},
	})
)

// RecordRequest records a completed tool call with its duration and status
func RecordRequest(tool string, duration float64, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	RequestsTotal.WithLabelValues(tool, status).Inc()
	RequestDuration.WithLabelValues(tool).Observe(duration)
}

// RecordAPICall records one MediaWiki API request
func RecordAPICall(host, action string, duration float64, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	WikiAPIRequestsTotal.WithLabelValues(host, action, status).Inc()
	WikiAPILatency.WithLabelValues(host, action).Observe(duration)
}

// RecordCacheAccess records a catalog cache hit or miss
func RecordCacheAccess(hit bool) {
	if hit {
		CacheHits.Inc()
	} else {
		CacheMisses.Inc()
	}
}

// SetCacheSize updates the current catalog cache size gauge
func SetCacheSize(size int64) {
	CacheSize.Set(float64(size))
}
