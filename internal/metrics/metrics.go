// Package metrics registers the Prometheus counters, gauges, and
// histograms the pipeline and its cross-cutting gates update. Scraping
// itself (the /metrics HTTP endpoint) is wired by internal/server; this
// package only owns the registrations.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal counts total processed requests
	RequestsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "llm_proxy_requests_total",
		Help: "Total number of requests processed by the proxy",
	})

	// PIIDetectedTotal counts detected PII spans by detector and entity type
	PIIDetectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "llm_proxy_pii_detected_total",
		Help: "Total number of PII spans detected",
	}, []string{"detector", "entity_type"})

	// PlaceholdersAssignedTotal counts placeholders minted during anonymization
	PlaceholdersAssignedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "llm_proxy_placeholders_assigned_total",
		Help: "Total number of placeholders assigned while anonymizing requests",
	})

	// PlaceholdersRestoredTotal counts restored placeholders in responses
	PlaceholdersRestoredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "llm_proxy_placeholders_restored_total",
		Help: "Total number of placeholders restored to original values in responses",
	})

	// PlaceholdersUnresolvedTotal counts placeholders a mapping had no entry for at restore time
	PlaceholdersUnresolvedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "llm_proxy_placeholders_unresolved_total",
		Help: "Total number of placeholders left un-restored, typically due to TTL expiry",
	})

	// FuzzyRestoredTotal counts restorations that matched a fuzzy, non-exact placeholder variant
	FuzzyRestoredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "llm_proxy_fuzzy_restored_total",
		Help: "Total number of placeholder restorations that matched a fuzzy variant form",
	})

	// MappingStoreSize tracks the size of the mapping store
	MappingStoreSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "llm_proxy_mapping_store_size",
		Help: "Current number of mapping records stored",
	})

	// RequestDuration tracks request processing latency
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "llm_proxy_request_duration_seconds",
		Help:    "Request processing duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"direction"}) // "request" or "response"

	// StreamingChunksProcessed counts processed streaming chunks
	StreamingChunksProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "llm_proxy_streaming_chunks_processed_total",
		Help: "Total number of streaming chunks processed",
	})

	// CacheHitsTotal / CacheMissesTotal track the response cache's gate
	CacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "llm_proxy_cache_hits_total",
		Help: "Total number of response cache hits",
	})
	CacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "llm_proxy_cache_misses_total",
		Help: "Total number of response cache misses",
	})

	// SecretScanBlockedTotal counts requests refused by the secret scanner
	SecretScanBlockedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "llm_proxy_secret_scan_blocked_total",
		Help: "Total number of requests blocked by the secret scanner",
	})

	// QuotaExceededTotal counts requests rejected for exceeding a tenant's quota
	QuotaExceededTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "llm_proxy_quota_exceeded_total",
		Help: "Total number of requests rejected for exceeding a tenant's quota",
	}, []string{"tenant_id"})
)

// RecordPIIDetected records a detected PII span
func RecordPIIDetected(detector, entityType string) {
	PIIDetectedTotal.WithLabelValues(detector, entityType).Inc()
}

// RecordRequestDuration records request processing duration
func RecordRequestDuration(direction string, seconds float64) {
	RequestDuration.WithLabelValues(direction).Observe(seconds)
}

// RecordQuotaExceeded records a quota rejection for tenantID
func RecordQuotaExceeded(tenantID string) {
	QuotaExceededTotal.WithLabelValues(tenantID).Inc()
}
