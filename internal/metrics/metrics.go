// Package metrics registers the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequests counts handled requests by route pattern, method and status.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vidtube",
		Name:      "http_requests_total",
		Help:      "HTTP requests handled, by route, method and status code.",
	}, []string{"route", "method", "status"})

	// HTTPDuration observes request latency by route pattern and method.
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "vidtube",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method"})

	// AuthOutcomes counts authentication flow results (login, refresh, logout, password).
	AuthOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vidtube",
		Name:      "auth_outcomes_total",
		Help:      "Authentication flow outcomes.",
	}, []string{"flow", "outcome"})

	// MediaOperations counts media store calls by operation and result.
	MediaOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vidtube",
		Name:      "media_operations_total",
		Help:      "Media store operations by kind and result.",
	}, []string{"operation", "kind", "result"})

	// RateLimited counts requests rejected by the per-client limiter, by scope.
	RateLimited = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vidtube",
		Name:      "rate_limited_total",
		Help:      "Requests rejected by the rate limiter.",
	}, []string{"scope"})

	// MediaReaperQueue reports pending media deletions.
	MediaReaperQueue = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "vidtube",
		Name:      "media_reaper_pending",
		Help:      "Media deletions waiting in the reaper queue.",
	})
)

// RecordAuth increments the outcome counter for an authentication flow.
func RecordAuth(flow, outcome string) {
	AuthOutcomes.WithLabelValues(flow, outcome).Inc()
}
