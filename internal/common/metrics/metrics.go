package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_http_requests_total",
			Help: "Total number of HTTP requests by route and status",
		},
		[]string{"route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "api_http_request_duration_seconds",
			Help: "Duration of HTTP request handling in seconds",
		},
		[]string{"route"},
	)

	JobCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "job_status_cache_hits_total",
			Help: "Total number of job-status cache hits",
		},
	)

	JobCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "job_status_cache_misses_total",
			Help: "Total number of job-status cache misses",
		},
	)

	JobCacheEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "job_status_cache_evictions_total",
			Help: "Total number of job-status cache entries evicted by the capacity sweep",
		},
	)

	UpstreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backend_upstream_requests_total",
			Help: "Total number of requests forwarded to the analysis backend",
		},
		[]string{"operation", "status"},
	)

	WebhookEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_webhook_events_total",
			Help: "Total number of billing webhook events by type and outcome",
		},
		[]string{"event_type", "outcome"},
	)

	QuotaDenialsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quota_denials_total",
			Help: "Total number of analysis requests denied by quota",
		},
		[]string{"reason"},
	)
)
