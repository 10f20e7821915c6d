package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "api_http_requests_total", Help: "HTTP requests"},
		[]string{"method", "path", "status"},
	)
	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	DispatchRecipientsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "dispatch_recipients_total", Help: "Recipients processed per channel and outcome"},
		[]string{"channel", "status"},
	)
	ProviderRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "provider_requests_total", Help: "Outbound provider calls"},
		[]string{"provider", "outcome"},
	)
	ProviderRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "provider_request_duration_seconds",
			Help:    "Outbound provider call duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)
	ProviderRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "provider_retries_total", Help: "Retries performed against providers"},
	)
)

func init() {
	prometheus.MustRegister(
		APIRequestsTotal, APIRequestDuration,
		DispatchRecipientsTotal, ProviderRequestsTotal, ProviderRequestDuration, ProviderRetriesTotal,
	)
}

func Handler() http.Handler { return promhttp.Handler() }
