// Package metrics provides Prometheus metrics collection for the registry.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Request metrics
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "registry_requests_total",
			Help: "Total number of requests by endpoint and status",
		},
		[]string{"endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "registry_request_duration_seconds",
			Help:    "Request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "status"},
	)

	// Version resolution metrics
	ResolveTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "registry_resolve_total",
			Help: "Total number of version resolutions by outcome (hit, miss, invalid)",
		},
		[]string{"outcome"},
	)

	// Archive metrics
	ArchiveBytesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "registry_archive_bytes_total",
			Help: "Total archive bytes served",
		},
	)

	// Active requests
	ActiveRequests = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "registry_active_requests",
			Help: "Number of currently active requests",
		},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		ResolveTotal,
		ArchiveBytesTotal,
		ActiveRequests,
	)
}

// Handler returns an HTTP handler for the Prometheus /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordRequest tracks request metrics with timing.
func RecordRequest(endpoint string, status int, duration time.Duration) {
	statusStr := strconv.Itoa(status)
	RequestsTotal.WithLabelValues(endpoint, statusStr).Inc()
	RequestDuration.WithLabelValues(endpoint, statusStr).Observe(duration.Seconds())
}

// RecordResolve tracks a version resolution outcome.
func RecordResolve(outcome string) {
	ResolveTotal.WithLabelValues(outcome).Inc()
}

// RecordArchiveBytes adds served archive bytes to the running total.
func RecordArchiveBytes(n int64) {
	if n > 0 {
		ArchiveBytesTotal.Add(float64(n))
	}
}

// IncrementActiveRequests increments the active request counter.
func IncrementActiveRequests() {
	ActiveRequests.Inc()
}

// DecrementActiveRequests decrements the active request counter.
func DecrementActiveRequests() {
	ActiveRequests.Dec()
}
