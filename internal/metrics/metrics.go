// Package metrics declares the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "officine_http_requests_total",
			Help: "Total number of HTTP requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "officine_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// Realtime metrics
	HubConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "officine_realtime_connections",
			Help: "Number of connections currently joined to the hub",
		},
	)

	EventsPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "officine_realtime_events_published_total",
			Help: "Events published to the hub by event name",
		},
		[]string{"event"},
	)

	EventsDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "officine_realtime_events_dropped_total",
			Help: "Frames dropped because a connection buffer was full",
		},
	)

	// Business metrics
	StockConflicts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "officine_stock_conflicts_total",
			Help: "Stock decrements refused for insufficient stock, by operation",
		},
		[]string{"operation"},
	)

	PrescriptionTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "officine_prescription_transitions_total",
			Help: "Prescription status transitions by target status",
		},
		[]string{"status"},
	)

	JobsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "officine_jobs_processed_total",
			Help: "Async jobs processed by queue and result",
		},
		[]string{"queue", "result"},
	)
)

func init() {
	prometheus.MustRegister(HTTPRequestsTotal)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(HubConnections)
	prometheus.MustRegister(EventsPublished)
	prometheus.MustRegister(EventsDropped)
	prometheus.MustRegister(StockConflicts)
	prometheus.MustRegister(PrescriptionTransitions)
	prometheus.MustRegister(JobsProcessed)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
