// Package metrics provides Prometheus metrics for the score service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Manager holds all Prometheus metrics for the service.
type Manager struct {
	namespace string
	registry  prometheus.Registerer

	// Submission pipeline
	submissionsAccepted prometheus.Counter
	submissionsRejected *prometheus.CounterVec
	poolEvictions       prometheus.Counter
	poolPromotions      prometheus.Counter

	// Population
	trackedPlayers prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // singleton registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(customRegistry)
}

// NewManager creates and registers all metrics on the given registry.
func NewManager(registry prometheus.Registerer) *Manager {
	m := &Manager{
		namespace: "zircon",
		registry:  registry,
	}

	m.submissionsAccepted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "score",
		Name:      "submissions_accepted_total",
		Help:      "Score submissions fully processed and committed.",
	})
	m.submissionsRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "score",
		Name:      "submissions_rejected_total",
		Help:      "Score submissions rejected, by reason.",
	}, []string{"reason"})
	m.poolEvictions = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "score",
		Name:      "pool_evictions_total",
		Help:      "Tracked-play pool rows replaced by newer plays.",
	})
	m.poolPromotions = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "score",
		Name:      "pool_promotions_total",
		Help:      "Normal pool entries promoted into the recent set.",
	})
	m.trackedPlayers = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "score",
		Name:      "tracked_players",
		Help:      "Players with stored score data.",
	})
	m.httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests, by endpoint, method and status.",
	}, []string{"endpoint", "method", "status"})
	m.httpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "request_duration_ms",
		Help:      "HTTP request duration in milliseconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"endpoint", "method", "status"})

	m.registry.MustRegister(
		m.submissionsAccepted,
		m.submissionsRejected,
		m.poolEvictions,
		m.poolPromotions,
		m.trackedPlayers,
		m.httpRequests,
		m.httpRequestDuration,
	)
	return m
}

// RecordSubmissionAccepted counts a committed submission.
func RecordSubmissionAccepted() {
	globalManager.submissionsAccepted.Inc()
}

// RecordSubmissionRejected counts a rejected submission.
func RecordSubmissionRejected(reason string) {
	globalManager.submissionsRejected.WithLabelValues(reason).Inc()
}

// RecordPoolEviction counts a pool row replacement.
func RecordPoolEviction() {
	globalManager.poolEvictions.Inc()
}

// RecordPoolPromotion counts a normal-to-recent promotion.
func RecordPoolPromotion() {
	globalManager.poolPromotions.Inc()
}

// UpdateTrackedPlayers sets the player population gauge.
func UpdateTrackedPlayers(count int) {
	globalManager.trackedPlayers.Set(float64(count))
}

// RecordHTTPRequest counts an HTTP request.
func RecordHTTPRequest(endpoint, method, status string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, status).Inc()
}

// RecordHTTPRequestDuration observes an HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, status string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, status).Observe(durationMs)
}

// GetRegistry returns the registry backing the global manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
