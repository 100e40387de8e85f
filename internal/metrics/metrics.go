// Package metrics exposes Prometheus collectors for the enrichment pipeline
// and the query service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	enrichAttemptsTotal        *prometheus.CounterVec
	enrichAttemptDurationSecs  *prometheus.HistogramVec
	enrichRecordsTotal         *prometheus.CounterVec
	enrichActiveWorkers        prometheus.Gauge
	enrichRateLimitDelaySecs   *prometheus.HistogramVec
	checkpointSavesTotal       prometheus.Counter
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init registers the collectors. Safe to call more than once.
func Init() {
	once.Do(func() {
		enrichAttemptsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "enrich_attempts_total",
				Help: "Total adapter attempts, labeled by source and outcome.",
			},
			[]string{"source", "outcome"},
		)

		enrichAttemptDurationSecs = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "enrich_attempt_duration_seconds",
				Help:    "Histogram of adapter attempt latencies per source.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"source"},
		)

		enrichRecordsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "enrich_records_total",
				Help: "Total records committed, labeled by final status.",
			},
			[]string{"status"},
		)

		enrichActiveWorkers = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "enrich_active_workers",
				Help: "Number of workers currently walking a fallback chain.",
			},
		)

		enrichRateLimitDelaySecs = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "enrich_rate_limit_delay_seconds",
				Help:    "Histogram of rate limit wait durations per source.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
			},
			[]string{"source"},
		)

		checkpointSavesTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "checkpoint_saves_total",
				Help: "Total checkpoint snapshots written.",
			},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveAttempt counts one adapter attempt and records its latency.
func ObserveAttempt(source, outcome string, duration time.Duration) {
	enrichAttemptsTotal.WithLabelValues(source, outcome).Inc()
	enrichAttemptDurationSecs.WithLabelValues(source).Observe(duration.Seconds())
}

// ObserveRecord counts one committed record.
func ObserveRecord(status string) {
	enrichRecordsTotal.WithLabelValues(status).Inc()
}

// IncActiveWorkers increments the active workers gauge.
func IncActiveWorkers() {
	enrichActiveWorkers.Inc()
}

// DecActiveWorkers decrements the active workers gauge.
func DecActiveWorkers() {
	enrichActiveWorkers.Dec()
}

// ObserveRateLimitDelay records the duration of a rate limit wait.
func ObserveRateLimitDelay(source string, duration time.Duration) {
	enrichRateLimitDelaySecs.WithLabelValues(source).Observe(duration.Seconds())
}

// ObserveCheckpoint counts one snapshot write.
func ObserveCheckpoint() {
	checkpointSavesTotal.Inc()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
