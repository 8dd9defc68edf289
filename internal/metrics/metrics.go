// Package metrics exposes Prometheus collectors for the overview service.
package metrics

import (
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	sourceFetchesTotal   *prometheus.CounterVec
	fetchDurationSeconds *prometheus.HistogramVec
	framesWrittenTotal   prometheus.Counter
	cycleDurationSeconds prometheus.Histogram
	encodeRunsTotal      *prometheus.CounterVec
	nightsFinalizedTotal prometheus.Counter

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		sourceFetchesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "overview_source_fetches_total",
				Help: "Total number of source image fetches, labeled by source host and result.",
			},
			[]string{"source", "result"},
		)

		fetchDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "overview_fetch_duration_seconds",
				Help:    "Histogram of source fetch latencies, labeled by source host.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 15, 30},
			},
			[]string{"source"},
		)

		framesWrittenTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "overview_frames_written_total",
				Help: "Total number of overview frames written to disk.",
			},
		)

		cycleDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "overview_cycle_duration_seconds",
				Help:    "Histogram of full capture cycle durations.",
				Buckets: []float64{1, 2, 5, 10, 15, 30, 60},
			},
		)

		encodeRunsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "overview_encode_runs_total",
				Help: "Total number of video encoder invocations, labeled by outcome.",
			},
			[]string{"status"},
		)

		nightsFinalizedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "overview_nights_finalized_total",
				Help: "Total number of nights finalized with a video artifact.",
			},
		)
	})
}

// SanitizeSource reduces a source URL to a lowercase hostname label.
// It returns "unknown" if the URL is invalid.
func SanitizeSource(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveFetch records one source fetch outcome and its latency.
func ObserveFetch(source string, available bool, duration time.Duration) {
	label := SanitizeSource(source)
	result := "ok"
	if !available {
		result = "unavailable"
	}
	sourceFetchesTotal.WithLabelValues(label, result).Inc()
	fetchDurationSeconds.WithLabelValues(label).Observe(duration.Seconds())
}

// IncFrameWritten increments the frame counter.
func IncFrameWritten() {
	framesWrittenTotal.Inc()
}

// ObserveCycle records the duration of a full capture cycle.
func ObserveCycle(duration time.Duration) {
	cycleDurationSeconds.Observe(duration.Seconds())
}

// ObserveEncode increments the encoder run counter for the given outcome.
func ObserveEncode(status string) {
	encodeRunsTotal.WithLabelValues(status).Inc()
}

// IncNightFinalized increments the finalized night counter.
func IncNightFinalized() {
	nightsFinalizedTotal.Inc()
}
