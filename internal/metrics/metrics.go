// Package metrics exposes Prometheus collectors for scroll tracking.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JakeFAU/percent-page-viewed/internal/tracker"
)

var (
	scrollEventsTotal          prometheus.Counter
	throttledRunsTotal         prometheus.Counter
	attemptsTotal              *prometheus.CounterVec
	writesTotal                *prometheus.CounterVec
	recordedPercent            prometheus.Histogram
	lastRecordedPercent        prometheus.Gauge
	reportsTotal               prometheus.Counter
	scrollPacingDelaySeconds   *prometheus.HistogramVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		scrollEventsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "scrolltrack_scroll_events_total",
				Help: "Total number of scroll events delivered to trackers.",
			},
		)

		throttledRunsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "scrolltrack_throttled_runs_total",
				Help: "Total number of scroll handler runs after throttling.",
			},
		)

		attemptsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scrolltrack_attempts_total",
				Help: "Total number of delayed write attempts, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		writesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scrolltrack_writes_total",
				Help: "Total number of record writes, labeled by result.",
			},
			[]string{"result"},
		)

		recordedPercent = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "scrolltrack_recorded_percent",
				Help:    "Histogram of quantized percentages written to storage.",
				Buckets: prometheus.LinearBuckets(0, 25, 5),
			},
		)

		lastRecordedPercent = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "scrolltrack_last_recorded_percent",
				Help: "Most recent quantized percentage written to storage.",
			},
		)

		reportsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "scrolltrack_reports_total",
				Help: "Total number of previous-page records delivered to callbacks.",
			},
		)

		scrollPacingDelaySeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "scrolltrack_scroll_pacing_delay_seconds",
				Help:    "Histogram of waits imposed by scroll pacing, labeled by host.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"host"},
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
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Recorder feeds tracker activity into the package collectors.
type Recorder struct{}

var _ tracker.Observer = Recorder{}

// NewRecorder initializes the collectors and returns a Recorder.
func NewRecorder() Recorder {
	Init()
	return Recorder{}
}

// ObserveScroll counts a raw scroll event.
func (Recorder) ObserveScroll() {
	scrollEventsTotal.Inc()
}

// ObserveThrottled counts a scroll handler run that passed the throttle.
func (Recorder) ObserveThrottled() {
	throttledRunsTotal.Inc()
}

// ObserveAttempt counts a delayed write attempt.
func (Recorder) ObserveAttempt(outcome tracker.AttemptOutcome) {
	attemptsTotal.WithLabelValues(string(outcome)).Inc()
}

// ObserveWrite counts a record write and tracks the stored percentage.
func (Recorder) ObserveWrite(result tracker.WriteResult, percent int) {
	writesTotal.WithLabelValues(string(result)).Inc()
	if result == tracker.WriteSkipped {
		return
	}
	recordedPercent.Observe(float64(percent))
	lastRecordedPercent.Set(float64(percent))
}

// ObserveReport counts a previous-page record handed to a callback.
func ObserveReport() {
	reportsTotal.Inc()
}

// ObserveScrollPacingDelay records how long scroll pacing blocked.
func ObserveScrollPacingDelay(host string, d time.Duration) {
	scrollPacingDelaySeconds.WithLabelValues(host).Observe(d.Seconds())
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
