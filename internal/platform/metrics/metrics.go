package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus collectors for the studio service.
type Metrics struct {
	registry              *prometheus.Registry
	requestsTotal         prometheus.Counter
	errorsTotal           prometheus.Counter
	segmentsRecordedTotal prometheus.Counter
	undoTotal             prometheus.Counter
	redoTotal             prometheus.Counter
	budgetRejectionsTotal prometheus.Counter
	deviceErrorsTotal     prometheus.Counter
	probeFailuresTotal    prometheus.Counter
	publishesTotal        prometheus.Counter
	activeSessions        prometheus.Gauge
	segmentDuration       prometheus.Histogram
}

// New creates and registers the studio metrics on a private registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		requestsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "studio_requests_total",
			Help: "Total number of HTTP requests received",
		}),
		errorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "studio_errors_total",
			Help: "Total number of HTTP responses with error status (4xx or 5xx)",
		}),
		segmentsRecordedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "studio_segments_recorded_total",
			Help: "Total number of segments finalized by capture sessions",
		}),
		undoTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "studio_undo_total",
			Help: "Total number of segments undone",
		}),
		redoTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "studio_redo_total",
			Help: "Total number of segments redone",
		}),
		budgetRejectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "studio_budget_rejections_total",
			Help: "Total number of recordings rejected because the duration budget was used up",
		}),
		deviceErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "studio_device_errors_total",
			Help: "Total number of camera acquisition or recording failures",
		}),
		probeFailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "studio_audio_probe_failures_total",
			Help: "Total number of audio layers rejected because their duration could not be probed",
		}),
		publishesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "studio_publishes_total",
			Help: "Total number of videos published",
		}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "studio_active_sessions",
			Help: "Number of open editor sessions",
		}),
		segmentDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "studio_segment_duration_seconds",
			Help:    "Duration of finalized segments",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		}),
	}

	registry.MustRegister(
		m.requestsTotal,
		m.errorsTotal,
		m.segmentsRecordedTotal,
		m.undoTotal,
		m.redoTotal,
		m.budgetRejectionsTotal,
		m.deviceErrorsTotal,
		m.probeFailuresTotal,
		m.publishesTotal,
		m.activeSessions,
		m.segmentDuration,
	)
	return m
}

// IncRequests increments the total request counter.
func (m *Metrics) IncRequests() {
	m.requestsTotal.Inc()
}

// IncErrors increments the errors counter.
func (m *Metrics) IncErrors() {
	m.errorsTotal.Inc()
}

// ObserveSegment counts a finalized segment and records its duration.
func (m *Metrics) ObserveSegment(seconds float64) {
	m.segmentsRecordedTotal.Inc()
	m.segmentDuration.Observe(seconds)
}

func (m *Metrics) IncUndo() {
	m.undoTotal.Inc()
}

func (m *Metrics) IncRedo() {
	m.redoTotal.Inc()
}

func (m *Metrics) IncBudgetRejections() {
	m.budgetRejectionsTotal.Inc()
}

func (m *Metrics) IncDeviceErrors() {
	m.deviceErrorsTotal.Inc()
}

func (m *Metrics) IncProbeFailures() {
	m.probeFailuresTotal.Inc()
}

func (m *Metrics) IncPublishes() {
	m.publishesTotal.Inc()
}

// SetActiveSessions sets the active sessions gauge.
func (m *Metrics) SetActiveSessions(n int) {
	m.activeSessions.Set(float64(n))
}

// Handler returns an http.Handler that serves Prometheus metrics.
// updateGauges is called before each scrape to refresh gauge values.
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}
