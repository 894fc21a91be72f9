package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides the prometheus surface for a batch of process() calls:
// how many templates and parameter files were expanded, how long
// expansion and plugin loading took, and how errors broke down by kind.
type Metrics struct {
	config MetricsConfig

	templatesLoaded   *prometheus.CounterVec
	pluginLoadSeconds *prometheus.HistogramVec

	recipesExpanded  *prometheus.CounterVec
	expansionSeconds *prometheus.HistogramVec
	errorsByKind     *prometheus.CounterVec

	batchesInFlight prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates a metrics collector registered under cfg's
// namespace/subsystem.
func NewMetrics(cfg MetricsConfig) *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		templatesLoaded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "templates_loaded_total",
				Help:      "Total number of templates whose transformer was loaded.",
			},
			[]string{"template"},
		),
		pluginLoadSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "plugin_load_seconds",
				Help:      "Time spent loading and initializing a transformer plugin scope.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"template"},
		),
		recipesExpanded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "recipes_expanded_total",
				Help:      "Total number of parameter files successfully expanded into recipes.",
			},
			[]string{"template"},
		),
		expansionSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "expansion_seconds",
				Help:      "Time spent expanding a single parameter file: merge/validate, transform, and persist.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"template"},
		),
		errorsByKind: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "errors_total",
				Help:      "Total number of fatal errors by kind.",
			},
			[]string{"kind"},
		),
		batchesInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "batches_in_flight",
				Help:      "Number of process() calls currently running (0 or 1, by design).",
			},
		),
	}

	registry.MustRegister(
		m.templatesLoaded,
		m.pluginLoadSeconds,
		m.recipesExpanded,
		m.expansionSeconds,
		m.errorsByKind,
		m.batchesInFlight,
	)

	return m
}

func (m *Metrics) RecordTemplateLoaded(template string, duration time.Duration) {
	m.templatesLoaded.WithLabelValues(template).Inc()
	m.pluginLoadSeconds.WithLabelValues(template).Observe(duration.Seconds())
}

func (m *Metrics) RecordRecipeExpanded(template string, duration time.Duration) {
	m.recipesExpanded.WithLabelValues(template).Inc()
	m.expansionSeconds.WithLabelValues(template).Observe(duration.Seconds())
}

func (m *Metrics) RecordError(kind string) {
	m.errorsByKind.WithLabelValues(kind).Inc()
}

func (m *Metrics) BatchStarted() { m.batchesInFlight.Inc() }
func (m *Metrics) BatchFinished() { m.batchesInFlight.Dec() }

// Timer measures elapsed wall time for a single operation.
type Timer struct {
	start time.Time
}

func NewTimer() *Timer { return &Timer{start: time.Now()} }

func (t *Timer) Elapsed() time.Duration { return time.Since(t.start) }

// Handler returns an HTTP handler exposing the registry in the prometheus
// text exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
