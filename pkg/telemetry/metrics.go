package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides Prometheus metrics for the game runtime. A nil *Metrics
// and a disabled one both accept every call and record nothing.
type Metrics struct {
	config MetricsConfig

	// Lifecycle metrics
	phase       *prometheus.GaugeVec
	transitions *prometheus.CounterVec
	setupWait   prometheus.Histogram

	// Scheduler metrics
	ticks        prometheus.Counter
	pendingTasks prometheus.Gauge

	// Signal metrics
	signalsFired *prometheus.CounterVec

	// Pool metrics
	poolInstances *prometheus.GaugeVec

	// Error metrics
	errorsByClass *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector with the given configuration.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		phase: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "lifecycle_phase",
				Help:      "Current phase ordinal of each lifecycle controller",
			},
			[]string{"controller"},
		),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "lifecycle_transitions_total",
				Help:      "Total number of lifecycle phase transitions",
			},
			[]string{"controller", "from", "to"},
		),
		setupWait: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "app_setup_wait_ticks",
				Help:      "Ticks spent waiting for app systems to finish one-time setup",
				Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
			},
		),

		ticks: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "scheduler_ticks_total",
				Help:      "Total number of scheduler ticks",
			},
		),
		pendingTasks: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "scheduler_pending_tasks",
				Help:      "Number of tasks pending on the scheduler",
			},
		),

		signalsFired: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "signals_fired_total",
				Help:      "Total number of signals fired",
			},
			[]string{"signal"},
		),

		poolInstances: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "pool_instances",
				Help:      "Instances owned by a resource pool by state",
			},
			[]string{"pool", "state"},
		),

		errorsByClass: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_by_class_total",
				Help:      "Total number of errors by error class",
			},
			[]string{"class"},
		),
	}

	registry.MustRegister(
		m.phase,
		m.transitions,
		m.setupWait,
		m.ticks,
		m.pendingTasks,
		m.signalsFired,
		m.poolInstances,
		m.errorsByClass,
	)

	return m, nil
}

func (m *Metrics) enabled() bool {
	return m != nil && m.registry != nil
}

// Lifecycle Metrics

// RecordTransition records a phase change of a lifecycle controller.
func (m *Metrics) RecordTransition(controller, from, to string, ordinal int) {
	if !m.enabled() {
		return
	}
	m.transitions.WithLabelValues(controller, from, to).Inc()
	m.phase.WithLabelValues(controller).Set(float64(ordinal))
}

// ObserveSetupWait records how many ticks app setup waited for readiness.
func (m *Metrics) ObserveSetupWait(ticks uint64) {
	if !m.enabled() {
		return
	}
	m.setupWait.Observe(float64(ticks))
}

// Scheduler Metrics

// RecordTick records a completed scheduler tick and the tasks left pending.
func (m *Metrics) RecordTick(pending int) {
	if !m.enabled() {
		return
	}
	m.ticks.Inc()
	m.pendingTasks.Set(float64(pending))
}

// Signal Metrics

// RecordSignal records a fired signal.
func (m *Metrics) RecordSignal(signal string) {
	if !m.enabled() {
		return
	}
	m.signalsFired.WithLabelValues(signal).Inc()
}

// Pool Metrics

// SetPoolCounts sets the active and inactive instance counts of a pool.
func (m *Metrics) SetPoolCounts(pool string, active, inactive int) {
	if !m.enabled() {
		return
	}
	m.poolInstances.WithLabelValues(pool, "active").Set(float64(active))
	m.poolInstances.WithLabelValues(pool, "inactive").Set(float64(inactive))
}

// Error Metrics

// RecordError records an error by class.
func (m *Metrics) RecordError(errorClass string) {
	if !m.enabled() {
		return
	}
	m.errorsByClass.WithLabelValues(errorClass).Inc()
}

// Registry returns the underlying registry, nil when metrics are disabled.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if !m.enabled() {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Server returns an HTTP server exposing the metrics endpoint, or nil when
// metrics are disabled or no listen address is configured. The caller owns
// its lifecycle.
func (m *Metrics) Server() *http.Server {
	if !m.enabled() || m.config.ListenAddress == "" {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle(m.config.Path, m.Handler())

	return &http.Server{
		Addr:              m.config.ListenAddress,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
