package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects Prometheus metrics for engine operations.
type Metrics struct {
	config MetricsConfig

	operationsStarted   *prometheus.CounterVec
	operationsCompleted *prometheus.CounterVec
	operationDuration   *prometheus.HistogramVec

	stepsExecuted *prometheus.CounterVec
	stepDuration  *prometheus.HistogramVec

	downloads       *prometheus.CounterVec
	downloadedBytes prometheus.Counter

	installedPackages prometheus.Gauge

	errorsByKind *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates a metrics collector. A disabled configuration
// yields a no-op instance.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		operationsStarted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_started_total",
				Help:      "Total number of engine operations started",
			},
			[]string{"op"},
		),
		operationsCompleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_completed_total",
				Help:      "Total number of engine operations completed",
			},
			[]string{"op", "status"},
		),
		operationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Duration of engine operations in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"op"},
		),
		stepsExecuted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "install_steps_executed_total",
				Help:      "Total number of install plan steps executed",
			},
			[]string{"status"},
		),
		stepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "install_step_duration_seconds",
				Help:      "Duration of install plan steps in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"phase"},
		),
		downloads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "downloads_total",
				Help:      "Total number of artifact downloads",
			},
			[]string{"status"},
		),
		downloadedBytes: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "downloaded_bytes_total",
				Help:      "Total bytes of artifact archives downloaded",
			},
		),
		installedPackages: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "installed_packages",
				Help:      "Current number of packages recorded in the journal",
			},
		),
		errorsByKind: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Total errors by kind",
			},
			[]string{"kind"},
		),
	}

	registry.MustRegister(
		m.operationsStarted,
		m.operationsCompleted,
		m.operationDuration,
		m.stepsExecuted,
		m.stepDuration,
		m.downloads,
		m.downloadedBytes,
		m.installedPackages,
		m.errorsByKind,
	)
	return m, nil
}

// Registry exposes the underlying registry, or nil when disabled.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// OperationStarted records the start of an engine operation.
func (m *Metrics) OperationStarted(op string) {
	if m.registry == nil {
		return
	}
	m.operationsStarted.WithLabelValues(op).Inc()
}

// OperationCompleted records a finished operation with its status and
// duration.
func (m *Metrics) OperationCompleted(op, status string, d time.Duration) {
	if m.registry == nil {
		return
	}
	m.operationsCompleted.WithLabelValues(op, status).Inc()
	m.operationDuration.WithLabelValues(op).Observe(d.Seconds())
}

// StepExecuted records one install plan step.
func (m *Metrics) StepExecuted(status string) {
	if m.registry == nil {
		return
	}
	m.stepsExecuted.WithLabelValues(status).Inc()
}

// StepPhase records the duration of one phase of an install step.
func (m *Metrics) StepPhase(phase string, d time.Duration) {
	if m.registry == nil {
		return
	}
	m.stepDuration.WithLabelValues(phase).Observe(d.Seconds())
}

// DownloadCompleted records one artifact download.
func (m *Metrics) DownloadCompleted(status string, bytes int64) {
	if m.registry == nil {
		return
	}
	m.downloads.WithLabelValues(status).Inc()
	if bytes > 0 {
		m.downloadedBytes.Add(float64(bytes))
	}
}

// SetInstalledPackages records the journal's current package count.
func (m *Metrics) SetInstalledPackages(n int) {
	if m.registry == nil {
		return
	}
	m.installedPackages.Set(float64(n))
}

// ErrorObserved records an error by kind.
func (m *Metrics) ErrorObserved(kind string) {
	if m.registry == nil {
		return
	}
	m.errorsByKind.WithLabelValues(kind).Inc()
}
