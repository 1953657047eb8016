package lifecycle

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics tracks Prometheus metrics for hook invocations, component creation
// and teardown, and guarded operations.
//
// All metrics use the "lifecycle_" prefix. Methods handle a nil receiver, so
// a nil *Metrics is a no-op.
type Metrics struct {
	// HookInvocations counts hook invocations.
	// Labels: phase=[Activate, PostConstruct, PreDestroy], result=[success, failure]
	HookInvocations *prometheus.CounterVec

	// HookDuration tracks hook execution time by phase.
	HookDuration *prometheus.HistogramVec

	// ComponentsCreated counts components that completed PostConstruct.
	ComponentsCreated prometheus.Counter

	// ComponentsDestroyed counts components visited by teardown, failed or not.
	ComponentsDestroyed prometheus.Counter

	// GuardedInFlight tracks the number of running guarded operations.
	GuardedInFlight prometheus.Gauge

	// DrainDuration tracks how long drains waited for guarded operations.
	DrainDuration prometheus.Histogram
}

// NewMetrics creates and registers lifecycle metrics.
//
// If registerer is nil, prometheus.DefaultRegisterer is used. Registering
// twice against the same registerer panics.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		HookInvocations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lifecycle_hook_invocations_total",
				Help: "Total lifecycle hook invocations by phase and result",
			},
			[]string{"phase", "result"},
		),
		HookDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lifecycle_hook_duration_seconds",
				Help:    "Lifecycle hook execution duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"phase"},
		),
		ComponentsCreated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "lifecycle_components_created_total",
				Help: "Total components that completed creation",
			},
		),
		ComponentsDestroyed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "lifecycle_components_destroyed_total",
				Help: "Total components visited by teardown",
			},
		),
		GuardedInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "lifecycle_guarded_operations_in_flight",
				Help: "Current number of in-flight guarded operations",
			},
		),
		DrainDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "lifecycle_drain_duration_seconds",
				Help:    "Time spent waiting for guarded operations to drain",
				Buckets: prometheus.DefBuckets,
			},
		),
	}

	registerer.MustRegister(
		m.HookInvocations,
		m.HookDuration,
		m.ComponentsCreated,
		m.ComponentsDestroyed,
		m.GuardedInFlight,
		m.DrainDuration,
	)

	return m
}

// RecordHook records one hook invocation that started at start.
func (m *Metrics) RecordHook(phase Phase, start time.Time, err error) {
	if m == nil {
		return
	}

	result := "success"
	if err != nil {
		result = "failure"
	}

	m.HookInvocations.WithLabelValues(phase.String(), result).Inc()
	m.HookDuration.WithLabelValues(phase.String()).Observe(time.Since(start).Seconds())
}

// RecordCreated records a component completing creation.
func (m *Metrics) RecordCreated() {
	if m == nil {
		return
	}
	m.ComponentsCreated.Inc()
}

// RecordDestroyed records a component visited by teardown.
func (m *Metrics) RecordDestroyed() {
	if m == nil {
		return
	}
	m.ComponentsDestroyed.Inc()
}

// GuardStarted records a guarded operation starting.
func (m *Metrics) GuardStarted() {
	if m == nil {
		return
	}
	m.GuardedInFlight.Inc()
}

// GuardFinished records a guarded operation finishing.
func (m *Metrics) GuardFinished() {
	if m == nil {
		return
	}
	m.GuardedInFlight.Dec()
}

// RecordDrain records a completed drain.
func (m *Metrics) RecordDrain(d time.Duration) {
	if m == nil {
		return
	}
	m.DrainDuration.Observe(d.Seconds())
}
