// Package metrics exposes the coordination counters over Prometheus. A nil
// *Metrics is valid and records nothing, so tests and tools can skip it.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "squadai"

type Metrics struct {
	Registry *prometheus.Registry

	taskSwitches     *prometheus.CounterVec
	grants           prometheus.Counter
	returns          prometheus.Counter
	fallbacks        *prometheus.CounterVec
	exhausted        prometheus.Counter
	congestionClamps prometheus.Counter
	agents           prometheus.Gauge
	squads           prometheus.Gauge
	tickSeconds      prometheus.Histogram
	telemetryDropped prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		taskSwitches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "task_switches_total",
			Help:      "Task activations by scheduler and task.",
		}, []string{"scheduler", "task"}),
		grants: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "location_grants_total",
			Help:      "Cells granted by RequestNear.",
		}),
		returns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "location_returns_total",
			Help:      "Assignments released by Return.",
		}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "location_fallbacks_total",
			Help:      "Requests resolved without direction matching, by reason.",
		}, []string{"reason"}),
		exhausted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "location_exhausted_total",
			Help:      "Requests that found no populated cell.",
		}),
		congestionClamps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "location_congestion_clamps_total",
			Help:      "Returns that would have driven congestion negative.",
		}),
		agents: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "agents",
			Help:      "Live agents.",
		}),
		squads: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "squads",
			Help:      "Live squads.",
		}),
		tickSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tick_seconds",
			Help:      "Wall time spent per simulation tick.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 12),
		}),
		telemetryDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "telemetry_dropped_total",
			Help:      "Telemetry rows discarded after a failed flush.",
		}),
	}
	m.Registry.MustRegister(
		m.taskSwitches, m.grants, m.returns, m.fallbacks, m.exhausted,
		m.congestionClamps, m.agents, m.squads, m.tickSeconds, m.telemetryDropped,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

func (m *Metrics) TaskSwitched(scheduler, task string) {
	if m == nil {
		return
	}
	m.taskSwitches.WithLabelValues(scheduler, task).Inc()
}

func (m *Metrics) LocationGranted() {
	if m == nil {
		return
	}
	m.grants.Inc()
}

func (m *Metrics) LocationReturned() {
	if m == nil {
		return
	}
	m.returns.Inc()
}

func (m *Metrics) LocationFallback(reason string) {
	if m == nil {
		return
	}
	m.fallbacks.WithLabelValues(reason).Inc()
}

func (m *Metrics) LocationExhausted() {
	if m == nil {
		return
	}
	m.exhausted.Inc()
}

func (m *Metrics) CongestionClamped() {
	if m == nil {
		return
	}
	m.congestionClamps.Inc()
}

func (m *Metrics) SetPopulation(agents, squads int) {
	if m == nil {
		return
	}
	m.agents.Set(float64(agents))
	m.squads.Set(float64(squads))
}

func (m *Metrics) ObserveTick(seconds float64) {
	if m == nil {
		return
	}
	m.tickSeconds.Observe(seconds)
}

func (m *Metrics) TelemetryDropped(n int) {
	if m == nil {
		return
	}
	m.telemetryDropped.Add(float64(n))
}
