package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "bridge"

// Metrics holds the bridge's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// Pump metrics
	PumpCycles   prometheus.Counter
	PumpErrors   *prometheus.CounterVec
	PumpDepthMax prometheus.Gauge
	Messages     *prometheus.CounterVec

	// Signal metrics
	SignalsReceived prometheus.Counter
	SignalBatches   prometheus.Counter

	// Timer metrics
	TimersActive prometheus.Gauge
	TimersFired  prometheus.Counter

	// Socket metrics
	SocketsActive prometheus.Gauge
	Reconnects    prometheus.Counter
	BytesSent     prometheus.Counter

	// Execution context metrics
	ContextsSpawned *prometheus.CounterVec
	SpawnFailures   *prometheus.CounterVec

	// Input metrics
	InputEvents *prometheus.CounterVec

	maxDepth int
}

// New creates the collectors on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,

		PumpCycles: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pump_cycles_total",
			Help:      "Total number of module invocations",
		}),
		PumpErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pump_errors_total",
			Help:      "Total number of failed pump cycles",
		}, []string{"kind"}),
		PumpDepthMax: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pump_depth_max",
			Help:      "Deepest pump nesting observed",
		}),
		Messages: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_total",
			Help:      "Messages exchanged with the module",
		}, []string{"direction", "tag"}),

		SignalsReceived: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "signals_received_total",
			Help:      "Signals raised by execution contexts",
		}),
		SignalBatches: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "signal_batches_total",
			Help:      "Signal batches delivered to the module",
		}),

		TimersActive: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "timers_active",
			Help:      "Number of live timers",
		}),
		TimersFired: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "timers_fired_total",
			Help:      "Total number of timer firings",
		}),

		SocketsActive: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sockets_active",
			Help:      "Number of sockets not terminally closed",
		}),
		Reconnects: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "socket_reconnects_total",
			Help:      "Total number of automatic reconnects",
		}),
		BytesSent: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "socket_bytes_sent_total",
			Help:      "Bytes handed to socket transports",
		}),

		ContextsSpawned: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "contexts_spawned_total",
			Help:      "Execution contexts started",
		}, []string{"kind"}),
		SpawnFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "spawn_failures_total",
			Help:      "Execution contexts that failed to start",
		}, []string{"reason"}),

		InputEvents: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "input_events_total",
			Help:      "Normalized input events sent to the module",
		}, []string{"kind"}),
	}
}

// Registry returns the private registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// PumpCycle records one invocation at nesting depth.
func (m *Metrics) PumpCycle(depth int) {
	if m == nil {
		return
	}
	m.PumpCycles.Inc()
	if depth > m.maxDepth {
		m.maxDepth = depth
		m.PumpDepthMax.Set(float64(depth))
	}
}

// PumpError records a failed pump cycle.
func (m *Metrics) PumpError(kind string) {
	if m == nil {
		return
	}
	m.PumpErrors.WithLabelValues(kind).Inc()
}

// Message records one message crossing the boundary.
func (m *Metrics) Message(direction, tag string) {
	if m == nil {
		return
	}
	m.Messages.WithLabelValues(direction, tag).Inc()
}

// SignalBatch records a flush of n signals.
func (m *Metrics) SignalBatch(n int) {
	if m == nil {
		return
	}
	m.SignalsReceived.Add(float64(n))
	m.SignalBatches.Inc()
}

// TimerFired records a firing and the live timer count.
func (m *Metrics) TimerFired(active int) {
	if m == nil {
		return
	}
	m.TimersFired.Inc()
	m.TimersActive.Set(float64(active))
}

// Timers records the live timer count.
func (m *Metrics) Timers(active int) {
	if m == nil {
		return
	}
	m.TimersActive.Set(float64(active))
}

// Sockets records the live socket count.
func (m *Metrics) Sockets(active int) {
	if m == nil {
		return
	}
	m.SocketsActive.Set(float64(active))
}

// Reconnect records an automatic reconnect.
func (m *Metrics) Reconnect() {
	if m == nil {
		return
	}
	m.Reconnects.Inc()
}

// Sent records n bytes handed to a transport.
func (m *Metrics) Sent(n int) {
	if m == nil {
		return
	}
	m.BytesSent.Add(float64(n))
}

// Spawned records a started execution context.
func (m *Metrics) Spawned(kind string) {
	if m == nil {
		return
	}
	m.ContextsSpawned.WithLabelValues(kind).Inc()
}

// SpawnFailed records a spawn aborted for reason.
func (m *Metrics) SpawnFailed(reason string) {
	if m == nil {
		return
	}
	m.SpawnFailures.WithLabelValues(reason).Inc()
}

// Input records one normalized event of kind.
func (m *Metrics) Input(kind string) {
	if m == nil {
		return
	}
	m.InputEvents.WithLabelValues(kind).Inc()
}
