package metrics

import "github.com/prometheus/client_golang/prometheus"

// Publish outcomes.
const (
	PublishOK          = "ok"
	PublishError       = "error"
	PublishUnavailable = "unavailable"
	PublishCircuitOpen = "circuit_open"
)

// RelayMetrics holds Prometheus metrics for relay clients.
type RelayMetrics struct {
	Publishes    *prometheus.CounterVec
	Connects     *prometheus.CounterVec
	KeepAlives   *prometheus.CounterVec
	Available    *prometheus.GaugeVec
	CircuitState *prometheus.GaugeVec
}

// NewRelayMetrics creates and registers relay metrics on the given registry.
func NewRelayMetrics(reg prometheus.Registerer) *RelayMetrics {
	m := &RelayMetrics{
		Publishes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "publishes_total",
			Help:      "Total number of relay publish attempts, by client and outcome.",
		}, []string{"client", "type", "outcome"}),
		Connects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "connects_total",
			Help:      "Total number of relay connection attempts, by client and status.",
		}, []string{"client", "type", "status"}),
		KeepAlives: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "keepalives_total",
			Help:      "Total number of relay keep-alive ticks, by client and status.",
		}, []string{"client", "type", "status"}),
		Available: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "available",
			Help:      "Whether a relay client is currently available (1) or not (0).",
		}, []string{"client", "type"}),
		CircuitState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "circuit_state",
			Help:      "Relay client circuit breaker state (0=closed, 1=half-open, 2=open).",
		}, []string{"client"}),
	}

	reg.MustRegister(m.Publishes, m.Connects, m.KeepAlives, m.Available, m.CircuitState)
	return m
}

// SetAvailable records the availability of a client.
func (m *RelayMetrics) SetAvailable(client, clientType string, available bool) {
	v := 0.0
	if available {
		v = 1
	}
	m.Available.WithLabelValues(client, clientType).Set(v)
}

// HubMetrics holds Prometheus metrics for the embedded WebSocket hub.
type HubMetrics struct {
	ActiveConnections prometheus.Gauge
	MessagesPublished prometheus.Counter
}

// NewHubMetrics creates and registers hub metrics on the given registry.
func NewHubMetrics(reg prometheus.Registerer) *HubMetrics {
	m := &HubMetrics{
		ActiveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "active_connections",
			Help:      "Number of listeners connected to the embedded WebSocket hub.",
		}),
		MessagesPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "messages_published_total",
			Help:      "Total number of events published to the embedded WebSocket hub.",
		}),
	}

	reg.MustRegister(m.ActiveConnections, m.MessagesPublished)
	return m
}
