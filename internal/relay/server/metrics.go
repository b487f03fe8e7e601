package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"parley/internal/domain"
)

// Drop reasons used as the dropped counter's label.
const (
	DropInvalid   = "invalid"
	DropOffline   = "offline"
	DropSlow      = "slow_consumer"
	DropMalformed = "malformed"
)

// Metrics holds the relay's Prometheus collectors on a private registry.
type Metrics struct {
	registry    *prometheus.Registry
	forwarded   *prometheus.CounterVec
	dropped     *prometheus.CounterVec
	connections prometheus.Gauge
}

// NewMetrics registers the relay collectors plus the Go and process
// collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		forwarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "parley",
			Subsystem: "relay",
			Name:      "envelopes_forwarded_total",
			Help:      "Envelopes delivered to a connected user, by envelope type.",
		}, []string{"type"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "parley",
			Subsystem: "relay",
			Name:      "envelopes_dropped_total",
			Help:      "Envelopes or copies not delivered, by reason.",
		}, []string{"reason"}),
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "parley",
			Subsystem: "relay",
			Name:      "connections",
			Help:      "Currently connected WebSocket clients.",
		}),
	}
	m.registry.MustRegister(
		m.forwarded,
		m.dropped,
		m.connections,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the private registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) forward(t domain.EnvelopeType) { m.forwarded.WithLabelValues(t.String()).Inc() }
func (m *Metrics) drop(reason string)            { m.dropped.WithLabelValues(reason).Inc() }
func (m *Metrics) connected()                    { m.connections.Inc() }
func (m *Metrics) disconnected()                 { m.connections.Dec() }
