// Package metrics exposes coordinator counters through Prometheus.
//
// Every method is safe on a nil *Metrics so tests and tools can run the
// orchestrator without a registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "skycalling"

// Drop reasons for events that are logged and discarded.
const (
	DropUnknownCall     = "unknown_call"
	DropUnauthorized    = "unauthorized_participant"
	DropIllegalState    = "illegal_transition"
	DropUnauthenticated = "unauthenticated"
	DropBadPayload      = "bad_payload"
)

type Metrics struct {
	reg *prometheus.Registry

	connections  prometheus.Gauge
	bindings     prometheus.Gauge
	activeCalls  prometheus.Gauge
	callsStarted prometheus.Counter
	callsEnded   *prometheus.CounterVec
	callsFailed  *prometheus.CounterVec
	dropped      *prometheus.CounterVec
	relayed      *prometheus.CounterVec
	undelivered  prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "connections",
			Help: "Live signaling connections.",
		}),
		bindings: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "bound_identities",
			Help: "Identities currently bound to a connection.",
		}),
		activeCalls: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "active_calls",
			Help: "Calls that have not reached a terminal state.",
		}),
		callsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "calls_started_total",
			Help: "Call sessions created.",
		}),
		callsEnded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "calls_ended_total",
			Help: "Call sessions destroyed, by reason.",
		}, []string{"reason"}),
		callsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "calls_failed_total",
			Help: "Call requests refused before a session existed, by reason.",
		}, []string{"reason"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "events_dropped_total",
			Help: "Inbound events dropped without effect, by reason.",
		}, []string{"reason"}),
		relayed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "messages_relayed_total",
			Help: "Negotiation messages delivered to the other party, by kind.",
		}, []string{"kind"}),
		undelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "messages_undelivered_total",
			Help: "Frames that could not be queued for their destination.",
		}),
	}
	m.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.connections, m.bindings, m.activeCalls, m.callsStarted,
		m.callsEnded, m.callsFailed, m.dropped, m.relayed, m.undelivered,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.reg
}

func (m *Metrics) ConnectionOpened() {
	if m != nil {
		m.connections.Inc()
	}
}

func (m *Metrics) ConnectionClosed() {
	if m != nil {
		m.connections.Dec()
	}
}

func (m *Metrics) SetBindings(n int) {
	if m != nil {
		m.bindings.Set(float64(n))
	}
}

func (m *Metrics) CallStarted() {
	if m != nil {
		m.callsStarted.Inc()
		m.activeCalls.Inc()
	}
}

func (m *Metrics) CallEnded(reason string) {
	if m != nil {
		m.callsEnded.WithLabelValues(reason).Inc()
		m.activeCalls.Dec()
	}
}

func (m *Metrics) CallFailed(reason string) {
	if m != nil {
		m.callsFailed.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) Dropped(reason string) {
	if m != nil {
		m.dropped.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) Relayed(kind string) {
	if m != nil {
		m.relayed.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) Undelivered() {
	if m != nil {
		m.undelivered.Inc()
	}
}
