package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics handles application metrics and monitoring for the relay.
type Metrics struct {
	ActiveSessions    prometheus.Gauge
	OpsApplied        *prometheus.CounterVec
	BroadcastsTotal   prometheus.Counter
	DroppedSends      prometheus.Counter
	MalformedMessages prometheus.Counter
}

// NewMetrics creates and registers the relay metrics on the given
// registerer. Pass prometheus.NewRegistry() in tests to avoid global
// registration collisions.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ideaboard",
			Name:      "active_sessions",
			Help:      "Number of currently connected client sessions.",
		}),
		OpsApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ideaboard",
			Name:      "operations_applied_total",
			Help:      "Operations applied to the canvas store, by type and result.",
		}, []string{"type", "result"}),
		BroadcastsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ideaboard",
			Name:      "broadcasts_total",
			Help:      "Operations fanned out to peer sessions.",
		}),
		DroppedSends: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ideaboard",
			Name:      "dropped_sends_total",
			Help:      "Sends dropped because a session's queue was full or closed.",
		}),
		MalformedMessages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ideaboard",
			Name:      "malformed_messages_total",
			Help:      "Incoming lines discarded as malformed.",
		}),
	}

	reg.MustRegister(
		m.ActiveSessions,
		m.OpsApplied,
		m.BroadcastsTotal,
		m.DroppedSends,
		m.MalformedMessages,
	)
	return m
}

// RecordOp records one store apply attempt
func (m *Metrics) RecordOp(opType string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.OpsApplied.WithLabelValues(opType, result).Inc()
}
