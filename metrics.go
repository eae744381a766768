package pubsub

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// sessionMetrics counts frame outcomes. All methods are nil-safe so the
// session can skip metrics entirely when no registerer was configured.
type sessionMetrics struct {
	delivered      *prometheus.CounterVec
	controlAcks    prometheus.Counter
	suppressed     prometheus.Counter
	protocolErrors prometheus.Counter
}

func newSessionMetrics(reg prometheus.Registerer) *sessionMetrics {
	factory := promauto.With(reg)

	return &sessionMetrics{
		delivered: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pubsub",
			Name:      "events_delivered_total",
			Help:      "Events handed to the session callback",
		}, []string{"kind"}),
		controlAcks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "pubsub",
			Name:      "control_acks_total",
			Help:      "Subscription-management acknowledgements observed",
		}),
		suppressed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "pubsub",
			Name:      "frames_suppressed_total",
			Help:      "Frames dropped while draining or after close",
		}),
		protocolErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "pubsub",
			Name:      "protocol_errors_total",
			Help:      "Inbound frames the session could not interpret",
		}),
	}
}

func (m *sessionMetrics) eventDelivered(ev Event) {
	if m == nil {
		return
	}
	switch ev.(type) {
	case Message:
		m.delivered.WithLabelValues(kindMessage).Inc()
	case PatternMessage:
		m.delivered.WithLabelValues(kindPMessage).Inc()
	case Pong:
		m.delivered.WithLabelValues(kindPong).Inc()
	default:
		m.delivered.WithLabelValues("other").Inc()
	}
}

func (m *sessionMetrics) controlAck() {
	if m == nil {
		return
	}
	m.controlAcks.Inc()
}

func (m *sessionMetrics) frameSuppressed() {
	if m == nil {
		return
	}
	m.suppressed.Inc()
}

func (m *sessionMetrics) protocolError() {
	if m == nil {
		return
	}
	m.protocolErrors.Inc()
}
