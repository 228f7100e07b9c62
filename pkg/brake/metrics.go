// metrics.go exports Prometheus metrics for notice delivery.

package brake

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Delivery outcomes used as the "outcome" label of brake_notices_total.
const (
	OutcomeDelivered      = "delivered"
	OutcomeRejected       = "rejected"
	OutcomeUnrecognized   = "unrecognized"
	OutcomeTransportError = "transport_error"
	OutcomeRequestError   = "request_error"
	OutcomeReadError      = "read_error"
)

// Metrics tracks notice delivery. A nil *Metrics records nothing.
type Metrics struct {
	notices  *prometheus.CounterVec
	duration prometheus.Histogram
	inflight prometheus.Gauge
}

// NewMetrics creates delivery metrics and registers them with reg.
// A nil reg leaves the collectors unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		notices: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "brake_notices_total",
				Help: "Total number of notices by delivery outcome",
			},
			[]string{"outcome"},
		),
		duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "brake_delivery_duration_seconds",
				Help:    "Time from dispatch until the response body was read",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
		),
		inflight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "brake_sends_inflight",
				Help: "Number of sends currently waiting on the network",
			},
		),
	}
	if reg != nil {
		reg.MustRegister(m.notices, m.duration, m.inflight)
	}
	return m
}

// RecordOutcome counts one notice with the given outcome.
func (m *Metrics) RecordOutcome(outcome string) {
	if m == nil {
		return
	}
	m.notices.WithLabelValues(outcome).Inc()
}

// RecordDuration observes how long one delivery took.
func (m *Metrics) RecordDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.duration.Observe(d.Seconds())
}

func (m *Metrics) sendStarted() {
	if m == nil {
		return
	}
	m.inflight.Inc()
}

func (m *Metrics) sendFinished() {
	if m == nil {
		return
	}
	m.inflight.Dec()
}

// outcomeFor classifies a parsed result.
func outcomeFor(result *DeliveryResult) string {
	switch {
	case result.Notice != nil:
		return OutcomeDelivered
	case len(result.Errors) > 0:
		return OutcomeRejected
	default:
		return OutcomeUnrecognized
	}
}
