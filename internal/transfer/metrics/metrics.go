package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the transfer protocol.
type Metrics struct {
	// Envelope decode outcomes at the protocol edge
	EnvelopesDecoded *prometheus.CounterVec

	// Settlement outcomes by result
	SettlementOutcome *prometheus.CounterVec

	// End-to-end confirmation latency including the forwarded leg
	SettlementLatency prometheus.Histogram

	// Proof forwarding latency to counter-party endpoints
	ForwardLatency prometheus.Histogram
}

// New creates a Metrics instance with all transfer metrics registered.
func New() *Metrics {
	return &Metrics{
		EnvelopesDecoded: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "paygate_envelopes_decoded_total",
			Help: "Payment envelope decode attempts by outcome",
		}, []string{"outcome"}), // outcome: "ok", "rejected"

		SettlementOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "paygate_settlement_outcomes_total",
			Help: "Settlement outcomes by result",
		}, []string{"result"}),

		SettlementLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "paygate_settlement_duration_seconds",
			Help:    "Duration of payment confirmation including forwarding",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),

		ForwardLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "paygate_forward_duration_seconds",
			Help:    "Duration of proof envelope delivery to counter-party",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
	}
}

// IncEnvelopeDecoded records an envelope decode attempt.
func (m *Metrics) IncEnvelopeDecoded(outcome string) {
	if m != nil {
		m.EnvelopesDecoded.WithLabelValues(outcome).Inc()
	}
}

// IncSettlementOutcome records a settlement result.
func (m *Metrics) IncSettlementOutcome(result string) {
	if m != nil {
		m.SettlementOutcome.WithLabelValues(result).Inc()
	}
}

// ObserveSettlementLatency records a full confirmation duration.
func (m *Metrics) ObserveSettlementLatency(d time.Duration) {
	if m != nil {
		m.SettlementLatency.Observe(d.Seconds())
	}
}

// ObserveForwardLatency records a proof delivery duration.
func (m *Metrics) ObserveForwardLatency(d time.Duration) {
	if m != nil {
		m.ForwardLatency.Observe(d.Seconds())
	}
}
