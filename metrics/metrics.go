package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the verification workflow.
type Metrics struct {
	// Begin outcomes by result (issued, blocked, not_eligible, already_verified, error)
	BeginOutcome *prometheus.CounterVec

	// Submit outcomes by result (granted, invalid_signature, wallet_mismatch, no_challenge, error)
	SubmitOutcome *prometheus.CounterVec

	// Allow-list fetch failures
	AllowlistErrors prometheus.Counter
}

// New creates a new Metrics instance with all workflow metrics registered.
func New() *Metrics {
	return &Metrics{
		BeginOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "signatory_begin_total",
			Help: "Total verification begin attempts by outcome",
		}, []string{"outcome"}),

		SubmitOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "signatory_submit_total",
			Help: "Total signature submissions by outcome",
		}, []string{"outcome"}),

		AllowlistErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "signatory_allowlist_errors_total",
			Help: "Total allow-list fetch failures",
		}),
	}
}

// IncrementBegin records a begin outcome.
func (m *Metrics) IncrementBegin(outcome string) {
	if m != nil {
		m.BeginOutcome.WithLabelValues(outcome).Inc()
	}
}

// IncrementSubmit records a submit outcome.
func (m *Metrics) IncrementSubmit(outcome string) {
	if m != nil {
		m.SubmitOutcome.WithLabelValues(outcome).Inc()
	}
}

// IncrementAllowlistError records a failed allow-list fetch.
func (m *Metrics) IncrementAllowlistError() {
	if m != nil {
		m.AllowlistErrors.Inc()
	}
}
