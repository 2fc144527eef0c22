package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for Submit.
const (
	OutcomeRegistered        = "registered"
	OutcomeDuplicateIdentity = "duplicate_identity"
	OutcomeDomainTaken       = "domain_taken"
	OutcomeProofConsumed     = "proof_consumed"
	OutcomeProofRejected     = "proof_rejected"
	OutcomeUnknown           = "unknown_outcome"
	OutcomeError             = "error"
)

// Metrics holds Prometheus metrics for the registry client.
type Metrics struct {
	SubmissionsTotal     *prometheus.CounterVec
	SubmitSeconds        *prometheus.HistogramVec
	ReconciliationsTotal *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		SubmissionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "onboard_registry_submissions_total",
			Help: "Registry submissions by role and outcome",
		}, []string{"role", "outcome"}),
		SubmitSeconds: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "onboard_registry_submit_duration_seconds",
			Help:    "Registry submission latency by role",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 15, 20},
		}, []string{"role"}),
		ReconciliationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "onboard_registry_reconciliations_total",
			Help: "Unknown-outcome reconciliations by result",
		}, []string{"reconciled"}),
	}
}

func (m *Metrics) ObserveSubmit(role, outcome string, seconds float64) {
	m.SubmissionsTotal.WithLabelValues(role, outcome).Inc()
	m.SubmitSeconds.WithLabelValues(role).Observe(seconds)
}

func (m *Metrics) IncReconciliation(reconciled bool) {
	m.ReconciliationsTotal.WithLabelValues(strconv.FormatBool(reconciled)).Inc()
}
