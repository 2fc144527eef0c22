package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for Bind.
const (
	OutcomeBound            = "bound"
	OutcomeMalformed        = "malformed_email"
	OutcomeDomainMismatch   = "domain_mismatch"
	OutcomeGenerationFailed = "generation_failed"
	OutcomeError            = "error"
)

// Metrics holds Prometheus metrics for the proof binder.
type Metrics struct {
	BindTotal       *prometheus.CounterVec
	GenerateSeconds prometheus.Histogram
}

func New() *Metrics {
	return &Metrics{
		BindTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "onboard_proof_bind_total",
			Help: "Proof bind attempts by outcome",
		}, []string{"outcome"}),
		GenerateSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "onboard_proof_generate_duration_seconds",
			Help:    "Time spent waiting for the proving service",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) IncBind(outcome string) {
	m.BindTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveGenerate(seconds float64) {
	m.GenerateSeconds.Observe(seconds)
}
