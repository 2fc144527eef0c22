package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for AwaitEmail.
const (
	OutcomeArrived     = "arrived"
	OutcomeNotArrived  = "not_arrived"
	OutcomeFetchFailed = "fetch_failed"
	OutcomeCancelled   = "cancelled"
	OutcomeError       = "error"
)

// Metrics holds Prometheus metrics for the inbox poller.
type Metrics struct {
	AttemptsTotal prometheus.Counter
	OutcomesTotal *prometheus.CounterVec
	WaitSeconds   *prometheus.HistogramVec
}

func New() *Metrics {
	return &Metrics{
		AttemptsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "onboard_inbox_fetch_attempts_total",
			Help: "Total number of mail service fetch attempts",
		}),
		OutcomesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "onboard_inbox_await_outcomes_total",
			Help: "AwaitEmail results by outcome",
		}, []string{"outcome"}),
		WaitSeconds: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "onboard_inbox_await_duration_seconds",
			Help:    "Wall-clock time spent in AwaitEmail by outcome",
			Buckets: []float64{0.1, 1, 5, 10, 20, 30, 45, 60, 65},
		}, []string{"outcome"}),
	}
}

func (m *Metrics) IncAttempt() {
	m.AttemptsTotal.Inc()
}

func (m *Metrics) IncOutcome(outcome string) {
	m.OutcomesTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveWait(outcome string, seconds float64) {
	m.WaitSeconds.WithLabelValues(outcome).Observe(seconds)
}
