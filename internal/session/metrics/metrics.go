package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for registration sessions.
type Metrics struct {
	Transitions    *prometheus.CounterVec
	Failures       *prometheus.CounterVec
	ActiveSessions prometheus.Gauge
	StepSeconds    *prometheus.HistogramVec
	Expired        prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		Transitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "onboard_session_transitions_total",
			Help: "Registration session state transitions by target state",
		}, []string{"to"}),
		Failures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "onboard_session_failures_total",
			Help: "Registration sessions that entered ERROR, by failure kind",
		}, []string{"kind"}),
		ActiveSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "onboard_session_active",
			Help: "Registration sessions currently held in memory",
		}),
		StepSeconds: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "onboard_session_step_duration_seconds",
			Help:    "Duration of blocking registration steps",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 90},
		}, []string{"step"}),
		Expired: promauto.NewCounter(prometheus.CounterOpts{
			Name: "onboard_session_expired_total",
			Help: "Idle registration sessions removed by the cleanup worker",
		}),
	}
}

func (m *Metrics) IncTransition(to string) {
	m.Transitions.WithLabelValues(to).Inc()
}

func (m *Metrics) IncFailure(kind string) {
	m.Failures.WithLabelValues(kind).Inc()
}

func (m *Metrics) IncActive() {
	m.ActiveSessions.Inc()
}

func (m *Metrics) DecActive() {
	m.ActiveSessions.Dec()
}

func (m *Metrics) ObserveStep(step string, seconds float64) {
	m.StepSeconds.WithLabelValues(step).Observe(seconds)
}

func (m *Metrics) AddExpired(n int) {
	m.Expired.Add(float64(n))
}
