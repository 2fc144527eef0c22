package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the admin request queue.
type Metrics struct {
	Created   *prometheus.CounterVec
	Processed *prometheus.CounterVec
	Denied    *prometheus.CounterVec
	Conflicts prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		Created: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "onboard_admin_requests_created_total",
			Help: "Admin requests filed, by type",
		}, []string{"type"}),
		Processed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "onboard_admin_requests_processed_total",
			Help: "Admin requests decided, by type and decision",
		}, []string{"type", "decision"}),
		Denied: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "onboard_admin_authorization_denied_total",
			Help: "Admin actions refused for lack of authority, by action",
		}, []string{"action"}),
		Conflicts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "onboard_admin_requests_already_processed_total",
			Help: "Decisions that lost the race for a request",
		}),
	}
}

func (m *Metrics) IncCreated(requestType string) {
	m.Created.WithLabelValues(requestType).Inc()
}

func (m *Metrics) IncProcessed(requestType, decision string) {
	m.Processed.WithLabelValues(requestType, decision).Inc()
}

func (m *Metrics) IncDenied(action string) {
	m.Denied.WithLabelValues(action).Inc()
}

func (m *Metrics) IncConflict() {
	m.Conflicts.Inc()
}
