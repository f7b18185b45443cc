package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	AttemptsTotal *prometheus.CounterVec
	DeniedTotal   *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		AttemptsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "garrison_ratelimit_attempts_total",
			Help: "Total number of rate limit checks by action",
		}, []string{"action"}),
		DeniedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "garrison_ratelimit_denied_total",
			Help: "Total number of rate limited attempts by action",
		}, []string{"action"}),
	}
}

func (m *Metrics) ObserveAttempt(action string, allowed bool) {
	m.AttemptsTotal.WithLabelValues(action).Inc()
	if !allowed {
		m.DeniedTotal.WithLabelValues(action).Inc()
	}
}
