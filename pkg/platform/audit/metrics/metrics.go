package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	EventsTotal           *prometheus.CounterVec
	PersistFailures       prometheus.Counter
	PersistDuration       prometheus.Histogram
	AlertsDispatched      prometheus.Counter
	AlertFailures         prometheus.Counter
	AlertsDropped         prometheus.Counter
	SecurityBufferDrops   prometheus.Counter
	SecurityFlushFailures prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		EventsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "garrison_audit_events_total",
			Help: "Total number of audit events recorded by severity",
		}, []string{"severity"}),
		PersistFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "garrison_audit_persist_failures_total",
			Help: "Total number of audit events that failed to persist",
		}),
		PersistDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "garrison_audit_persist_duration_seconds",
			Help:    "Audit event persistence latency",
			Buckets: prometheus.DefBuckets,
		}),
		AlertsDispatched: promauto.NewCounter(prometheus.CounterOpts{
			Name: "garrison_audit_alerts_dispatched_total",
			Help: "Total number of high-risk alerts handed to the notifier",
		}),
		AlertFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "garrison_audit_alert_failures_total",
			Help: "Total number of alert notifications that failed after retries",
		}),
		AlertsDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "garrison_audit_alerts_dropped_total",
			Help: "Total number of alerts dropped because the queue was full",
		}),
		SecurityBufferDrops: promauto.NewCounter(prometheus.CounterOpts{
			Name: "garrison_audit_security_buffer_drops_total",
			Help: "Total number of security events dropped from the ring buffer",
		}),
		SecurityFlushFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "garrison_audit_security_flush_failures_total",
			Help: "Total number of security events that failed to flush to a sink",
		}),
	}
}
