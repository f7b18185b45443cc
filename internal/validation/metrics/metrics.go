package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	FieldChecksTotal     *prometheus.CounterVec
	FieldFailuresTotal   *prometheus.CounterVec
	ThreatsDetectedTotal *prometheus.CounterVec
	RecordChecksTotal    *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		FieldChecksTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "garrison_validation_field_checks_total",
			Help: "Total number of single-field validations performed",
		}, []string{"field_type"}),
		FieldFailuresTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "garrison_validation_field_failures_total",
			Help: "Total number of single-field validations that produced errors",
		}, []string{"field_type"}),
		ThreatsDetectedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "garrison_validation_threats_detected_total",
			Help: "Total number of injection or script payloads detected in input",
		}, []string{"kind"}),
		RecordChecksTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "garrison_validation_record_checks_total",
			Help: "Total number of whole-record validations by outcome",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) ObserveFieldCheck(fieldType string, failed bool) {
	m.FieldChecksTotal.WithLabelValues(fieldType).Inc()
	if failed {
		m.FieldFailuresTotal.WithLabelValues(fieldType).Inc()
	}
}

func (m *Metrics) ObserveThreat(kind string) {
	m.ThreatsDetectedTotal.WithLabelValues(kind).Inc()
}

func (m *Metrics) ObserveRecordCheck(valid bool) {
	outcome := "valid"
	if !valid {
		outcome = "invalid"
	}
	m.RecordChecksTotal.WithLabelValues(outcome).Inc()
}
