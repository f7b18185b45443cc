// Package recorder is the single write path for the audit trail. It stamps
// request metadata, classifies severity, scores risk, persists the event
// synchronously, and fans high-severity and high-risk events out to the
// security feed and the alert dispatcher.
package recorder

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"log/slog"

	id "garrison/pkg/domain"
	dErrors "garrison/pkg/domain-errors"
	audit "garrison/pkg/platform/audit"
	"garrison/pkg/platform/audit/alerts"
	auditmetrics "garrison/pkg/platform/audit/metrics"
	"garrison/pkg/platform/audit/publishers/security"
	"garrison/pkg/requestcontext"
)

const (
	// maxValueLength bounds stored old/new values so a single oversized
	// payload cannot bloat the trail.
	maxValueLength = 500

	defaultAlertThreshold = 80
)

// Recorder writes audit events. The store write is synchronous and its
// failure is the caller's failure; the security feed and alerting are
// best effort and never block.
type Recorder struct {
	store    audit.Store
	security *security.Publisher
	alerts   *alerts.Dispatcher
	logger   *slog.Logger
	metrics  *auditmetrics.Metrics
	tracer   trace.Tracer

	alertThreshold int
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Recorder) { r.logger = logger }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *auditmetrics.Metrics) Option {
	return func(r *Recorder) { r.metrics = m }
}

// WithSecurityPublisher routes HIGH and CRITICAL events to the security feed.
func WithSecurityPublisher(p *security.Publisher) Option {
	return func(r *Recorder) { r.security = p }
}

// WithAlertDispatcher routes events at or above the risk threshold to the
// on-call notifier.
func WithAlertDispatcher(d *alerts.Dispatcher) Option {
	return func(r *Recorder) { r.alerts = d }
}

// WithAlertThreshold overrides the risk score at which alerts fire.
func WithAlertThreshold(threshold int) Option {
	return func(r *Recorder) {
		if threshold > 0 {
			r.alertThreshold = threshold
		}
	}
}

// New creates a Recorder backed by the given store.
func New(store audit.Store, opts ...Option) (*Recorder, error) {
	if store == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "audit recorder requires a store")
	}
	r := &Recorder{
		store:          store,
		logger:         slog.Default(),
		tracer:         otel.Tracer("garrison/audit"),
		alertThreshold: defaultAlertThreshold,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Record finalizes and persists one audit event. The caller fills the
// resource fields; Record stamps identity and request metadata from the
// context, sanitizes values, classifies severity, and scores risk. The
// returned event is the persisted form.
//
// Persistence is synchronous: if the store write fails the event is lost and
// the error carries CodeAuditPersistence. Callers log it and proceed with
// the operation they were auditing; a lost record is an operator problem,
// not a client error.
func (r *Recorder) Record(ctx context.Context, event audit.Event) (audit.Event, error) {
	ctx, span := r.tracer.Start(ctx, "audit.Record",
		trace.WithAttributes(
			attribute.String("audit.action", event.Action),
			attribute.String("audit.resource_type", event.ResourceType),
		))
	defer span.End()

	event = r.finalize(ctx, event)

	start := time.Now()
	err := r.store.Append(ctx, event)
	if r.metrics != nil {
		r.metrics.PersistDuration.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		if r.metrics != nil {
			r.metrics.PersistFailures.Inc()
		}
		r.logger.Error("audit event lost",
			"action", event.Action,
			"resource_type", event.ResourceType,
			"severity", string(event.Severity),
			"error", err,
		)
		return audit.Event{}, dErrors.Wrap(err, dErrors.CodeAuditPersistence, "append audit event")
	}

	if r.metrics != nil {
		r.metrics.EventsTotal.WithLabelValues(string(event.Severity)).Inc()
	}

	if event.Severity == audit.SeverityHigh || event.Severity == audit.SeverityCritical {
		if r.security != nil {
			r.security.Emit(ctx, event)
		}
	}
	if event.RiskScore >= r.alertThreshold && r.alerts != nil {
		r.alerts.Enqueue(event)
	}

	return event, nil
}

// RecordSecurity persists a security-category event such as a failed login
// or a rejected request. Details carries free-form context.
func (r *Recorder) RecordSecurity(ctx context.Context, action, resourceType, resourceID, details string, failed bool) (audit.Event, error) {
	return r.Record(ctx, audit.Event{
		Category:     audit.CategorySecurity,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Action:       action,
		Details:      details,
		Failed:       failed,
	})
}

// finalize stamps identity and metadata, sanitizes stored values, and
// computes severity and risk.
func (r *Recorder) finalize(ctx context.Context, event audit.Event) audit.Event {
	if event.ID.IsNil() {
		event.ID = id.NewEventID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx).UTC()
	}
	if event.Category == "" {
		event.Category = audit.CategoryData
	}
	if event.ActorID.IsNil() {
		event.ActorID = requestcontext.ActorID(ctx)
	}
	if event.SessionID.IsNil() {
		event.SessionID = requestcontext.SessionID(ctx)
	}
	if event.IPAddress == "" {
		event.IPAddress = requestcontext.ClientIP(ctx)
	}
	if event.UserAgent == "" {
		event.UserAgent = requestcontext.UserAgent(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}

	event.OldValue = storedValue(event.FieldName, event.OldValue)
	event.NewValue = storedValue(event.FieldName, event.NewValue)

	event.Severity = Classify(event)
	event.RiskScore = RiskScore(event)
	return event
}

// Classify assigns the triage severity. Rules apply in order; the first
// match wins.
func Classify(event audit.Event) audit.Severity {
	switch {
	case event.ResourceType == audit.ResourceSecurityClearance,
		event.FieldName == "serviceNumber":
		return audit.SeverityCritical
	case isDestructive(event), isSensitiveField(event.FieldName):
		return audit.SeverityHigh
	default:
		return audit.SeverityMedium
	}
}

// RiskScore computes the numeric risk for an event. Every event starts at a
// baseline of 10; authentication failures, failed operations, and sensitive
// data access add to it. The result is clamped to [0, 100].
func RiskScore(event audit.Event) int {
	score := 10
	if event.Action == audit.ActionLoginFailed || event.Action == audit.ActionAccountLocked {
		score += 50
	}
	if event.Failed {
		score += 20
	}
	if strings.Contains(event.Action, "sensitive_data") {
		score += 30
	}
	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}
	return score
}

func isDestructive(event audit.Event) bool {
	if event.Action != audit.ActionDelete {
		return false
	}
	return event.ResourceType == audit.ResourceStaff || event.ResourceType == audit.ResourceServiceRecord
}

func isSensitiveField(fieldName string) bool {
	switch fieldName {
	case "rank", "unit", "status", "role":
		return true
	}
	return false
}

// storedValue truncates oversized values and redacts credential-bearing
// fields before they reach any store.
func storedValue(fieldName, value string) string {
	if value == "" {
		return ""
	}
	if isRedactedField(fieldName) {
		return "[REDACTED]"
	}
	if len(value) > maxValueLength {
		return value[:maxValueLength]
	}
	return value
}

func isRedactedField(fieldName string) bool {
	name := strings.ToLower(fieldName)
	return strings.Contains(name, "token") ||
		strings.Contains(name, "password") ||
		strings.Contains(name, "secret")
}
