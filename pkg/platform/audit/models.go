// Package audit defines the append-only audit trail for personnel record
// changes, with severity classification and numeric risk scoring.
package audit

import (
	"context"
	"time"

	id "garrison/pkg/domain"
)

// Category classifies audit events by their primary purpose.
// This enables different retention policies, storage backends, and routing.
type Category string

const (
	// CategoryData covers ordinary record changes. These form the compliance
	// trail and require long retention.
	CategoryData Category = "data"

	// CategorySecurity covers events relevant to security monitoring and
	// forensics. These additionally feed SIEM systems and alerting.
	CategorySecurity Category = "security"
)

// Severity is the qualitative triage classification of an event.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Resource types with special audit handling.
const (
	ResourceStaff             = "staff_record"
	ResourceServiceRecord     = "service_record"
	ResourceSecurityClearance = "security_clearance"
	ResourceSession           = "session"
)

// Actions. CRUD actions are upper-case; security actions are snake_case
// event names, matching what callers log.
const (
	ActionCreate = "CREATE"
	ActionUpdate = "UPDATE"
	ActionDelete = "DELETE"
	ActionView   = "VIEW"
	ActionList   = "LIST"

	ActionLoginFailed         = "login_failed"
	ActionAccountLocked       = "account_locked"
	ActionRateLimitExceeded   = "rate_limit_exceeded"
	ActionCSRFRejected        = "csrf_rejected"
	ActionThreatDetected      = "security_threat_detected"
	ActionSensitiveDataAccess = "sensitive_data_access"
)

// Event is one audit trail entry. Events are append-only: they are never
// updated or deleted after creation; a correction is a new event whose
// CorrectsID references the original.
type Event struct {
	ID        id.EventID
	Category  Category
	Timestamp time.Time

	ActorID   id.ActorID
	SessionID id.SessionID
	IPAddress string
	UserAgent string
	RequestID string

	ResourceType string
	ResourceID   string
	Action       string
	FieldName    string
	OldValue     string
	NewValue     string

	// Failed marks events describing an operation that did not succeed
	// (denied, rejected, errored). It feeds the risk score.
	Failed bool

	// Details carries free-form context for security events.
	Details string

	// CorrectsID references the event this entry corrects, if any.
	CorrectsID id.EventID

	Severity  Severity
	RiskScore int
}

// Store is an append-only sink for audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
}
