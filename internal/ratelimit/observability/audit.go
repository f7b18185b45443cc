// Package observability provides audit logging helpers for the ratelimit module.
package observability

import (
	"context"
	"log/slog"

	"garrison/pkg/attrs"
	audit "garrison/pkg/platform/audit"
)

// Auditor records security-category audit events. Satisfied by the audit
// recorder.
type Auditor interface {
	RecordSecurity(ctx context.Context, action, resourceType, resourceID, details string, failed bool) (audit.Event, error)
}

// LogAudit logs a security-relevant event to both the structured logger and
// the audit trail. Audit persistence failures are logged, never returned:
// a broken audit store must not turn a denied request into a 500.
func LogAudit(ctx context.Context, logger *slog.Logger, auditor Auditor, event string, attrList ...any) {
	args := append(attrList, "event", event, "log_type", "audit")

	if logger != nil {
		logger.InfoContext(ctx, event, args...)
	}

	if auditor == nil {
		return
	}

	_, err := auditor.RecordSecurity(ctx, event, audit.ResourceSession,
		extractSubject(attrList), extractReason(attrList), true)
	if err != nil && logger != nil {
		logger.ErrorContext(ctx, "audit record failed", "event", event, "error", err)
	}
}

func extractSubject(attrList []any) string {
	for _, key := range []string{"identifier", "ip", "actor_id"} {
		if val := attrs.ExtractString(attrList, key); val != "" {
			return val
		}
	}
	return ""
}

func extractReason(attrList []any) string {
	return attrs.ExtractString(attrList, "reason")
}
