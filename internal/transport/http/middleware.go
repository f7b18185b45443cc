package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/google/uuid"

	id "garrison/pkg/domain"
	dErrors "garrison/pkg/domain-errors"
	audit "garrison/pkg/platform/audit"
	"garrison/pkg/platform/httputil"
	"garrison/pkg/requestcontext"
)

// csrfHeader carries the token the client got from the issue endpoint.
const csrfHeader = "X-CSRF-Token"

// SecurityAuditor records security-category audit events. Satisfied by the
// audit recorder.
type SecurityAuditor interface {
	RecordSecurity(ctx context.Context, action, resourceType, resourceID, details string, failed bool) (audit.Event, error)
}

// Recovery converts panics into 500 responses with a logged stack trace.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.ErrorContext(r.Context(), "panic recovered",
						"panic", rec,
						"path", r.URL.Path,
						"stack", string(debug.Stack()),
					)
					httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "internal error"))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// RequestID stamps a correlation ID on the context and response, honoring an
// inbound X-Request-ID when present.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)
		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// CSRFVerifier is the subset of the CSRF guard the middleware needs.
type CSRFVerifier interface {
	Verify(ctx context.Context, sessionID id.SessionID, token string) (bool, error)
}

// RequireCSRF rejects state-changing requests whose token does not match the
// session's issued token. Rejections land on the audit trail.
func RequireCSRF(guard CSRFVerifier, auditor SecurityAuditor, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			sessionID := requestcontext.SessionID(ctx)

			ok, err := guard.Verify(ctx, sessionID, r.Header.Get(csrfHeader))
			if err != nil {
				logger.ErrorContext(ctx, "csrf verification failed",
					"request_id", requestcontext.RequestID(ctx),
					"error", err,
				)
				httputil.WriteError(w, err)
				return
			}
			if !ok {
				logger.WarnContext(ctx, "csrf token mismatch",
					"request_id", requestcontext.RequestID(ctx),
					"path", r.URL.Path,
				)
				if auditor != nil {
					_, _ = auditor.RecordSecurity(ctx, audit.ActionCSRFRejected,
						audit.ResourceSession, sessionID.String(), r.URL.Path, true)
				}
				httputil.WriteError(w, dErrors.New(dErrors.CodeCSRFMismatch, "missing or invalid CSRF token"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
