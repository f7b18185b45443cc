// Package httptransport is the thin HTTP layer over the validation, session,
// rate-limit and audit services. Handlers delegate to services; business
// logic stays out of this package.
package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	ratelimitMiddleware "garrison/internal/ratelimit/middleware"
	adminMiddleware "garrison/pkg/platform/middleware/admin"
	authMiddleware "garrison/pkg/platform/middleware/auth"
	"garrison/pkg/platform/middleware/metadata"
	"garrison/pkg/platform/middleware/requesttime"
)

// actions rate-limited per actor.
const (
	ActionStaffMutation = "staff_mutation"
)

// Deps carries everything the router wires together.
type Deps struct {
	Logger       *slog.Logger
	JWTValidator authMiddleware.JWTValidator
	CSRFIssuer   CSRFIssuer
	CSRFVerifier CSRFVerifier
	RateLimiter  *ratelimitMiddleware.Middleware
	Validator    Validator
	Auditor      Auditor
	AuditReader  AuditReader

	// AdminTokenHash is the bcrypt hash of the operator token. Empty
	// disables the admin routes.
	AdminTokenHash string
}

// NewRouter builds the full route tree with the gate chain
// auth -> CSRF -> rate limit in front of mutations.
func NewRouter(deps Deps) (http.Handler, error) {
	staffHandler, err := NewStaffHandler(deps.Validator, deps.Auditor, deps.Logger)
	if err != nil {
		return nil, err
	}
	sessionHandler, err := NewSessionHandler(deps.CSRFIssuer, deps.Logger)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(Recovery(deps.Logger))
	r.Use(RequestID)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Session routes: authenticated, no CSRF (these mint the token).
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware.RequireAuth(deps.JWTValidator, deps.Logger))
		r.Get("/session/csrf", sessionHandler.HandleIssueCSRF)
		r.Post("/session/csrf/rotate", sessionHandler.HandleRotateCSRF)
	})

	// Staff mutations: the full gate chain.
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware.RequireAuth(deps.JWTValidator, deps.Logger))
		r.Use(RequireCSRF(deps.CSRFVerifier, deps.Auditor, deps.Logger))
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.Limit(ActionStaffMutation))
		}
		r.Put("/staff/{staffID}/profile", staffHandler.HandleUpdateProfile)
	})

	// Operator routes: admin token, no session auth.
	if deps.AdminTokenHash != "" {
		adminHandler, err := NewAdminHandler(deps.AuditReader, deps.Auditor, deps.Logger)
		if err != nil {
			return nil, err
		}
		r.Group(func(r chi.Router) {
			r.Use(adminMiddleware.RequireAdminToken(deps.AdminTokenHash, deps.Logger))
			r.Get("/admin/audit/events", adminHandler.HandleListAuditEvents)
		})
	}

	return r, nil
}
