package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	id "garrison/pkg/domain"
	dErrors "garrison/pkg/domain-errors"
	"garrison/pkg/platform/httputil"
	"garrison/pkg/requestcontext"
)

// CSRFIssuer is the subset of the CSRF guard the session handler needs.
type CSRFIssuer interface {
	Issue(ctx context.Context, sessionID id.SessionID) (string, error)
	Rotate(ctx context.Context, sessionID id.SessionID) (string, error)
}

// SessionHandler serves per-session CSRF tokens.
type SessionHandler struct {
	guard  CSRFIssuer
	logger *slog.Logger
}

// NewSessionHandler creates the handler.
func NewSessionHandler(guard CSRFIssuer, logger *slog.Logger) (*SessionHandler, error) {
	if guard == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "csrf guard is required")
	}
	return &SessionHandler{guard: guard, logger: logger}, nil
}

type csrfTokenResponse struct {
	CSRFToken string `json:"csrf_token"`
}

// HandleIssueCSRF returns the session's CSRF token, minting one on first
// call. Idempotent until rotation.
func (h *SessionHandler) HandleIssueCSRF(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	token, err := h.guard.Issue(ctx, requestcontext.SessionID(ctx))
	if err != nil {
		h.logger.ErrorContext(ctx, "csrf issue failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, csrfTokenResponse{CSRFToken: token})
}

// HandleRotateCSRF replaces the session's CSRF token, invalidating the old
// one.
func (h *SessionHandler) HandleRotateCSRF(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	token, err := h.guard.Rotate(ctx, requestcontext.SessionID(ctx))
	if err != nil {
		h.logger.ErrorContext(ctx, "csrf rotate failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, csrfTokenResponse{CSRFToken: token})
}
