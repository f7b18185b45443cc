package testutil

import (
	"net/http"

	id "garrison/pkg/domain"
	"garrison/pkg/requestcontext"
)

// WithActor adds an actor ID to the request context, simulating what the
// auth middleware does for authenticated requests. Invalid IDs are silently
// ignored.
func WithActor(req *http.Request, actorID string) *http.Request {
	if parsed, err := id.ParseActorID(actorID); err == nil {
		return req.WithContext(requestcontext.WithActorID(req.Context(), parsed))
	}
	return req
}

// WithSession adds a session ID to the request context. Invalid IDs are
// silently ignored.
func WithSession(req *http.Request, sessionID string) *http.Request {
	if parsed, err := id.ParseSessionID(sessionID); err == nil {
		return req.WithContext(requestcontext.WithSessionID(req.Context(), parsed))
	}
	return req
}

// WithAuth adds both actor and session IDs to the request context, the
// typical state for an authenticated request.
func WithAuth(req *http.Request, actorID, sessionID string) *http.Request {
	return WithSession(WithActor(req, actorID), sessionID)
}
