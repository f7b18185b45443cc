// Package csrf issues and verifies per-session CSRF tokens.
//
// The guard holds an explicit token-store handle; there is no package-level
// state, so two guards with different stores can coexist in one process.
package csrf

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"log/slog"

	id "garrison/pkg/domain"
	dErrors "garrison/pkg/domain-errors"
	"garrison/pkg/platform/sentinel"
)

// tokenBytes is the entropy of an issued token; the wire form is its hex
// encoding, 64 characters.
const tokenBytes = 32

// TokenStore persists one token per session.
type TokenStore interface {
	// PutIfAbsent stores the token unless one already exists and returns
	// whichever token is current after the call.
	PutIfAbsent(ctx context.Context, sessionID id.SessionID, token string) (string, error)

	// Replace unconditionally overwrites the session's token.
	Replace(ctx context.Context, sessionID id.SessionID, token string) error

	// Get returns the current token or sentinel.ErrNotFound.
	Get(ctx context.Context, sessionID id.SessionID) (string, error)

	Delete(ctx context.Context, sessionID id.SessionID) error
}

// Guard issues and checks CSRF tokens against a token store.
type Guard struct {
	store  TokenStore
	logger *slog.Logger
}

// Option configures a Guard.
type Option func(*Guard)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Guard) { g.logger = logger }
}

// New creates a Guard backed by the given store.
func New(store TokenStore, opts ...Option) (*Guard, error) {
	if store == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "csrf token store is required")
	}
	g := &Guard{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Issue returns the session's CSRF token, minting one on first call.
// Repeated calls for the same session return the same token until Rotate.
func (g *Guard) Issue(ctx context.Context, sessionID id.SessionID) (string, error) {
	if sessionID.IsNil() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "session id is required")
	}

	token, err := mintToken()
	if err != nil {
		return "", err
	}
	stored, err := g.store.PutIfAbsent(ctx, sessionID, token)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "store csrf token")
	}
	return stored, nil
}

// Verify reports whether the presented token matches the session's issued
// token. Missing or empty on either side is a mismatch, never an error.
func (g *Guard) Verify(ctx context.Context, sessionID id.SessionID, token string) (bool, error) {
	if sessionID.IsNil() || token == "" {
		return false, nil
	}

	issued, err := g.store.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return false, nil
		}
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "load csrf token")
	}
	if issued == "" {
		return false, nil
	}

	return subtle.ConstantTimeCompare([]byte(issued), []byte(token)) == 1, nil
}

// Rotate replaces the session's token, invalidating the previous one.
// Used after privilege changes within a session.
func (g *Guard) Rotate(ctx context.Context, sessionID id.SessionID) (string, error) {
	if sessionID.IsNil() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "session id is required")
	}

	token, err := mintToken()
	if err != nil {
		return "", err
	}
	if err := g.store.Replace(ctx, sessionID, token); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "rotate csrf token")
	}
	return token, nil
}

// Revoke removes the session's token, e.g. on logout.
func (g *Guard) Revoke(ctx context.Context, sessionID id.SessionID) error {
	if err := g.store.Delete(ctx, sessionID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "revoke csrf token")
	}
	return nil
}

func mintToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "generate csrf token")
	}
	return hex.EncodeToString(buf), nil
}
