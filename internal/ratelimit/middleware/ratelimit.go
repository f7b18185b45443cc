// Package middleware applies rate limits to HTTP mutation routes.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"garrison/internal/ratelimit/models"
	"garrison/pkg/platform/httputil"
	"garrison/pkg/requestcontext"
)

// Limiter is the subset of the rate limit service the middleware needs.
type Limiter interface {
	Attempt(ctx context.Context, action, identifier string) (*models.Result, error)
}

// Middleware wires the rate limit service into an HTTP chain.
type Middleware struct {
	limiter  Limiter
	logger   *slog.Logger
	disabled bool
}

// Option configures the middleware.
type Option func(*Middleware)

// WithDisabled disables rate limiting entirely (for testing/demo mode).
func WithDisabled(disabled bool) Option {
	return func(m *Middleware) { m.disabled = disabled }
}

// New creates the middleware.
func New(limiter Limiter, logger *slog.Logger, opts ...Option) *Middleware {
	m := &Middleware{limiter: limiter, logger: logger}
	for _, opt := range opts {
		opt(m)
	}
	if m.disabled {
		logger.Info("rate limiting disabled")
	}
	return m
}

// Limit enforces the attempt budget for the given action, keyed by actor
// when authenticated and by client IP otherwise.
//
// The store failing is not the client's fault: on error the request is let
// through rather than denied.
func (m *Middleware) Limit(action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m.disabled {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			identifier := identifierFrom(ctx)
			if identifier == "" {
				next.ServeHTTP(w, r)
				return
			}

			result, err := m.limiter.Attempt(ctx, action, identifier)
			if err != nil {
				m.logger.ErrorContext(ctx, "rate limit check failed",
					"action", action, "error", err)
				next.ServeHTTP(w, r)
				return
			}

			addRateLimitHeaders(w, result)

			if !result.Allowed {
				writeRateLimitExceeded(w, result)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func identifierFrom(ctx context.Context) string {
	if actorID := requestcontext.ActorID(ctx); !actorID.IsNil() {
		return actorID.String()
	}
	return requestcontext.ClientIP(ctx)
}

func addRateLimitHeaders(w http.ResponseWriter, result *models.Result) {
	if result == nil {
		return
	}
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}

func writeRateLimitExceeded(w http.ResponseWriter, result *models.Result) {
	retryAfter := int(time.Until(result.ResetAt).Seconds())
	if retryAfter < 1 {
		retryAfter = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	httputil.WriteJSON(w, http.StatusTooManyRequests, map[string]any{
		"error":       "rate_limit_exceeded",
		"message":     "Too many attempts for this operation. Please try again later.",
		"retry_after": retryAfter,
	})
}
