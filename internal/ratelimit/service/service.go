// Package service enforces per-action attempt limits for mutation endpoints.
package service

import (
	"context"
	"log/slog"
	"time"

	"garrison/internal/ratelimit/metrics"
	"garrison/internal/ratelimit/models"
	"garrison/internal/ratelimit/observability"
	dErrors "garrison/pkg/domain-errors"
	audit "garrison/pkg/platform/audit"
)

// Store is the attempt counter backend. Implementations are the in-memory
// fixed-window store and the Redis store.
type Store interface {
	Attempt(ctx context.Context, action, identifier string, max int, window time.Duration) (*models.Result, error)
	Reset(ctx context.Context, action, identifier string) error
}

// Limit is the attempt budget for one action.
type Limit struct {
	MaxAttempts int
	Window      time.Duration
}

const (
	defaultMaxAttempts = 10
	defaultWindow      = 5 * time.Minute
)

// Service applies fixed-window rate limits and records denials on the audit
// trail.
type Service struct {
	store   Store
	logger  *slog.Logger
	metrics *metrics.Metrics
	auditor observability.Auditor

	defaultLimit Limit
	limits       map[string]Limit
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithAuditor records denials on the audit trail.
func WithAuditor(a observability.Auditor) Option {
	return func(s *Service) { s.auditor = a }
}

// WithDefaultLimit overrides the budget applied to actions without an
// explicit limit.
func WithDefaultLimit(maxAttempts int, window time.Duration) Option {
	return func(s *Service) {
		if maxAttempts > 0 && window > 0 {
			s.defaultLimit = Limit{MaxAttempts: maxAttempts, Window: window}
		}
	}
}

// WithLimit sets the budget for a specific action.
func WithLimit(action string, maxAttempts int, window time.Duration) Option {
	return func(s *Service) {
		if maxAttempts > 0 && window > 0 {
			s.limits[action] = Limit{MaxAttempts: maxAttempts, Window: window}
		}
	}
}

// New creates a rate limit service backed by the given store.
func New(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "attempt store is required")
	}
	s := &Service{
		store:        store,
		logger:       slog.Default(),
		defaultLimit: Limit{MaxAttempts: defaultMaxAttempts, Window: defaultWindow},
		limits:       make(map[string]Limit),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Attempt applies one attempt for the (action, identifier) pair. A denied
// attempt returns a Result with Allowed false and no error; errors are
// reserved for store failures.
func (s *Service) Attempt(ctx context.Context, action, identifier string) (*models.Result, error) {
	limit := s.limitFor(action)

	result, err := s.store.Attempt(ctx, action, identifier, limit.MaxAttempts, limit.Window)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "check rate limit")
	}

	if s.metrics != nil {
		s.metrics.ObserveAttempt(action, result.Allowed)
	}

	if !result.Allowed {
		observability.LogAudit(ctx, s.logger, s.auditor, audit.ActionRateLimitExceeded,
			"identifier", identifier,
			"action", action,
			"reason", "attempt limit reached",
			"limit", limit.MaxAttempts,
			"reset_at", result.ResetAt,
		)
	}

	return result, nil
}

// Reset clears the counter for the pair, e.g. after a successful login.
func (s *Service) Reset(ctx context.Context, action, identifier string) error {
	if err := s.store.Reset(ctx, action, identifier); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "reset rate limit")
	}
	return nil
}

func (s *Service) limitFor(action string) Limit {
	if limit, ok := s.limits[action]; ok {
		return limit
	}
	return s.defaultLimit
}
