// Package redis implements the CSRF token store on Redis so sessions can be
// verified by any instance.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	id "garrison/pkg/domain"
	"garrison/pkg/platform/sentinel"
)

const keyPrefix = "garrison:csrf:"

// defaultTTL bounds token lifetime so abandoned sessions do not accumulate
// keys. Active sessions re-issue transparently after expiry.
const defaultTTL = 24 * time.Hour

// Store is a Redis-backed CSRF token store.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// Option configures the store.
type Option func(*Store)

// WithTTL overrides the token lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// New creates a Redis token store.
func New(client *redis.Client, opts ...Option) *Store {
	s := &Store{client: client, ttl: defaultTTL}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) PutIfAbsent(ctx context.Context, sessionID id.SessionID, token string) (string, error) {
	key := keyPrefix + sessionID.String()

	set, err := s.client.SetNX(ctx, key, token, s.ttl).Result()
	if err != nil {
		return "", fmt.Errorf("csrf setnx: %w", err)
	}
	if set {
		return token, nil
	}

	existing, err := s.client.Get(ctx, key).Result()
	if err != nil {
		// The token expired between SETNX and GET; retry once with ours.
		if errors.Is(err, redis.Nil) {
			if err := s.Replace(ctx, sessionID, token); err != nil {
				return "", err
			}
			return token, nil
		}
		return "", fmt.Errorf("csrf get: %w", err)
	}
	return existing, nil
}

func (s *Store) Replace(ctx context.Context, sessionID id.SessionID, token string) error {
	key := keyPrefix + sessionID.String()
	if err := s.client.Set(ctx, key, token, s.ttl).Err(); err != nil {
		return fmt.Errorf("csrf set: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, sessionID id.SessionID) (string, error) {
	key := keyPrefix + sessionID.String()
	token, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", sentinel.ErrNotFound
		}
		return "", fmt.Errorf("csrf get: %w", err)
	}
	return token, nil
}

func (s *Store) Delete(ctx context.Context, sessionID id.SessionID) error {
	key := keyPrefix + sessionID.String()
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("csrf del: %w", err)
	}
	return nil
}
