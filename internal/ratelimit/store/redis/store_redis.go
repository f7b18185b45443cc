// Package redis implements the attempt store on Redis so counters are shared
// across instances.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"garrison/internal/ratelimit/models"
)

const keyPrefix = "garrison:ratelimit:"

// attemptScript implements the fixed-window state machine atomically:
// a fresh or expired key resets to count 1; an active key increments while
// under the limit; a limited key is left untouched so blocked attempts do not
// extend the window.
//
// KEYS[1] = counter key, ARGV[1] = max, ARGV[2] = window millis.
// Returns {allowed, count, ttl_millis}.
var attemptScript = redis.NewScript(`
local count = redis.call('GET', KEYS[1])
if not count then
  redis.call('SET', KEYS[1], 1, 'PX', ARGV[2])
  return {1, 1, tonumber(ARGV[2])}
end
count = tonumber(count)
if count < tonumber(ARGV[1]) then
  count = redis.call('INCR', KEYS[1])
  local ttl = redis.call('PTTL', KEYS[1])
  return {1, count, ttl}
end
local ttl = redis.call('PTTL', KEYS[1])
return {0, count, ttl}
`)

// Store is a Redis-backed fixed-window attempt store.
type Store struct {
	client *redis.Client
}

// New creates a Redis attempt store.
func New(client *redis.Client) *Store {
	return &Store{client: client}
}

// Attempt applies one attempt against the (action, identifier) counter.
// Window expiry is enforced by key TTL, so the reset-at-boundary semantics
// match the in-memory store.
func (s *Store) Attempt(ctx context.Context, action, identifier string, max int, window time.Duration) (*models.Result, error) {
	key := keyPrefix + models.Key(action, identifier)

	raw, err := attemptScript.Run(ctx, s.client, []string{key}, max, window.Milliseconds()).Slice()
	if err != nil {
		return nil, fmt.Errorf("ratelimit attempt script: %w", err)
	}
	if len(raw) != 3 {
		return nil, fmt.Errorf("ratelimit attempt script: unexpected reply %v", raw)
	}

	allowed := toInt64(raw[0]) == 1
	count := int(toInt64(raw[1]))
	ttl := time.Duration(toInt64(raw[2])) * time.Millisecond

	remaining := max - count
	if remaining < 0 {
		remaining = 0
	}
	return &models.Result{
		Allowed:   allowed,
		Remaining: remaining,
		ResetAt:   time.Now().Add(ttl),
		Limit:     max,
	}, nil
}

// Reset clears the counter for a key.
func (s *Store) Reset(ctx context.Context, action, identifier string) error {
	return s.client.Del(ctx, keyPrefix+models.Key(action, identifier)).Err()
}

func toInt64(v any) int64 {
	n, _ := v.(int64)
	return n
}
