// Package memory implements the attempt store as an in-process fixed-window
// counter. Suitable for single-instance deployments; use the Redis store when
// counters must be shared.
package memory

import (
	"context"
	"sync"
	"time"

	"garrison/internal/ratelimit/models"
	"garrison/pkg/requestcontext"
)

// Store tracks fixed-window counters keyed by (action, identifier).
//
// This is deliberately a fixed window, not the sliding window a token bucket
// would give: the counter resets exactly at the window boundary, and denied
// attempts neither increment the count nor extend the window.
type Store struct {
	mu      sync.RWMutex
	windows map[string]*window
}

type window struct {
	mu    sync.Mutex
	state models.AttemptState
}

// New creates an empty in-memory attempt store.
func New() *Store {
	return &Store{windows: make(map[string]*window)}
}

// Attempt applies one attempt against the (action, identifier) counter.
// Time comes from the request context so tests can pin the clock.
func (s *Store) Attempt(ctx context.Context, action, identifier string, max int, windowDur time.Duration) (*models.Result, error) {
	now := requestcontext.Now(ctx)
	w := s.getOrCreate(action, identifier)

	// Per-key lock: distinct keys never contend.
	w.mu.Lock()
	defer w.mu.Unlock()

	state := &w.state
	if state.Count == 0 || now.Sub(state.WindowStart) > windowDur {
		state.Count = 1
		state.WindowStart = now
		return &models.Result{
			Allowed:   true,
			Remaining: max - 1,
			ResetAt:   now.Add(windowDur),
			Limit:     max,
		}, nil
	}

	if state.Count < max {
		state.Count++
		return &models.Result{
			Allowed:   true,
			Remaining: max - state.Count,
			ResetAt:   state.WindowStart.Add(windowDur),
			Limit:     max,
		}, nil
	}

	// Limited: the blocked attempt is not counted, so the window is not
	// extended by hammering a closed door.
	return &models.Result{
		Allowed:   false,
		Remaining: 0,
		ResetAt:   state.WindowStart.Add(windowDur),
		Limit:     max,
	}, nil
}

// Reset clears the counter for a key.
func (s *Store) Reset(_ context.Context, action, identifier string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.windows, models.Key(action, identifier))
	return nil
}

// Peek returns a copy of the current state, or nil when no attempt has been
// recorded for the key.
func (s *Store) Peek(_ context.Context, action, identifier string) (*models.AttemptState, error) {
	s.mu.RLock()
	w, ok := s.windows[models.Key(action, identifier)]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	state := w.state
	return &state, nil
}

func (s *Store) getOrCreate(action, identifier string) *window {
	key := models.Key(action, identifier)

	s.mu.RLock()
	w, ok := s.windows[key]
	s.mu.RUnlock()
	if ok {
		return w
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if w, ok = s.windows[key]; ok {
		return w
	}
	w = &window{state: models.AttemptState{Action: action, Identifier: identifier}}
	s.windows[key] = w
	return w
}
