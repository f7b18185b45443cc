package memory

import (
	"context"
	"sync"

	id "garrison/pkg/domain"
	audit "garrison/pkg/platform/audit"
)

// Store keeps audit events in memory. Append-only: nothing here can modify
// or remove an event once written. Intended for tests and single-process use.
type Store struct {
	mu     sync.RWMutex
	events []audit.Event
}

func New() *Store {
	return &Store{}
}

func (s *Store) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// ListByActor returns all events recorded for one actor, oldest first.
func (s *Store) ListByActor(_ context.Context, actorID id.ActorID) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []audit.Event
	for _, event := range s.events {
		if event.ActorID == actorID {
			out = append(out, event)
		}
	}
	return out, nil
}

// ListRecent returns the most recent N events, oldest first. A limit below
// one yields an empty slice.
func (s *Store) ListRecent(_ context.Context, limit int) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit < 0 {
		limit = 0
	}
	start := len(s.events) - limit
	if start < 0 {
		start = 0
	}
	return append([]audit.Event{}, s.events[start:]...), nil
}

// Len reports how many events have been appended. Test helper.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}
