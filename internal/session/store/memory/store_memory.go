// Package memory implements the CSRF token store as an in-process map.
package memory

import (
	"context"
	"sync"

	id "garrison/pkg/domain"
	"garrison/pkg/platform/sentinel"
)

// Store keeps one token per session in memory. Single-instance only; tokens
// do not survive a restart, which simply forces re-issue.
type Store struct {
	mu     sync.RWMutex
	tokens map[id.SessionID]string
}

// New creates an empty token store.
func New() *Store {
	return &Store{tokens: make(map[id.SessionID]string)}
}

func (s *Store) PutIfAbsent(_ context.Context, sessionID id.SessionID, token string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.tokens[sessionID]; ok {
		return existing, nil
	}
	s.tokens[sessionID] = token
	return token, nil
}

func (s *Store) Replace(_ context.Context, sessionID id.SessionID, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[sessionID] = token
	return nil
}

func (s *Store) Get(_ context.Context, sessionID id.SessionID) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	token, ok := s.tokens[sessionID]
	if !ok {
		return "", sentinel.ErrNotFound
	}
	return token, nil
}

func (s *Store) Delete(_ context.Context, sessionID id.SessionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, sessionID)
	return nil
}
