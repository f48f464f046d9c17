package auth

import (
	"context"
	"sync"
)

// NewInMemorySessionStore returns a SessionStore backed by an in-memory map.
// Accounts must be registered with Add before tokens can be rotated.
func NewInMemorySessionStore() *InMemorySessionStore {
	return &InMemorySessionStore{tokens: make(map[string]string)}
}

// InMemorySessionStore implements SessionStore for tests and local development.
type InMemorySessionStore struct {
	mu     sync.Mutex
	tokens map[string]string
}

// Add registers an account with no stored token.
func (s *InMemorySessionStore) Add(accountID string) {
	s.mu.Lock()
	if _, ok := s.tokens[accountID]; !ok {
		s.tokens[accountID] = ""
	}
	s.mu.Unlock()
}

// Remove forgets the account entirely, as if it were deleted.
func (s *InMemorySessionStore) Remove(accountID string) {
	s.mu.Lock()
	delete(s.tokens, accountID)
	s.mu.Unlock()
}

// Rotate stores refreshToken for the account.
func (s *InMemorySessionStore) Rotate(_ context.Context, accountID, refreshToken string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tokens[accountID]; !ok {
		return ErrSessionNotFound
	}
	s.tokens[accountID] = refreshToken
	return nil
}

// CompareAndRotate swaps in next when the stored token equals presented.
func (s *InMemorySessionStore) CompareAndRotate(_ context.Context, accountID, presented, next string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.tokens[accountID]
	if !ok {
		return ErrSessionNotFound
	}
	if current == "" || current != presented {
		return ErrSessionMismatch
	}
	s.tokens[accountID] = next
	return nil
}

// Clear removes the stored token.
func (s *InMemorySessionStore) Clear(_ context.Context, accountID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tokens[accountID]; !ok {
		return ErrSessionNotFound
	}
	s.tokens[accountID] = ""
	return nil
}

// Current returns the stored token. Useful for tests.
func (s *InMemorySessionStore) Current(accountID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokens[accountID]
}
