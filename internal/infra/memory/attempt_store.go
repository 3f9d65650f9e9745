package memory

import (
	"context"
	"strings"
	"sync"
)

// AttemptStore is an in-memory implementation of app.AttemptTracker.
type AttemptStore struct {
	mu       sync.Mutex
	attempts map[string]int
}

func NewAttemptStore() *AttemptStore {
	return &AttemptStore{
		attempts: make(map[string]int),
	}
}

func (s *AttemptStore) Attempts(_ context.Context, email string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts[key(email)], nil
}

func (s *AttemptStore) Increment(_ context.Context, email string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key(email)
	s.attempts[k]++
	return s.attempts[k], nil
}

// Seed sets the count for email, mainly for tests and imports.
func (s *AttemptStore) Seed(email string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts[key(email)] = n
}

func key(email string) string {
	return strings.TrimSpace(email)
}
