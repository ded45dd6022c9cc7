package idempotency

import (
	"context"
	"sync"
	"time"
)

type memoryStore struct {
	mu     sync.Mutex
	tokens map[string]time.Time
}

// NewMemoryStore creates a process-local in-memory Store. Expired tokens are
// purged lazily on access.
func NewMemoryStore() Store {
	return &memoryStore{
		tokens: make(map[string]time.Time),
	}
}

func (s *memoryStore) WasUsed(_ context.Context, token string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiry, ok := s.tokens[token]
	if !ok {
		return false, nil
	}

	if time.Now().After(expiry) {
		delete(s.tokens, token)
		return false, nil
	}

	return true, nil
}

func (s *memoryStore) MarkUsed(_ context.Context, token string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tokens[token] = time.Now().Add(ttl)
	return nil
}
