package breaker

import (
	"context"
	"sync"
	"time"
)

// Snapshot is the persisted state of one named circuit.
type Snapshot struct {
	State        State      `json:"state"`
	FailureCount int        `json:"failure_count"`
	OpenedAt     *time.Time `json:"opened_at,omitempty"`
}

// Store persists circuit state. A process-local store is fine for a single
// worker; deployments running multiple workers against the same dependency
// should use a shared store so every worker observes one consistent circuit.
type Store interface {
	// Get returns the snapshot for name, or a closed snapshot if none exists.
	Get(ctx context.Context, name string) (Snapshot, error)
	// Set replaces the snapshot for name.
	Set(ctx context.Context, name string, snap Snapshot) error
}

type memoryStore struct {
	mu    sync.RWMutex
	snaps map[string]Snapshot
}

// NewMemoryStore creates a process-local in-memory Store.
func NewMemoryStore() Store {
	return &memoryStore{
		snaps: make(map[string]Snapshot),
	}
}

func (s *memoryStore) Get(_ context.Context, name string) (Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.snaps[name]
	if !ok {
		return Snapshot{State: StateClosed}, nil
	}
	return snap, nil
}

func (s *memoryStore) Set(_ context.Context, name string, snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snaps[name] = snap
	return nil
}
