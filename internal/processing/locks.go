package processing

import (
	"sync"

	"github.com/google/uuid"
)

// keyedLocks serializes mutations per document so a progress update racing a
// completion for the same document cannot interleave read-modify-write
// cycles. Locks are created on demand and never freed; the map is bounded by
// the number of documents a single process touches between restarts.
type keyedLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func newKeyedLocks() *keyedLocks {
	return &keyedLocks{
		locks: make(map[uuid.UUID]*sync.Mutex),
	}
}

func (k *keyedLocks) lock(id uuid.UUID) func() {
	k.mu.Lock()
	m, ok := k.locks[id]
	if !ok {
		m = &sync.Mutex{}
		k.locks[id] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
