package repository

import (
	"context"
	"sync"
	"time"
)

// MemoryIdempotencyStore is the in-process fallback used when Redis is
// unavailable. Entries expire lazily on access.
type MemoryIdempotencyStore struct {
	mu   sync.Mutex
	seen map[string]time.Time
	ttl  time.Duration
}

func NewMemoryIdempotencyStore(ttl time.Duration) *MemoryIdempotencyStore {
	return &MemoryIdempotencyStore{
		seen: make(map[string]time.Time),
		ttl:  ttl,
	}
}

func (m *MemoryIdempotencyStore) Seen(_ context.Context, eventID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	expires, ok := m.seen[eventID]
	return ok && time.Now().Before(expires), nil
}

func (m *MemoryIdempotencyStore) FirstDelivery(_ context.Context, eventID string) (bool, error) {
	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	if expires, ok := m.seen[eventID]; ok && now.Before(expires) {
		return false, nil
	}

	m.seen[eventID] = now.Add(m.ttl)

	// Opportunistic cleanup keeps the map bounded.
	if len(m.seen) > 4096 {
		for id, expires := range m.seen {
			if now.After(expires) {
				delete(m.seen, id)
			}
		}
	}

	return true, nil
}
