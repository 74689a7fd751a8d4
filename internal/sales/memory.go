package sales

import (
	"context"
	"slices"
	"sync"
)

// MemoryStore keeps sales per user in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[string][]Sale
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[string][]Sale)}
}

// ReadAll returns a copy of the user's sales in insertion order.
func (m *MemoryStore) ReadAll(_ context.Context, userID string) ([]Sale, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := slices.Clone(m.users[userID])
	if out == nil {
		out = []Sale{}
	}
	return out, nil
}

// Insert appends a sale, replacing any sale with the same id.
func (m *MemoryStore) Insert(_ context.Context, userID string, s Sale) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.users[userID]
	for i := range list {
		if list[i].ID == s.ID {
			list[i] = s
			return nil
		}
	}
	m.users[userID] = append(list, s)
	return nil
}

// Delete removes the sale stored under id.
func (m *MemoryStore) Delete(_ context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.users[userID]
	idx := slices.IndexFunc(list, func(s Sale) bool { return s.ID == id })
	if idx < 0 {
		return ErrNotFound
	}
	m.users[userID] = slices.Delete(list, idx, idx+1)
	return nil
}
