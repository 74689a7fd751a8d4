package profile

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps profiles in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	profiles map[string]Profile
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{profiles: make(map[string]Profile)}
}

// Get returns the stored profile.
func (m *MemoryStore) Get(_ context.Context, userID string) (Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.profiles[userID]
	if !ok {
		return Profile{}, ErrNotFound
	}
	return p, nil
}

// Merge applies patch to the stored profile, creating it when absent.
func (m *MemoryStore) Merge(_ context.Context, userID string, patch Patch, now time.Time) (Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.profiles[userID]
	if !ok {
		current = Profile{UserID: userID}
	}
	updated := patch.Apply(current, now)
	m.profiles[userID] = updated
	return updated, nil
}
