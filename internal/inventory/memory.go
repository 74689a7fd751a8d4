package inventory

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process observable product collection. It backs
// tests and the memory store driver. Each user's listeners receive snapshots
// in write order.
type MemoryStore struct {
	mu      sync.RWMutex
	users   map[string]*memoryCollection
	nextSub int
	clock   func() time.Time
	// FailWrites is consulted before each write; a non-nil error aborts it.
	FailWrites func(key string) error
}

type memoryCollection struct {
	order     []string
	items     map[string]Product
	version   uint64
	listeners map[int]*memoryListener
	// pending holds deliveries not yet handed to listeners. Only the writer
	// that set dispatching drains it.
	pending     []memoryDelivery
	dispatching bool
}

type memoryListener struct {
	fn    func([]Product)
	since uint64
}

// memoryDelivery carries the snapshot of version. A non-zero target limits
// it to one listener.
type memoryDelivery struct {
	version  uint64
	snapshot []Product
	target   int
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users: make(map[string]*memoryCollection),
		clock: func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryStore) collection(userID string) *memoryCollection {
	c, ok := s.users[userID]
	if !ok {
		c = &memoryCollection{items: make(map[string]Product), listeners: make(map[int]*memoryListener)}
		s.users[userID] = c
	}
	return c
}

func (c *memoryCollection) snapshot() []Product {
	out := make([]Product, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.items[id])
	}
	return out
}

func (c *memoryCollection) put(id string, p Product) {
	if _, ok := c.items[id]; !ok {
		c.order = append(c.order, id)
	}
	p.ID = id
	c.items[id] = p
}

func (c *memoryCollection) remove(id string) bool {
	if _, ok := c.items[id]; !ok {
		return false
	}
	delete(c.items, id)
	for i, existing := range c.order {
		if existing == id {
			c.order = append(c.order[:i:i], c.order[i+1:]...)
			break
		}
	}
	return true
}

// ReadAll returns the current snapshot for userID.
func (s *MemoryStore) ReadAll(ctx context.Context, userID string) ([]Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.users[userID]
	if !ok {
		return []Product{}, nil
	}
	return c.snapshot(), nil
}

// ListUsers returns every user id that owns at least one product.
func (s *MemoryStore) ListUsers(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := make([]string, 0, len(s.users))
	for id, c := range s.users {
		if len(c.order) > 0 {
			users = append(users, id)
		}
	}
	slices.Sort(users)
	return users, nil
}

// Subscribe delivers the current snapshot and then a snapshot after every
// write to the user's collection.
func (s *MemoryStore) Subscribe(ctx context.Context, userID string, onChange func([]Product)) (func(), error) {
	s.mu.Lock()
	c := s.collection(userID)
	s.nextSub++
	id := s.nextSub
	c.listeners[id] = &memoryListener{fn: onChange, since: c.version}
	c.pending = append(c.pending, memoryDelivery{version: c.version, snapshot: c.snapshot(), target: id})
	drain := s.claimDispatch(c)
	s.mu.Unlock()

	if drain {
		s.dispatch(c)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(c.listeners, id)
			s.mu.Unlock()
		})
	}, nil
}

// Create stores p under a fresh id.
func (s *MemoryStore) Create(ctx context.Context, userID string, p Product) (string, error) {
	id := uuid.NewString()
	if err := s.write(userID, id, func(c *memoryCollection) error {
		c.put(id, p)
		return nil
	}); err != nil {
		return "", err
	}
	return id, nil
}

// Update merges patch into the product stored under id.
func (s *MemoryStore) Update(ctx context.Context, userID, id string, patch Patch) (Product, error) {
	var updated Product
	err := s.write(userID, id, func(c *memoryCollection) error {
		existing, ok := c.items[id]
		if !ok {
			return ErrNotFound
		}
		updated = patch.Apply(existing, s.clock())
		c.put(id, updated)
		return nil
	})
	return updated, err
}

// Delete removes the product stored under id.
func (s *MemoryStore) Delete(ctx context.Context, userID, id string) error {
	return s.write(userID, id, func(c *memoryCollection) error {
		if !c.remove(id) {
			return ErrNotFound
		}
		return nil
	})
}

// WriteAt replaces whatever is stored under key with p.
func (s *MemoryStore) WriteAt(ctx context.Context, userID, key string, p Product) error {
	if !ValidKey(key) {
		return ErrInvalidKey
	}
	return s.write(userID, key, func(c *memoryCollection) error {
		c.put(key, p)
		return nil
	})
}

func (s *MemoryStore) write(userID, key string, fn func(*memoryCollection) error) error {
	if s.FailWrites != nil {
		if err := s.FailWrites(key); err != nil {
			return err
		}
	}
	s.mu.Lock()
	c := s.collection(userID)
	if err := fn(c); err != nil {
		s.mu.Unlock()
		return err
	}
	c.version++
	c.pending = append(c.pending, memoryDelivery{version: c.version, snapshot: c.snapshot()})
	drain := s.claimDispatch(c)
	s.mu.Unlock()

	if drain {
		s.dispatch(c)
	}
	return nil
}

// claimDispatch reports whether the caller must drain c's queue. Callers
// hold s.mu.
func (s *MemoryStore) claimDispatch(c *memoryCollection) bool {
	if c.dispatching {
		return false
	}
	c.dispatching = true
	return true
}

// dispatch hands queued deliveries to listeners in queue order without
// holding the lock, so listeners may read or write the store.
func (s *MemoryStore) dispatch(c *memoryCollection) {
	for {
		s.mu.Lock()
		if len(c.pending) == 0 {
			c.dispatching = false
			s.mu.Unlock()
			return
		}
		d := c.pending[0]
		c.pending[0] = memoryDelivery{}
		c.pending = c.pending[1:]
		var targets []func([]Product)
		if d.target != 0 {
			if l, ok := c.listeners[d.target]; ok {
				targets = append(targets, l.fn)
			}
		} else {
			for _, l := range c.listeners {
				if l.since < d.version {
					targets = append(targets, l.fn)
				}
			}
		}
		s.mu.Unlock()

		for _, fn := range targets {
			fn(slices.Clone(d.snapshot))
		}
	}
}

// ValidKey reports whether key can address a record: non-empty and free of
// path separators and reserved characters.
func ValidKey(key string) bool {
	if strings.TrimSpace(key) == "" {
		return false
	}
	return !strings.ContainsAny(key, "/.#$[]")
}
