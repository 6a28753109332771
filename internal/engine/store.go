package engine

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// ErrUnitNotFound is returned by Store.Get for unknown keys.
var ErrUnitNotFound = errors.New("unit not found")

// Store persists units between sessions. Implementations must be safe for
// concurrent use.
type Store interface {
	Get(ctx context.Context, key string) (*Unit, error)
	Put(ctx context.Context, u *Unit) error
	List(ctx context.Context) ([]*Unit, error)
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	Close() error
}

// MemoryStore keeps units for the lifetime of the process.
type MemoryStore struct {
	mu    sync.RWMutex
	units map[string]*Unit
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{units: make(map[string]*Unit)}
}

func (m *MemoryStore) Get(_ context.Context, key string) (*Unit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.units[key]
	if !ok {
		return nil, ErrUnitNotFound
	}
	c := *u
	return &c, nil
}

func (m *MemoryStore) Put(_ context.Context, u *Unit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *u
	m.units[u.Key] = &c
	return nil
}

func (m *MemoryStore) List(_ context.Context) ([]*Unit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Unit, 0, len(m.units))
	for _, u := range m.units {
		c := *u
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.units, key)
	return nil
}

func (m *MemoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.units = make(map[string]*Unit)
	return nil
}

func (m *MemoryStore) Close() error { return nil }
