package storage

import (
	"context"
	"sync"

	"car-deal-finder/models"
)

// MemoryStore keeps listings in process memory. It honors the same URL
// uniqueness contract as the durable stores but does not survive a restart.
type MemoryStore struct {
	mu    sync.RWMutex
	order []*models.Listing
	byURL map[string]*models.Listing
	byID  map[string]*models.Listing
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byURL: make(map[string]*models.Listing),
		byID:  make(map[string]*models.Listing),
	}
}

func (m *MemoryStore) UpsertIfAbsent(_ context.Context, l *models.Listing) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byURL[l.URL]; exists {
		return false, nil
	}

	stored := l.Clone()
	m.order = append(m.order, stored)
	m.byURL[stored.URL] = stored
	m.byID[stored.ID] = stored
	return true, nil
}

func (m *MemoryStore) All(_ context.Context) ([]*models.Listing, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*models.Listing, 0, len(m.order))
	for _, l := range m.order {
		out = append(out, l.Clone())
	}
	return out, nil
}

func (m *MemoryStore) GetByID(_ context.Context, id string) (*models.Listing, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	l, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return l.Clone(), nil
}

func (m *MemoryStore) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.order), nil
}

func (m *MemoryStore) Close() error { return nil }
