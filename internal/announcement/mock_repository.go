package announcement

import (
	"context"
	"sort"
	"sync"

	"announcebot-api/internal/common"
)

// MockRepository is an in-memory Repository for tests
type MockRepository struct {
	mu        sync.Mutex
	items     map[common.ID]Announcement
	listError error
}

// NewMockRepository creates an in-memory repository seeded with items
func NewMockRepository(items ...Announcement) *MockRepository {
	m := &MockRepository{items: make(map[common.ID]Announcement)}
	for _, a := range items {
		m.items[a.ID] = a
	}
	return m
}

func (m *MockRepository) ListAll(_ context.Context) ([]Announcement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.listError != nil {
		return nil, m.listError
	}
	items := make([]Announcement, 0, len(m.items))
	for _, a := range m.items {
		items = append(items, a)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.Before(items[j].CreatedAt) })
	return items, nil
}

func (m *MockRepository) Create(_ context.Context, a *Announcement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[a.ID] = *a
	return nil
}

func (m *MockRepository) Delete(_ context.Context, id common.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.items[id]; !ok {
		return ErrNotFound
	}
	delete(m.items, id)
	return nil
}

// SetListError makes ListAll fail with err
func (m *MockRepository) SetListError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listError = err
}
