package user

import (
	"context"
	"sort"
	"sync"
)

// MockRepository is an in-memory Repository for tests. It is safe for
// concurrent use and honours the insert-if-absent contract.
type MockRepository struct {
	mu          sync.Mutex
	users       map[int64]User
	getError    error
	insertError error
	deleteError error
	listError   error
}

// NewMockRepository creates an empty in-memory repository
func NewMockRepository() *MockRepository {
	return &MockRepository{users: make(map[int64]User)}
}

func (m *MockRepository) Get(_ context.Context, chatID int64) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.getError != nil {
		return nil, m.getError
	}
	u, ok := m.users[chatID]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (m *MockRepository) InsertIfAbsent(_ context.Context, u *User) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.insertError != nil {
		return false, m.insertError
	}
	if _, ok := m.users[u.ChatID]; ok {
		return false, nil
	}
	m.users[u.ChatID] = *u
	return true, nil
}

func (m *MockRepository) Delete(_ context.Context, chatID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.deleteError != nil {
		return false, m.deleteError
	}
	if _, ok := m.users[chatID]; !ok {
		return false, nil
	}
	delete(m.users, chatID)
	return true, nil
}

func (m *MockRepository) ListAll(_ context.Context) ([]User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.listError != nil {
		return nil, m.listError
	}
	users := make([]User, 0, len(m.users))
	for _, u := range m.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ChatID < users[j].ChatID })
	return users, nil
}

// Put stores u directly, bypassing insert-if-absent
func (m *MockRepository) Put(u User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ChatID] = u
}

// Count returns the number of stored users
func (m *MockRepository) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users)
}

// SetGetError makes Get fail with err
func (m *MockRepository) SetGetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getError = err
}

// SetInsertError makes InsertIfAbsent fail with err
func (m *MockRepository) SetInsertError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.insertError = err
}

// SetDeleteError makes Delete fail with err
func (m *MockRepository) SetDeleteError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteError = err
}

// SetListError makes ListAll fail with err
func (m *MockRepository) SetListError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listError = err
}
