package mocks

import (
	"context"
	"database/sql"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/simple-todos/internal/domain"
	"github.com/phrazzld/simple-todos/internal/store"
)

// MockUserStore implements store.UserStore for testing
type MockUserStore struct {
	// Function fields for customizable behavior
	CreateFn        func(ctx context.Context, user *domain.User) error
	GetByUsernameFn func(ctx context.Context, username string) (*domain.User, error)
	GetByIDFn       func(ctx context.Context, id uuid.UUID) (*domain.User, error)

	mu sync.Mutex
	// Data for default implementation, keyed by username
	Users       map[string]*domain.User
	LastUserID  uuid.UUID
	CreateError error
}

// NewMockUserStore creates a new mock store with initialized defaults
func NewMockUserStore() *MockUserStore {
	return &MockUserStore{
		Users: make(map[string]*domain.User),
	}
}

var _ store.UserStore = (*MockUserStore)(nil)

// Create implements the UserStore interface. The default implementation
// stores the plaintext password as the hash.
func (m *MockUserStore) Create(ctx context.Context, user *domain.User) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, user)
	}
	if m.CreateError != nil {
		return m.CreateError
	}
	if err := user.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.Users[user.Username]; exists {
		return store.ErrUsernameExists
	}

	user.HashedPassword = user.Password
	user.Password = ""
	stored := *user
	m.Users[user.Username] = &stored
	m.LastUserID = user.ID
	return nil
}

// GetByUsername implements the UserStore interface
func (m *MockUserStore) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	if m.GetByUsernameFn != nil {
		return m.GetByUsernameFn(ctx, username)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	user, exists := m.Users[username]
	if !exists {
		return nil, store.ErrUserNotFound
	}
	c := *user
	return &c, nil
}

// GetByID implements the UserStore interface
func (m *MockUserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.Users {
		if user.ID == id {
			c := *user
			return &c, nil
		}
	}
	return nil, store.ErrUserNotFound
}

// WithTx implements the UserStore interface
func (m *MockUserStore) WithTx(tx *sql.Tx) store.UserStore {
	return m
}
