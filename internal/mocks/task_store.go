package mocks

import (
	"context"
	"database/sql"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/simple-todos/internal/domain"
	"github.com/phrazzld/simple-todos/internal/store"
)

// MockTaskStore implements store.TaskStore for testing.
// Without function overrides it behaves like an in-memory store.
type MockTaskStore struct {
	CreateFn          func(ctx context.Context, task *domain.Task) error
	GetForUpdateFn    func(ctx context.Context, id uuid.UUID) (*domain.Task, error)
	SetCheckedFn      func(ctx context.Context, id uuid.UUID, checked bool) error
	SetPrivateFn      func(ctx context.Context, id uuid.UUID, private bool) error
	DeleteFn          func(ctx context.Context, id uuid.UUID) error
	FindVisibleFn     func(ctx context.Context, viewer uuid.UUID, filter store.TaskFilter) ([]*domain.Task, error)
	CountIncompleteFn func(ctx context.Context, owner uuid.UUID) (int, error)

	mu        sync.Mutex
	Tasks     map[uuid.UUID]*domain.Task
	TxCount   int // number of WithTx calls
	LockCount int // number of GetForUpdate calls
}

// NewMockTaskStore creates an empty mock store.
func NewMockTaskStore(tasks ...*domain.Task) *MockTaskStore {
	m := &MockTaskStore{Tasks: make(map[uuid.UUID]*domain.Task)}
	for _, t := range tasks {
		m.Tasks[t.ID] = copyTask(t)
	}
	return m
}

var _ store.TaskStore = (*MockTaskStore)(nil)

func copyTask(t *domain.Task) *domain.Task {
	c := *t
	return &c
}

// Create implements store.TaskStore.
func (m *MockTaskStore) Create(ctx context.Context, task *domain.Task) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, task)
	}
	if err := task.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Tasks[task.ID] = copyTask(task)
	return nil
}

// GetForUpdate implements store.TaskStore. It counts calls but takes no lock.
func (m *MockTaskStore) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	m.mu.Lock()
	m.LockCount++
	m.mu.Unlock()
	if m.GetForUpdateFn != nil {
		return m.GetForUpdateFn(ctx, id)
	}
	if task := m.Get(id); task != nil {
		return task, nil
	}
	return nil, store.ErrTaskNotFound
}

// SetChecked implements store.TaskStore.
func (m *MockTaskStore) SetChecked(ctx context.Context, id uuid.UUID, checked bool) error {
	if m.SetCheckedFn != nil {
		return m.SetCheckedFn(ctx, id, checked)
	}
	return m.update(id, func(t *domain.Task) { t.Checked = checked })
}

// SetPrivate implements store.TaskStore.
func (m *MockTaskStore) SetPrivate(ctx context.Context, id uuid.UUID, private bool) error {
	if m.SetPrivateFn != nil {
		return m.SetPrivateFn(ctx, id, private)
	}
	return m.update(id, func(t *domain.Task) { t.Private = private })
}

func (m *MockTaskStore) update(id uuid.UUID, fn func(*domain.Task)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.Tasks[id]
	if !ok {
		return store.ErrTaskNotFound
	}
	fn(task)
	task.Version++
	return nil
}

// Delete implements store.TaskStore.
func (m *MockTaskStore) Delete(ctx context.Context, id uuid.UUID) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Tasks[id]; !ok {
		return store.ErrTaskNotFound
	}
	delete(m.Tasks, id)
	return nil
}

// FindVisible implements store.TaskStore.
func (m *MockTaskStore) FindVisible(
	ctx context.Context,
	viewer uuid.UUID,
	filter store.TaskFilter,
) ([]*domain.Task, error) {
	if m.FindVisibleFn != nil {
		return m.FindVisibleFn(ctx, viewer, filter)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	tasks := make([]*domain.Task, 0, len(m.Tasks))
	for _, t := range m.Tasks {
		if t.Private && t.Owner != viewer {
			continue
		}
		if filter.HideCompleted && t.Checked {
			continue
		}
		tasks = append(tasks, copyTask(t))
	}
	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
	})
	return tasks, nil
}

// CountIncomplete implements store.TaskStore.
func (m *MockTaskStore) CountIncomplete(ctx context.Context, owner uuid.UUID) (int, error) {
	if m.CountIncompleteFn != nil {
		return m.CountIncompleteFn(ctx, owner)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, t := range m.Tasks {
		if t.Owner == owner && !t.Checked {
			count++
		}
	}
	return count, nil
}

// WithTx implements store.TaskStore. The mock shares its state with the
// returned store.
func (m *MockTaskStore) WithTx(tx *sql.Tx) store.TaskStore {
	m.mu.Lock()
	m.TxCount++
	m.mu.Unlock()
	return m
}

// Get returns a copy of the stored task, or nil.
func (m *MockTaskStore) Get(id uuid.UUID) *domain.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.Tasks[id]; ok {
		return copyTask(t)
	}
	return nil
}
