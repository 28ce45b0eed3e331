package mocks

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/simple-todos/internal/domain"
	"github.com/phrazzld/simple-todos/internal/service"
	"github.com/phrazzld/simple-todos/internal/store"
)

// MockTaskService is a function-field mock of service.TaskService. Unset
// functions fall back to an in-memory implementation with the same
// ownership rules as the real service.
type MockTaskService struct {
	InsertFn     func(ctx context.Context, caller domain.Caller, text string) (*domain.Task, error)
	RemoveFn     func(ctx context.Context, caller domain.Caller, taskID uuid.UUID) error
	SetCheckedFn func(ctx context.Context, caller domain.Caller, taskID uuid.UUID, checked bool) (*domain.Task, error)
	SetPrivateFn func(ctx context.Context, caller domain.Caller, taskID uuid.UUID, private bool) (*domain.Task, error)
	VisibleFn    func(ctx context.Context, caller domain.Caller, filter store.TaskFilter) (*service.TaskView, error)

	mu    sync.Mutex
	Tasks []*domain.Task
}

var _ service.TaskService = (*MockTaskService)(nil)

// NewMockTaskService creates a mock seeded with tasks.
func NewMockTaskService(tasks ...*domain.Task) *MockTaskService {
	return &MockTaskService{Tasks: tasks}
}

// Insert implements service.TaskService
func (m *MockTaskService) Insert(ctx context.Context, caller domain.Caller, text string) (*domain.Task, error) {
	if m.InsertFn != nil {
		return m.InsertFn(ctx, caller, text)
	}
	if !caller.IsAuthenticated() {
		return nil, domain.ErrNotAuthorized
	}
	task, err := domain.NewTask(caller, text)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.Tasks = append([]*domain.Task{task}, m.Tasks...)
	return task, nil
}

// Remove implements service.TaskService
func (m *MockTaskService) Remove(ctx context.Context, caller domain.Caller, taskID uuid.UUID) error {
	if m.RemoveFn != nil {
		return m.RemoveFn(ctx, caller, taskID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for i, t := range m.Tasks {
		if t.ID != taskID {
			continue
		}
		if !caller.Owns(t) {
			return domain.ErrNotAuthorized
		}
		m.Tasks = append(m.Tasks[:i], m.Tasks[i+1:]...)
		return nil
	}
	return store.ErrTaskNotFound
}

// SetChecked implements service.TaskService
func (m *MockTaskService) SetChecked(
	ctx context.Context,
	caller domain.Caller,
	taskID uuid.UUID,
	checked bool,
) (*domain.Task, error) {
	if m.SetCheckedFn != nil {
		return m.SetCheckedFn(ctx, caller, taskID, checked)
	}
	return m.update(caller, taskID, func(t *domain.Task) { t.Checked = checked })
}

// SetPrivate implements service.TaskService
func (m *MockTaskService) SetPrivate(
	ctx context.Context,
	caller domain.Caller,
	taskID uuid.UUID,
	private bool,
) (*domain.Task, error) {
	if m.SetPrivateFn != nil {
		return m.SetPrivateFn(ctx, caller, taskID, private)
	}
	return m.update(caller, taskID, func(t *domain.Task) { t.Private = private })
}

// Visible implements service.TaskService
func (m *MockTaskService) Visible(
	ctx context.Context,
	caller domain.Caller,
	filter store.TaskFilter,
) (*service.TaskView, error) {
	if m.VisibleFn != nil {
		return m.VisibleFn(ctx, caller, filter)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	view := &service.TaskView{Tasks: []*domain.Task{}}
	for _, t := range m.Tasks {
		if caller.Owns(t) && !t.Checked {
			view.IncompleteCount++
		}
		if !caller.CanSee(t) || (filter.HideCompleted && t.Checked) {
			continue
		}
		cp := *t
		view.Tasks = append(view.Tasks, &cp)
	}
	return view, nil
}

func (m *MockTaskService) update(caller domain.Caller, taskID uuid.UUID, apply func(*domain.Task)) (*domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.Tasks {
		if t.ID != taskID {
			continue
		}
		if !caller.Owns(t) {
			return nil, domain.ErrNotAuthorized
		}
		apply(t)
		t.Version++
		cp := *t
		return &cp, nil
	}
	return nil, store.ErrTaskNotFound
}
