package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/simple-todos/internal/domain"
)

// TaskFilter narrows a visibility query.
type TaskFilter struct {
	// HideCompleted drops checked tasks.
	HideCompleted bool
}

// TaskStore defines the interface for task data persistence.
// There is deliberately no method that rewrites a task's owner.
type TaskStore interface {
	// Create saves a new task.
	// Returns validation errors from the domain Task if data is invalid.
	// Returns ErrInvalidEntity if the owner does not exist.
	Create(ctx context.Context, task *domain.Task) error

	// GetForUpdate retrieves a task and locks its row until the surrounding
	// transaction ends. Only meaningful on a store returned by WithTx.
	// Returns ErrTaskNotFound if the task does not exist.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// SetChecked updates the checked flag and increments the version.
	// Returns ErrTaskNotFound if the task does not exist.
	SetChecked(ctx context.Context, id uuid.UUID, checked bool) error

	// SetPrivate updates the private flag and increments the version.
	// Returns ErrTaskNotFound if the task does not exist.
	SetPrivate(ctx context.Context, id uuid.UUID, private bool) error

	// Delete removes a task permanently.
	// Returns ErrTaskNotFound if the task does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// FindVisible returns the tasks the viewer may see: every non-private
	// task plus the viewer's own private tasks, newest first. A uuid.Nil viewer
	// sees only non-private tasks.
	FindVisible(ctx context.Context, viewer uuid.UUID, filter TaskFilter) ([]*domain.Task, error)

	// CountIncomplete returns the number of unchecked tasks owned by the user.
	CountIncomplete(ctx context.Context, owner uuid.UUID) (int, error)

	// WithTx returns a new TaskStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) TaskStore
}
