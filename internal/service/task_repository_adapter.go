package service

import (
	"database/sql"

	"github.com/phrazzld/simple-todos/internal/store"
)

// TaskRepository is the task store as seen by the service layer: a
// store.TaskStore that also exposes the connection used to open transactions.
type TaskRepository interface {
	store.TaskStore

	// DB returns the underlying database connection
	DB() *sql.DB
}

// NewTaskRepositoryAdapter creates a new adapter that allows a store.TaskStore
// to be used where a TaskRepository is expected.
func NewTaskRepositoryAdapter(taskStore store.TaskStore, db *sql.DB) TaskRepository {
	return &taskRepositoryAdapter{
		TaskStore: taskStore,
		db:        db,
	}
}

type taskRepositoryAdapter struct {
	store.TaskStore
	db *sql.DB
}

// DB implements TaskRepository.DB
func (a *taskRepositoryAdapter) DB() *sql.DB {
	return a.db
}
