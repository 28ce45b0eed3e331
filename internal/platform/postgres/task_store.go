package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/simple-todos/internal/domain"
	"github.com/phrazzld/simple-todos/internal/platform/logger"
	"github.com/phrazzld/simple-todos/internal/store"
)

const taskColumns = `id, text, created_at, owner, username, checked, private, version`

// PostgresTaskStore implements the store.TaskStore interface
// using a PostgreSQL database as the storage backend.
type PostgresTaskStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTaskStore creates a new PostgreSQL implementation of the TaskStore interface.
// It accepts a database connection or transaction that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresTaskStore(db store.DBTX, logger *slog.Logger) *PostgresTaskStore {
	if db == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresTaskStore{
		db:     db,
		logger: logger.With(slog.String("component", "task_store")),
	}
}

// Ensure PostgresTaskStore implements store.TaskStore interface
var _ store.TaskStore = (*PostgresTaskStore)(nil)

// WithTx implements store.TaskStore.WithTx
func (s *PostgresTaskStore) WithTx(tx *sql.Tx) store.TaskStore {
	return &PostgresTaskStore{
		db:     tx,
		logger: s.logger,
	}
}

// Create implements store.TaskStore.Create
func (s *PostgresTaskStore) Create(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		log.Warn("task validation failed during create",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (`+taskColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		task.ID,
		task.Text,
		task.CreatedAt,
		task.Owner,
		task.Username,
		task.Checked,
		task.Private,
		task.Version,
	)
	if err != nil {
		if IsForeignKeyViolation(err) {
			log.Warn("foreign key violation during task creation",
				slog.String("task_id", task.ID.String()),
				slog.String("owner", task.Owner.String()))
			return fmt.Errorf("%w: user with ID %s not found", store.ErrInvalidEntity, task.Owner)
		}
		log.Error("failed to create task",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return store.NewStoreError("task", "create", "failed to insert task", MapError(err))
	}

	log.Debug("task created",
		slog.String("task_id", task.ID.String()),
		slog.String("owner", task.Owner.String()))
	return nil
}

// GetForUpdate implements store.TaskStore.GetForUpdate
func (s *PostgresTaskStore) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	task, err := scanTask(s.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("task not found", slog.String("task_id", id.String()))
			return nil, store.ErrTaskNotFound
		}
		log.Error("failed to get task",
			slog.String("error", err.Error()),
			slog.String("task_id", id.String()))
		return nil, store.NewStoreError("task", "get", "failed to query task", MapError(err))
	}

	return task, nil
}

// SetChecked implements store.TaskStore.SetChecked
func (s *PostgresTaskStore) SetChecked(ctx context.Context, id uuid.UUID, checked bool) error {
	return s.update(ctx, id, "set_checked",
		`UPDATE tasks SET checked = $1, version = version + 1 WHERE id = $2`, checked)
}

// SetPrivate implements store.TaskStore.SetPrivate
func (s *PostgresTaskStore) SetPrivate(ctx context.Context, id uuid.UUID, private bool) error {
	return s.update(ctx, id, "set_private",
		`UPDATE tasks SET private = $1, version = version + 1 WHERE id = $2`, private)
}

func (s *PostgresTaskStore) update(ctx context.Context, id uuid.UUID, op, query string, value bool) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, query, value, id)
	if err != nil {
		log.Error("failed to update task",
			slog.String("error", err.Error()),
			slog.String("operation", op),
			slog.String("task_id", id.String()))
		return store.NewStoreError("task", op, "failed to update task", MapError(err))
	}

	if err := CheckRowsAffected(result, store.ErrTaskNotFound); err != nil {
		log.Debug("task update affected no rows",
			slog.String("operation", op),
			slog.String("task_id", id.String()))
		return err
	}

	log.Debug("task updated",
		slog.String("operation", op),
		slog.String("task_id", id.String()),
		slog.Bool("value", value))
	return nil
}

// Delete implements store.TaskStore.Delete
func (s *PostgresTaskStore) Delete(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		log.Error("failed to delete task",
			slog.String("error", err.Error()),
			slog.String("task_id", id.String()))
		return store.NewStoreError("task", "delete", "failed to delete task", MapError(err))
	}

	if err := CheckRowsAffected(result, store.ErrTaskNotFound); err != nil {
		return err
	}

	log.Debug("task deleted", slog.String("task_id", id.String()))
	return nil
}

// FindVisible implements store.TaskStore.FindVisible
func (s *PostgresTaskStore) FindVisible(
	ctx context.Context,
	viewer uuid.UUID,
	filter store.TaskFilter,
) ([]*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	// An anonymous viewer is uuid.Nil, which matches no owner.
	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE (private = FALSE OR owner = $1)
		  AND ($2 = FALSE OR checked = FALSE)
		ORDER BY created_at DESC, id
	`

	rows, err := s.db.QueryContext(ctx, query, viewer, filter.HideCompleted)
	if err != nil {
		log.Error("failed to query visible tasks", slog.String("error", err.Error()))
		return nil, store.NewStoreError("task", "find_visible", "failed to query tasks", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	tasks := make([]*domain.Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			log.Error("failed to scan task row", slog.String("error", err.Error()))
			return nil, store.NewStoreError("task", "find_visible", "failed to scan task", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		log.Error("error iterating task rows", slog.String("error", err.Error()))
		return nil, store.NewStoreError("task", "find_visible", "failed to read tasks", err)
	}

	log.Debug("visible tasks retrieved",
		slog.String("viewer", viewer.String()),
		slog.Int("count", len(tasks)))
	return tasks, nil
}

// CountIncomplete implements store.TaskStore.CountIncomplete
func (s *PostgresTaskStore) CountIncomplete(ctx context.Context, owner uuid.UUID) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tasks WHERE owner = $1 AND checked = FALSE`,
		owner,
	).Scan(&count)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to count incomplete tasks",
			slog.String("error", err.Error()),
			slog.String("owner", owner.String()))
		return 0, store.NewStoreError("task", "count_incomplete", "failed to count tasks", MapError(err))
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var task domain.Task
	if err := row.Scan(
		&task.ID,
		&task.Text,
		&task.CreatedAt,
		&task.Owner,
		&task.Username,
		&task.Checked,
		&task.Private,
		&task.Version,
	); err != nil {
		return nil, err
	}
	return &task, nil
}
