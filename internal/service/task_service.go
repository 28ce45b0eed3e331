package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/simple-todos/internal/domain"
	"github.com/phrazzld/simple-todos/internal/events"
	"github.com/phrazzld/simple-todos/internal/platform/logger"
	"github.com/phrazzld/simple-todos/internal/store"
)

// TaskView is the caller's view of the tasks publication.
type TaskView struct {
	Tasks []*domain.Task
	// IncompleteCount is the number of the caller's own unchecked tasks.
	IncompleteCount int
}

// TaskService implements the task methods and the tasks publication query.
// Every method takes the caller, which may be domain.Anonymous.
type TaskService interface {
	// Insert creates a task owned by the caller.
	// Returns domain.ErrNotAuthorized for an anonymous caller.
	Insert(ctx context.Context, caller domain.Caller, text string) (*domain.Task, error)

	// Remove deletes a task. Only the owner may remove it.
	Remove(ctx context.Context, caller domain.Caller, taskID uuid.UUID) error

	// SetChecked sets the done flag. Only the owner may change it.
	SetChecked(ctx context.Context, caller domain.Caller, taskID uuid.UUID, checked bool) (*domain.Task, error)

	// SetPrivate sets the visibility flag. Only the owner may change it.
	SetPrivate(ctx context.Context, caller domain.Caller, taskID uuid.UUID, private bool) (*domain.Task, error)

	// Visible returns the tasks the caller may see: non-private tasks plus
	// the caller's own, newest first.
	Visible(ctx context.Context, caller domain.Caller, filter store.TaskFilter) (*TaskView, error)
}

type taskServiceImpl struct {
	taskRepo TaskRepository
	emitter  events.EventEmitter
	logger   *slog.Logger
}

// NewTaskService creates a new TaskService.
// It returns an error if any of the required dependencies are nil. A nil
// emitter disables change notifications.
func NewTaskService(
	taskRepo TaskRepository,
	emitter events.EventEmitter,
	logger *slog.Logger,
) (TaskService, error) {
	if taskRepo == nil {
		return nil, domain.NewValidationError("taskRepo", "cannot be nil", domain.ErrValidation)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &taskServiceImpl{
		taskRepo: taskRepo,
		emitter:  emitter,
		logger:   logger.With(slog.String("component", "task_service")),
	}, nil
}

// Insert implements TaskService.Insert
func (s *taskServiceImpl) Insert(ctx context.Context, caller domain.Caller, text string) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if !caller.IsAuthenticated() {
		log.Debug("rejected insert from anonymous caller")
		return nil, domain.ErrNotAuthorized
	}

	task, err := domain.NewTask(caller, text)
	if err != nil {
		log.Debug("rejected invalid task", slog.String("error", err.Error()))
		return nil, err
	}

	if err := s.taskRepo.Create(ctx, task); err != nil {
		log.Error("failed to create task",
			slog.String("error", err.Error()),
			slog.String("user_id", caller.UserID.String()))
		return nil, NewTaskServiceError("insert", "failed to create task", err)
	}

	log.Info("task inserted",
		slog.String("task_id", task.ID.String()),
		slog.String("user_id", caller.UserID.String()))

	s.emit(ctx, events.TaskAdded, task, nil)
	return task, nil
}

// Remove implements TaskService.Remove
func (s *taskServiceImpl) Remove(ctx context.Context, caller domain.Caller, taskID uuid.UUID) error {
	removed, err := s.mutate(ctx, "remove", caller, taskID, func(ctx context.Context, tx store.TaskStore, task *domain.Task) error {
		return tx.Delete(ctx, task.ID)
	})
	if err != nil {
		return err
	}

	s.emit(ctx, events.TaskRemoved, removed, nil)
	return nil
}

// SetChecked implements TaskService.SetChecked
func (s *taskServiceImpl) SetChecked(
	ctx context.Context,
	caller domain.Caller,
	taskID uuid.UUID,
	checked bool,
) (*domain.Task, error) {
	return s.toggle(ctx, "set_checked", caller, taskID, func(ctx context.Context, tx store.TaskStore, task *domain.Task) error {
		if err := tx.SetChecked(ctx, task.ID, checked); err != nil {
			return err
		}
		task.Checked = checked
		return nil
	})
}

// SetPrivate implements TaskService.SetPrivate
func (s *taskServiceImpl) SetPrivate(
	ctx context.Context,
	caller domain.Caller,
	taskID uuid.UUID,
	private bool,
) (*domain.Task, error) {
	return s.toggle(ctx, "set_private", caller, taskID, func(ctx context.Context, tx store.TaskStore, task *domain.Task) error {
		if err := tx.SetPrivate(ctx, task.ID, private); err != nil {
			return err
		}
		task.Private = private
		return nil
	})
}

// toggle runs an in-place update and emits a changed event carrying both
// states and the new version.
func (s *taskServiceImpl) toggle(
	ctx context.Context,
	op string,
	caller domain.Caller,
	taskID uuid.UUID,
	apply mutation,
) (*domain.Task, error) {
	var before domain.Task
	updated, err := s.mutate(ctx, op, caller, taskID, func(ctx context.Context, tx store.TaskStore, task *domain.Task) error {
		before = *task
		if err := apply(ctx, tx, task); err != nil {
			return err
		}
		// Matches the store's version = version + 1.
		task.Version++
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, events.TaskChanged, updated, &before)
	return updated, nil
}

type mutation func(ctx context.Context, tx store.TaskStore, task *domain.Task) error

// mutate locks the task, checks that the caller owns it and applies fn, all in
// one transaction. It returns the task as left by fn.
func (s *taskServiceImpl) mutate(
	ctx context.Context,
	op string,
	caller domain.Caller,
	taskID uuid.UUID,
	fn mutation,
) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With(
		slog.String("operation", op),
		slog.String("task_id", taskID.String()))

	if !caller.IsAuthenticated() {
		log.Debug("rejected mutation from anonymous caller")
		return nil, domain.ErrNotAuthorized
	}

	var result *domain.Task
	err := store.RunInTransaction(ctx, s.taskRepo.DB(), func(ctx context.Context, tx *sql.Tx) error {
		txRepo := s.taskRepo.WithTx(tx)

		task, err := txRepo.GetForUpdate(ctx, taskID)
		if err != nil {
			return err
		}
		if !caller.Owns(task) {
			log.Warn("rejected mutation by non-owner",
				slog.String("user_id", caller.UserID.String()),
				slog.String("owner", task.Owner.String()))
			return domain.ErrNotAuthorized
		}

		if err := fn(ctx, txRepo, task); err != nil {
			return err
		}
		result = task
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotAuthorized):
			return nil, domain.ErrNotAuthorized
		case errors.Is(err, store.ErrTaskNotFound):
			log.Debug("task not found")
			return nil, store.ErrTaskNotFound
		}
		log.Error("task mutation failed", slog.String("error", err.Error()))
		return nil, NewTaskServiceError(op, "failed to update task", err)
	}

	log.Info("task mutated", slog.String("user_id", caller.UserID.String()))
	return result, nil
}

// Visible implements TaskService.Visible
func (s *taskServiceImpl) Visible(
	ctx context.Context,
	caller domain.Caller,
	filter store.TaskFilter,
) (*TaskView, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	tasks, err := s.taskRepo.FindVisible(ctx, caller.UserID, filter)
	if err != nil {
		log.Error("failed to query visible tasks", slog.String("error", err.Error()))
		return nil, NewTaskServiceError("visible", "failed to query tasks", err)
	}

	view := &TaskView{Tasks: tasks}
	if caller.IsAuthenticated() {
		view.IncompleteCount, err = s.taskRepo.CountIncomplete(ctx, caller.UserID)
		if err != nil {
			log.Error("failed to count incomplete tasks", slog.String("error", err.Error()))
			return nil, NewTaskServiceError("visible", "failed to count tasks", err)
		}
	}

	return view, nil
}

// emit publishes a change event. Failures are logged; the mutation has
// already committed. Events for one task may reach the emitter out of commit
// order; their versions let subscribers discard stale ones.
func (s *taskServiceImpl) emit(ctx context.Context, changeType events.ChangeType, task, previous *domain.Task) {
	if s.emitter == nil {
		return
	}
	log := logger.FromContextOrDefault(ctx, s.logger)

	event, err := events.NewTaskEvent(changeType, task, previous)
	if err != nil {
		log.Error("failed to build task event", slog.String("error", err.Error()))
		return
	}
	if err := s.emitter.EmitEvent(ctx, event); err != nil {
		log.Warn("failed to deliver task event",
			slog.String("error", err.Error()),
			slog.String("event_type", string(changeType)),
			slog.String("task_id", task.ID.String()))
	}
}
