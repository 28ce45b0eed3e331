package events

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/simple-todos/internal/domain"
)

// ChangeType names the kind of change a TaskEvent describes.
type ChangeType string

// Change types, matching the message names of the tasks publication.
const (
	TaskAdded   ChangeType = "added"
	TaskChanged ChangeType = "changed"
	TaskRemoved ChangeType = "removed"
)

// TaskEvent describes one committed change to a task.
type TaskEvent struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	Type ChangeType `json:"type"`

	// Task is the state after the change; for TaskRemoved it is the last state
	// before deletion.
	Task *domain.Task `json:"task"`

	// Previous is the state before a TaskChanged event, nil otherwise.
	Previous *domain.Task `json:"previous,omitempty"`

	// Version orders events for the same task. It is Task.Version, except
	// for TaskRemoved where the deletion counts as one more change.
	// Zero means unversioned.
	Version int64 `json:"version"`

	CreatedAt time.Time `json:"created_at"`
}

// NewTaskEvent creates a TaskEvent holding copies of the given task states,
// so later mutation of the originals does not leak into handlers.
func NewTaskEvent(changeType ChangeType, task, previous *domain.Task) (*TaskEvent, error) {
	if task == nil {
		return nil, fmt.Errorf("task event %q requires a task", changeType)
	}
	switch changeType {
	case TaskAdded, TaskRemoved:
		previous = nil
	case TaskChanged:
		if previous == nil {
			return nil, fmt.Errorf("task event %q requires the previous state", changeType)
		}
	default:
		return nil, fmt.Errorf("unknown task event type %q", changeType)
	}

	version := task.Version
	if changeType == TaskRemoved && version > 0 {
		version++
	}

	return &TaskEvent{
		ID:        uuid.New(),
		Type:      changeType,
		Task:      cloneTask(task),
		Previous:  cloneTask(previous),
		Version:   version,
		CreatedAt: time.Now().UTC(),
	}, nil
}

func cloneTask(t *domain.Task) *domain.Task {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

// EventHandler defines an interface for components that can handle events.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	// Returns an error if the event cannot be handled successfully.
	HandleEvent(ctx context.Context, event *TaskEvent) error
}

// EventEmitter defines an interface for components that can emit events.
// This allows services to publish events without direct knowledge of handlers.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	EmitEvent(ctx context.Context, event *TaskEvent) error
}

// HandlerFunc adapts an ordinary function to the EventHandler interface.
type HandlerFunc func(ctx context.Context, event *TaskEvent) error

// HandleEvent calls f(ctx, event).
func (f HandlerFunc) HandleEvent(ctx context.Context, event *TaskEvent) error {
	return f(ctx, event)
}
