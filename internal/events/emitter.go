package events

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// InMemoryEventEmitter fans task events out to in-process handlers, in the
// order they were registered.
type InMemoryEventEmitter struct {
	mu       sync.RWMutex
	handlers []EventHandler
	log      *slog.Logger
}

var _ EventEmitter = (*InMemoryEventEmitter)(nil)

func NewInMemoryEventEmitter(logger *slog.Logger) *InMemoryEventEmitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &InMemoryEventEmitter{log: logger.With("component", "task_event_emitter")}
}

// RegisterHandler subscribes h to every subsequent event.
func (e *InMemoryEventEmitter) RegisterHandler(h EventHandler) {
	e.mu.Lock()
	e.handlers = append(e.handlers, h)
	n := len(e.handlers)
	e.mu.Unlock()

	e.log.Debug("task event handler registered", "handlers", n)
}

// EmitEvent delivers event to every handler even when some fail. The
// returned error joins all handler failures.
func (e *InMemoryEventEmitter) EmitEvent(ctx context.Context, event *TaskEvent) error {
	e.mu.RLock()
	handlers := append([]EventHandler(nil), e.handlers...)
	e.mu.RUnlock()

	log := e.log.With("event_id", event.ID, "event_type", event.Type, "task_id", event.Task.ID)
	log.Debug("emitting task event", "handlers", len(handlers))

	var errs []error
	for i, h := range handlers {
		if err := h.HandleEvent(ctx, event); err != nil {
			log.Error("task event handler failed", "handler_index", i, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
