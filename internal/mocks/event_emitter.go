package mocks

import (
	"context"

	"github.com/phrazzld/simple-todos/internal/events"
	"github.com/stretchr/testify/mock"
)

// MockEventEmitter is a testify mock of events.EventEmitter.
type MockEventEmitter struct {
	mock.Mock
}

var _ events.EventEmitter = (*MockEventEmitter)(nil)

// EmitEvent is a mock implementation of events.EventEmitter.EmitEvent
func (m *MockEventEmitter) EmitEvent(ctx context.Context, event *events.TaskEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// EventOfType matches a *events.TaskEvent argument by type and task ID.
func EventOfType(changeType events.ChangeType, taskID string) interface{} {
	return mock.MatchedBy(func(e *events.TaskEvent) bool {
		return e != nil && e.Type == changeType && e.Task.ID.String() == taskID
	})
}
