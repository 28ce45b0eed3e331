package publication

import (
	"github.com/phrazzld/simple-todos/internal/domain"
	"github.com/phrazzld/simple-todos/internal/events"
)

// Translate converts a task event into the message the viewer should receive.
// ok is false when the change is invisible to the viewer.
//
// Visibility transitions are rewritten: a task the viewer could see that
// turns private becomes a removal, and a task turning public becomes an
// addition.
func Translate(viewer domain.Caller, event *events.TaskEvent) (msg Message, ok bool) {
	if event == nil || event.Task == nil {
		return Message{}, false
	}

	msg, ok = translate(viewer, event)
	if ok {
		msg.Version = event.Version
	}
	return msg, ok
}

func translate(viewer domain.Caller, event *events.TaskEvent) (Message, bool) {
	switch event.Type {
	case events.TaskAdded:
		if viewer.CanSee(event.Task) {
			return Added(event.Task), true
		}
	case events.TaskRemoved:
		if viewer.CanSee(event.Task) {
			return Removed(event.Task), true
		}
	case events.TaskChanged:
		before := viewer.CanSee(event.Previous)
		after := viewer.CanSee(event.Task)
		switch {
		case before && after:
			return Changed(event.Task), true
		case before:
			return Removed(event.Task), true
		case after:
			return Added(event.Task), true
		}
	}

	return Message{}, false
}
