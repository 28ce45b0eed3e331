package publication

import "github.com/phrazzld/simple-todos/internal/domain"

// Collection is the name of the only published collection.
const Collection = "tasks"

// MessageKind is the type of a publication message.
type MessageKind string

// Message kinds sent to subscribers.
const (
	MsgAdded   MessageKind = "added"
	MsgChanged MessageKind = "changed"
	MsgRemoved MessageKind = "removed"
	// MsgReady marks the end of the initial snapshot.
	MsgReady MessageKind = "ready"
)

// Message is a single publication update as sent over the wire.
type Message struct {
	Msg        MessageKind  `json:"msg"`
	Collection string       `json:"collection"`
	ID         string       `json:"id,omitempty"`
	Fields     *domain.Task `json:"fields,omitempty"`
	// Version is the task version the message reflects. Clients can ignore
	// a message older than one already applied for the same id.
	Version int64 `json:"version,omitempty"`
}

// Added returns the message announcing a task entering the viewer's set.
func Added(t *domain.Task) Message {
	return Message{Msg: MsgAdded, Collection: Collection, ID: t.ID.String(), Fields: t, Version: t.Version}
}

// Changed returns the message announcing the new state of a visible task.
func Changed(t *domain.Task) Message {
	return Message{Msg: MsgChanged, Collection: Collection, ID: t.ID.String(), Fields: t, Version: t.Version}
}

// Removed returns the message announcing a task leaving the viewer's set.
func Removed(t *domain.Task) Message {
	return Message{Msg: MsgRemoved, Collection: Collection, ID: t.ID.String(), Version: t.Version}
}

// Ready returns the end-of-snapshot marker.
func Ready() Message {
	return Message{Msg: MsgReady, Collection: Collection}
}
