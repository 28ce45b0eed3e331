package domain

import "github.com/google/uuid"

// Caller is the identity on whose behalf a method or publication runs.
// The zero value is an anonymous caller.
type Caller struct {
	UserID   uuid.UUID
	Username string
}

// Anonymous is the caller of a request without credentials.
var Anonymous = Caller{}

// NewCaller returns the caller for an authenticated user.
func NewCaller(userID uuid.UUID, username string) Caller {
	return Caller{UserID: userID, Username: username}
}

// IsAuthenticated reports whether the caller is logged in.
func (c Caller) IsAuthenticated() bool {
	return c.UserID != uuid.Nil
}

// Owns reports whether the caller is the owner of the task.
// Anonymous callers own nothing.
func (c Caller) Owns(t *Task) bool {
	return c.IsAuthenticated() && t != nil && t.Owner == c.UserID
}

// CanSee reports whether the task belongs in the caller's view of the tasks
// publication: public tasks, plus the caller's own private tasks.
func (c Caller) CanSee(t *Task) bool {
	return t != nil && (!t.Private || c.Owns(t))
}
