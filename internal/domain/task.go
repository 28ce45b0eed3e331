package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// MaxTaskTextLength bounds the free-text content of a task, in characters.
const MaxTaskTextLength = 1000

// Common validation errors for Task
var (
	ErrEmptyTaskID     = fmt.Errorf("%w: task ID cannot be empty", ErrValidation)
	ErrEmptyTaskOwner  = fmt.Errorf("%w: task owner cannot be empty", ErrValidation)
	ErrEmptyTaskText   = fmt.Errorf("%w: task text cannot be empty", ErrValidation)
	ErrTaskTextTooLong = fmt.Errorf("%w: task text is too long", ErrValidation)
)

// Task is a to-do item. Owner is fixed at creation; Username is a copy of
// the owner's username taken at the same time. Version starts at 1 and grows
// by one with every committed change, which orders change notifications.
type Task struct {
	ID        uuid.UUID `json:"id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
	Owner     uuid.UUID `json:"owner"`
	Username  string    `json:"username"`
	Checked   bool      `json:"checked"`
	Private   bool      `json:"private"`
	Version   int64     `json:"version"`
}

// NewTask creates an unchecked, public task owned by the caller.
// Surrounding whitespace is trimmed from text.
func NewTask(owner Caller, text string) (*Task, error) {
	task := &Task{
		ID:        uuid.New(),
		Text:      strings.TrimSpace(text),
		CreatedAt: time.Now().UTC(),
		Owner:     owner.UserID,
		Username:  owner.Username,
		Version:   1,
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}

	return task, nil
}

// Validate checks if the Task has valid data.
func (t *Task) Validate() error {
	if t.ID == uuid.Nil {
		return ErrEmptyTaskID
	}

	if t.Owner == uuid.Nil {
		return ErrEmptyTaskOwner
	}

	if strings.TrimSpace(t.Text) == "" {
		return ErrEmptyTaskText
	}

	if utf8.RuneCountInString(t.Text) > MaxTaskTextLength {
		return ErrTaskTextTooLong
	}

	return nil
}
