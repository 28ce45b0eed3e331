package store

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by every store implementation. Callers match them
// with errors.Is; implementations wrap them with context.
var (
	ErrNotFound          = errors.New("entity not found")
	ErrDuplicate         = errors.New("entity already exists")
	ErrInvalidEntity     = errors.New("invalid entity")
	ErrTransactionFailed = errors.New("transaction failed")

	// Entity-specific variants still satisfy errors.Is against their base.
	ErrUserNotFound   = fmt.Errorf("%w: user", ErrNotFound)
	ErrTaskNotFound   = fmt.Errorf("%w: task", ErrNotFound)
	ErrUsernameExists = fmt.Errorf("%w: username", ErrDuplicate)
)

// IsNotFoundError reports whether err is, or wraps, ErrNotFound.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDuplicateError reports whether err is, or wraps, ErrDuplicate.
func IsDuplicateError(err error) bool {
	return errors.Is(err, ErrDuplicate)
}

// StoreError records which entity and operation failed.
type StoreError struct {
	Entity    string
	Operation string
	Message   string
	Err       error
}

func (e *StoreError) Error() string {
	msg := e.Entity + " " + e.Operation + ": " + e.Message
	if e.Err == nil {
		return msg
	}
	return msg + ": " + e.Err.Error()
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError builds a StoreError for entity and op around err, which may be nil.
func NewStoreError(entity, op, message string, err error) *StoreError {
	return &StoreError{Entity: entity, Operation: op, Message: message, Err: err}
}
