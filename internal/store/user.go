package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/simple-todos/internal/domain"
)

// UserStore persists accounts. Task records keep the username denormalized,
// so there is no rename operation.
type UserStore interface {
	// Create validates user, hashes its plaintext Password into HashedPassword
	// and inserts it. A taken username yields ErrUsernameExists.
	Create(ctx context.Context, user *domain.User) error

	// GetByID and GetByUsername yield ErrUserNotFound for unknown users.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)

	// WithTx binds the store to tx.
	WithTx(tx *sql.Tx) UserStore
}
