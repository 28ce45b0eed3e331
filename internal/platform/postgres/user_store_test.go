package postgres

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/simple-todos/internal/domain"
	"github.com/phrazzld/simple-todos/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newMockUserStore(t *testing.T) (*PostgresUserStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresUserStore(db, bcrypt.MinCost, nil), mock
}

func TestPostgresUserStore_Create(t *testing.T) {
	t.Run("hashes password and clears plaintext", func(t *testing.T) {
		s, mock := newMockUserStore(t)
		user, err := domain.NewUser("alice", "correct horse")
		require.NoError(t, err)

		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
			WithArgs(user.ID, "alice", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, s.Create(context.Background(), user))
		assert.Empty(t, user.Password)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte("correct horse")))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate username", func(t *testing.T) {
		s, mock := newMockUserStore(t)
		user, err := domain.NewUser("alice", "correct horse")
		require.NoError(t, err)

		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
			WillReturnError(&pgconn.PgError{Code: uniqueViolationCode, ConstraintName: "users_username_key"})

		err = s.Create(context.Background(), user)
		assert.ErrorIs(t, err, store.ErrUsernameExists)
		assert.True(t, store.IsDuplicateError(err))
	})
}

func TestPostgresUserStore_GetByUsername(t *testing.T) {
	columns := []string{"id", "username", "hashed_password", "created_at", "updated_at"}

	t.Run("found", func(t *testing.T) {
		s, mock := newMockUserStore(t)
		id := uuid.New()
		now := time.Now().UTC()
		mock.ExpectQuery(regexp.QuoteMeta("WHERE username = $1")).
			WithArgs("alice").
			WillReturnRows(sqlmock.NewRows(columns).AddRow(id.String(), "alice", "hash", now, now))

		user, err := s.GetByUsername(context.Background(), "alice")
		require.NoError(t, err)
		assert.Equal(t, id, user.ID)
		assert.Equal(t, "hash", user.HashedPassword)
	})

	t.Run("not found", func(t *testing.T) {
		s, mock := newMockUserStore(t)
		mock.ExpectQuery(regexp.QuoteMeta("WHERE id = $1")).
			WillReturnError(sql.ErrNoRows)

		_, err := s.GetByID(context.Background(), uuid.New())
		assert.ErrorIs(t, err, store.ErrUserNotFound)
	})
}
