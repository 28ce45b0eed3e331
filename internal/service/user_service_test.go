package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/phrazzld/simple-todos/internal/domain"
	"github.com/phrazzld/simple-todos/internal/mocks"
	"github.com/phrazzld/simple-todos/internal/service"
	"github.com/phrazzld/simple-todos/internal/service/auth"
	"github.com/phrazzld/simple-todos/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type userFixture struct {
	svc      service.UserService
	users    *mocks.MockUserStore
	jwt      *mocks.MockJWTService
	verifier *mocks.MockPasswordVerifier
	sqlMock  sqlmock.Sqlmock
}

func newUserFixture(t *testing.T) *userFixture {
	t.Helper()

	db, sqlMock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	f := &userFixture{
		users:    mocks.NewMockUserStore(),
		jwt:      mocks.NewMockJWTService(uuid.New(), "alice"),
		verifier: &mocks.MockPasswordVerifier{},
		sqlMock:  sqlMock,
	}
	f.svc = service.NewUserService(f.users, db, f.jwt, f.verifier, time.Hour, discardLogger())
	return f
}

func TestUserService_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		f := newUserFixture(t)
		f.sqlMock.ExpectBegin()
		f.sqlMock.ExpectCommit()

		var tokenFor string
		f.jwt.GenerateTokenFn = func(_ context.Context, _ uuid.UUID, username string) (string, error) {
			tokenFor = username
			return "access", nil
		}

		result, err := f.svc.Register(ctx, "alice", "password123")
		require.NoError(t, err)
		assert.Equal(t, "alice", result.User.Username)
		assert.Equal(t, "access", result.AccessToken)
		assert.Equal(t, "mock-refresh-token", result.RefreshToken)
		assert.Equal(t, "alice", tokenFor)
		assert.WithinDuration(t, time.Now().Add(time.Hour), result.ExpiresAt, time.Minute)
		assert.Empty(t, result.User.Password)
		assert.NoError(t, f.sqlMock.ExpectationsWereMet())
	})

	t.Run("duplicate username", func(t *testing.T) {
		f := newUserFixture(t)
		f.users.CreateError = store.ErrUsernameExists
		f.sqlMock.ExpectBegin()
		f.sqlMock.ExpectRollback()

		_, err := f.svc.Register(ctx, "alice", "password123")
		assert.ErrorIs(t, err, store.ErrUsernameExists)
		assert.True(t, store.IsDuplicateError(err))
	})

	t.Run("invalid input never opens a transaction", func(t *testing.T) {
		f := newUserFixture(t)

		_, err := f.svc.Register(ctx, "a!", "password123")
		assert.ErrorIs(t, err, domain.ErrInvalidUsername)
		_, err = f.svc.Register(ctx, "alice", "short")
		assert.ErrorIs(t, err, domain.ErrPasswordTooShort)
		assert.NoError(t, f.sqlMock.ExpectationsWereMet())
	})
}

func TestUserService_Login(t *testing.T) {
	ctx := context.Background()

	f := newUserFixture(t)
	user, err := domain.NewUser("alice", "password123")
	require.NoError(t, err)
	require.NoError(t, f.users.Create(ctx, user))

	result, err := f.svc.Login(ctx, "alice", "password123")
	require.NoError(t, err)
	assert.Equal(t, user.ID, result.User.ID)
	assert.Equal(t, "mock-access-token", result.AccessToken)

	_, err = f.svc.Login(ctx, "alice", "wrong-password")
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)

	_, err = f.svc.Login(ctx, "nobody", "password123")
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)
	assert.Equal(t, 2, f.verifier.CompareCallCount)

	f.users.GetByUsernameFn = func(context.Context, string) (*domain.User, error) {
		return nil, errors.New("connection refused")
	}
	_, err = f.svc.Login(ctx, "alice", "password123")
	require.Error(t, err)
	assert.NotErrorIs(t, err, service.ErrInvalidCredentials)
}

func TestUserService_Refresh(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		f := newUserFixture(t)
		user, err := domain.NewUser("alice", "password123")
		require.NoError(t, err)
		require.NoError(t, f.users.Create(ctx, user))
		f.jwt.Claims.UserID = user.ID

		result, err := f.svc.Refresh(ctx, "mock-refresh-token")
		require.NoError(t, err)
		assert.Equal(t, user.ID, result.User.ID)
		assert.NotEmpty(t, result.AccessToken)
		assert.NotEmpty(t, result.RefreshToken)
	})

	t.Run("invalid token", func(t *testing.T) {
		f := newUserFixture(t)
		f.jwt.ValidateErr = auth.ErrExpiredRefreshToken

		_, err := f.svc.Refresh(ctx, "stale")
		assert.ErrorIs(t, err, auth.ErrExpiredRefreshToken)
	})

	t.Run("user no longer exists", func(t *testing.T) {
		f := newUserFixture(t)

		_, err := f.svc.Refresh(ctx, "mock-refresh-token")
		assert.ErrorIs(t, err, auth.ErrInvalidRefreshToken)
	})
}
