package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/simple-todos/internal/domain"
	"github.com/phrazzld/simple-todos/internal/platform/logger"
	"github.com/phrazzld/simple-todos/internal/service/auth"
	"github.com/phrazzld/simple-todos/internal/store"
)

// AuthResult is returned by every successful account operation.
type AuthResult struct {
	User         *domain.User
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// UserService provides account operations: registration, login and token refresh.
type UserService interface {
	// Register creates a user and signs them in.
	// Returns store.ErrUsernameExists if the username is taken.
	Register(ctx context.Context, username, password string) (*AuthResult, error)

	// Login checks credentials and issues a token pair.
	// Returns ErrInvalidCredentials on any mismatch.
	Login(ctx context.Context, username, password string) (*AuthResult, error)

	// Refresh exchanges a valid refresh token for a new token pair.
	Refresh(ctx context.Context, refreshToken string) (*AuthResult, error)
}

// UserServiceImpl implements the UserService interface
type UserServiceImpl struct {
	userStore     store.UserStore
	db            *sql.DB
	jwtService    auth.JWTService
	verifier      auth.PasswordVerifier
	tokenLifetime time.Duration
	timeFunc      func() time.Time
	logger        *slog.Logger
}

// NewUserService creates a new UserService
func NewUserService(
	userStore store.UserStore,
	db *sql.DB,
	jwtService auth.JWTService,
	verifier auth.PasswordVerifier,
	tokenLifetime time.Duration,
	logger *slog.Logger,
) UserService {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserServiceImpl{
		userStore:     userStore,
		db:            db,
		jwtService:    jwtService,
		verifier:      verifier,
		tokenLifetime: tokenLifetime,
		timeFunc:      time.Now,
		logger:        logger.With("component", "user_service"),
	}
}

// Register creates a new user inside a transaction and issues a token pair.
func (s *UserServiceImpl) Register(ctx context.Context, username, password string) (*AuthResult, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	user, err := domain.NewUser(username, password)
	if err != nil {
		log.Debug("rejected invalid registration",
			"error", err,
			"username", username)
		return nil, err
	}

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		return s.userStore.WithTx(tx).Create(ctx, user)
	})
	if err != nil {
		if errors.Is(err, store.ErrUsernameExists) {
			log.Debug("attempted to register existing username", "username", username)
		} else {
			log.Error("failed to save user to database",
				"error", err,
				"username", username)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	log.Info("user registered",
		"user_id", user.ID,
		"username", user.Username)

	return s.issue(ctx, user)
}

// Login verifies a username and password and issues a token pair.
func (s *UserServiceImpl) Login(ctx context.Context, username, password string) (*AuthResult, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	user, err := s.userStore.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			log.Debug("login for unknown username", "username", username)
			return nil, ErrInvalidCredentials
		}
		log.Error("failed to retrieve user for login",
			"error", err,
			"username", username)
		return nil, fmt.Errorf("failed to retrieve user: %w", err)
	}

	if err := s.verifier.Compare(user.HashedPassword, password); err != nil {
		log.Debug("login with wrong password", "user_id", user.ID)
		return nil, ErrInvalidCredentials
	}

	log.Info("user logged in", "user_id", user.ID)
	return s.issue(ctx, user)
}

// Refresh validates the refresh token, confirms the user still exists and
// issues a fresh pair.
func (s *UserServiceImpl) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	claims, err := s.jwtService.ValidateRefreshToken(ctx, refreshToken)
	if err != nil {
		log.Debug("refresh token rejected", "error", err)
		return nil, err
	}

	user, err := s.userStore.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			log.Debug("refresh token for deleted user", "user_id", claims.UserID)
			return nil, auth.ErrInvalidRefreshToken
		}
		log.Error("failed to retrieve user for refresh",
			"error", err,
			"user_id", claims.UserID)
		return nil, fmt.Errorf("failed to retrieve user: %w", err)
	}

	return s.issue(ctx, user)
}

func (s *UserServiceImpl) issue(ctx context.Context, user *domain.User) (*AuthResult, error) {
	access, err := s.jwtService.GenerateToken(ctx, user.ID, user.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}
	refresh, err := s.jwtService.GenerateRefreshToken(ctx, user.ID, user.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return &AuthResult{
		User:         user,
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    s.timeFunc().Add(s.tokenLifetime).UTC(),
	}, nil
}
