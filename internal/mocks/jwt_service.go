package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/simple-todos/internal/service/auth"
)

// MockJWTService implements auth.JWTService for testing
type MockJWTService struct {
	GenerateTokenFn        func(ctx context.Context, userID uuid.UUID, username string) (string, error)
	ValidateTokenFn        func(ctx context.Context, tokenString string) (*auth.Claims, error)
	GenerateRefreshTokenFn func(ctx context.Context, userID uuid.UUID, username string) (string, error)
	ValidateRefreshTokenFn func(ctx context.Context, tokenString string) (*auth.Claims, error)

	// Default values used when functions aren't explicitly defined
	Token        string
	RefreshToken string
	Err          error
	ValidateErr  error
	Claims       *auth.Claims
}

var _ auth.JWTService = (*MockJWTService)(nil)

// NewMockJWTService returns a mock whose tokens validate to claims for the
// given user.
func NewMockJWTService(userID uuid.UUID, username string) *MockJWTService {
	now := time.Now()
	return &MockJWTService{
		Token:        "mock-access-token",
		RefreshToken: "mock-refresh-token",
		Claims: &auth.Claims{
			UserID:    userID,
			Username:  username,
			TokenType: auth.TokenTypeAccess,
			Subject:   userID.String(),
			IssuedAt:  now,
			ExpiresAt: now.Add(time.Hour),
			ID:        uuid.NewString(),
		},
	}
}

// GenerateToken implements auth.JWTService
func (m *MockJWTService) GenerateToken(ctx context.Context, userID uuid.UUID, username string) (string, error) {
	if m.GenerateTokenFn != nil {
		return m.GenerateTokenFn(ctx, userID, username)
	}
	return m.Token, m.Err
}

// ValidateToken implements auth.JWTService
func (m *MockJWTService) ValidateToken(ctx context.Context, tokenString string) (*auth.Claims, error) {
	if m.ValidateTokenFn != nil {
		return m.ValidateTokenFn(ctx, tokenString)
	}
	if m.ValidateErr != nil {
		return nil, m.ValidateErr
	}
	return m.Claims, nil
}

// GenerateRefreshToken implements auth.JWTService
func (m *MockJWTService) GenerateRefreshToken(ctx context.Context, userID uuid.UUID, username string) (string, error) {
	if m.GenerateRefreshTokenFn != nil {
		return m.GenerateRefreshTokenFn(ctx, userID, username)
	}
	return m.RefreshToken, m.Err
}

// ValidateRefreshToken implements auth.JWTService
func (m *MockJWTService) ValidateRefreshToken(ctx context.Context, tokenString string) (*auth.Claims, error) {
	if m.ValidateRefreshTokenFn != nil {
		return m.ValidateRefreshTokenFn(ctx, tokenString)
	}
	if m.ValidateErr != nil {
		return nil, m.ValidateErr
	}
	if m.Claims == nil {
		return nil, auth.ErrInvalidRefreshToken
	}
	claims := *m.Claims
	claims.TokenType = auth.TokenTypeRefresh
	return &claims, nil
}
