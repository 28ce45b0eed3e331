package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/simple-todos/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSecret  = "test-secret-that-is-long-enough-for-testing"
	wrongSecret = "wrong-secret-that-is-long-enough-for-testing"
)

var fixedTime = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

func testAuthConfig(secret string) config.AuthConfig {
	return config.AuthConfig{
		JWTSecret:                   secret,
		BCryptCost:                  4,
		TokenLifetimeMinutes:        60,
		RefreshTokenLifetimeMinutes: 1440,
	}
}

func newTestService(t *testing.T, secret string, at time.Time) *hmacJWTService {
	t.Helper()
	svc, err := newHMACJWTService(testAuthConfig(secret), func() time.Time { return at })
	require.NoError(t, err)
	return svc
}

func TestNewJWTService(t *testing.T) {
	t.Parallel()

	_, err := NewJWTService(testAuthConfig("too-short"))
	assert.Error(t, err)

	svc, err := NewJWTService(testAuthConfig(testSecret))
	require.NoError(t, err)
	assert.NotNil(t, svc)
}

func TestGenerateToken(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	svc := newTestService(t, testSecret, fixedTime)

	token, err := svc.GenerateToken(context.Background(), userID, "alice")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateToken(context.Background(), token)
	require.NoError(t, err)

	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, TokenTypeAccess, claims.TokenType)
	assert.Equal(t, userID.String(), claims.Subject)
	assert.Equal(t, fixedTime.Unix(), claims.IssuedAt.Unix())
	assert.Equal(t, fixedTime.Add(time.Hour).Unix(), claims.ExpiresAt.Unix())
	assert.NotEmpty(t, claims.ID)
}

func TestValidateToken(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	ctx := context.Background()

	tests := []struct {
		name      string
		setupFunc func(t *testing.T) (JWTService, string)
		wantErr   error
	}{
		{
			name: "valid token",
			setupFunc: func(t *testing.T) (JWTService, string) {
				svc := newTestService(t, testSecret, fixedTime)
				token, err := svc.GenerateToken(ctx, userID, "alice")
				require.NoError(t, err)
				return svc, token
			},
		},
		{
			name: "within clock skew",
			setupFunc: func(t *testing.T) (JWTService, string) {
				token, err := newTestService(t, testSecret, fixedTime).GenerateToken(ctx, userID, "alice")
				require.NoError(t, err)
				return newTestService(t, testSecret, fixedTime.Add(time.Hour+time.Minute)), token
			},
		},
		{
			name: "expired token",
			setupFunc: func(t *testing.T) (JWTService, string) {
				token, err := newTestService(t, testSecret, fixedTime).GenerateToken(ctx, userID, "alice")
				require.NoError(t, err)
				return newTestService(t, testSecret, fixedTime.Add(2*time.Hour)), token
			},
			wantErr: ErrExpiredToken,
		},
		{
			name: "invalid signature",
			setupFunc: func(t *testing.T) (JWTService, string) {
				token, err := newTestService(t, testSecret, fixedTime).GenerateToken(ctx, userID, "alice")
				require.NoError(t, err)
				return newTestService(t, wrongSecret, fixedTime), token
			},
			wantErr: ErrInvalidToken,
		},
		{
			name: "malformed token",
			setupFunc: func(t *testing.T) (JWTService, string) {
				return newTestService(t, testSecret, fixedTime), "this.is.not.a.valid.jwt.token"
			},
			wantErr: ErrInvalidToken,
		},
		{
			name: "refresh token used as access token",
			setupFunc: func(t *testing.T) (JWTService, string) {
				svc := newTestService(t, testSecret, fixedTime)
				token, err := svc.GenerateRefreshToken(ctx, userID, "alice")
				require.NoError(t, err)
				return svc, token
			},
			wantErr: ErrWrongTokenType,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc, token := tt.setupFunc(t)
			claims, err := svc.ValidateToken(ctx, token)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, claims)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, userID, claims.UserID)
		})
	}
}

func TestValidateRefreshToken(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	ctx := context.Background()
	svc := newTestService(t, testSecret, fixedTime)

	refresh, err := svc.GenerateRefreshToken(ctx, userID, "alice")
	require.NoError(t, err)

	claims, err := svc.ValidateRefreshToken(ctx, refresh)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, TokenTypeRefresh, claims.TokenType)
	assert.Equal(t, fixedTime.Add(24*time.Hour).Unix(), claims.ExpiresAt.Unix())

	access, err := svc.GenerateToken(ctx, userID, "alice")
	require.NoError(t, err)
	_, err = svc.ValidateRefreshToken(ctx, access)
	assert.ErrorIs(t, err, ErrWrongTokenType)

	later := newTestService(t, testSecret, fixedTime.Add(48*time.Hour))
	_, err = later.ValidateRefreshToken(ctx, refresh)
	assert.ErrorIs(t, err, ErrExpiredRefreshToken)

	_, err = svc.ValidateRefreshToken(ctx, "garbage")
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}
