package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/simple-todos/internal/api/shared"
	"github.com/phrazzld/simple-todos/internal/domain"
	"github.com/phrazzld/simple-todos/internal/mocks"
	"github.com/phrazzld/simple-todos/internal/service/auth"
	"github.com/stretchr/testify/assert"
)

func TestIdentify(t *testing.T) {
	userID := uuid.New()

	tests := []struct {
		name       string
		header     string
		query      string
		validate   func(ctx context.Context, token string) (*auth.Claims, error)
		wantStatus int
		wantCaller domain.Caller
	}{
		{
			name:       "no credentials is anonymous",
			wantStatus: http.StatusOK,
			wantCaller: domain.Anonymous,
		},
		{
			name:       "valid bearer token",
			header:     "Bearer good",
			wantStatus: http.StatusOK,
			wantCaller: domain.NewCaller(userID, "alice"),
		},
		{
			name:       "valid query token",
			query:      "?token=good",
			wantStatus: http.StatusOK,
			wantCaller: domain.NewCaller(userID, "alice"),
		},
		{
			name:       "malformed header",
			header:     "Token good",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "bearer without token",
			header:     "Bearer ",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:   "expired token",
			header: "Bearer old",
			validate: func(context.Context, string) (*auth.Claims, error) {
				return nil, auth.ErrExpiredToken
			},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:   "refresh token as access token",
			header: "Bearer refresh",
			validate: func(context.Context, string) (*auth.Claims, error) {
				return nil, auth.ErrWrongTokenType
			},
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			jwtService := mocks.NewMockJWTService(userID, "alice")
			if tt.validate != nil {
				jwtService.ValidateTokenFn = tt.validate
			}

			var got domain.Caller
			var called bool
			handler := NewAuthMiddleware(jwtService).Identify(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				got = shared.CallerFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/tasks"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusOK {
				assert.True(t, called)
				assert.Equal(t, tt.wantCaller, got)
			} else {
				assert.False(t, called)
			}
		})
	}
}

func TestExtractToken(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		query   string
		want    string
		wantErr error
	}{
		{name: "none"},
		{name: "bearer", header: "Bearer abc.def", want: "abc.def"},
		{name: "scheme is case-insensitive", header: "bearer abc", want: "abc"},
		{name: "query fallback", query: "?token=abc", want: "abc"},
		{name: "header wins over query", header: "Bearer fromheader", query: "?token=fromquery", want: "fromheader"},
		{name: "empty bearer", header: "Bearer   ", wantErr: auth.ErrMissingToken},
		{name: "bare scheme", header: "Bearer", wantErr: auth.ErrMissingToken},
		{name: "other scheme", header: "Basic dXNlcjpwYXNz", wantErr: auth.ErrInvalidToken},
		{name: "extra parts", header: "Bearer a b", wantErr: auth.ErrInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/tasks"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			got, err := extractToken(req)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
