package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/phrazzld/simple-todos/internal/api/shared"
	"github.com/phrazzld/simple-todos/internal/domain"
	"github.com/phrazzld/simple-todos/internal/service"
	"github.com/phrazzld/simple-todos/internal/service/auth"
	"github.com/phrazzld/simple-todos/internal/store"
	"github.com/stretchr/testify/assert"
)

func TestMapErrorToStatusCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not authorized", domain.ErrNotAuthorized, http.StatusForbidden},
		{"wrapped not authorized", fmt.Errorf("remove: %w", domain.ErrNotAuthorized), http.StatusForbidden},
		{"invalid token", auth.ErrInvalidToken, http.StatusUnauthorized},
		{"expired token", auth.ErrExpiredToken, http.StatusUnauthorized},
		{"invalid refresh token", auth.ErrInvalidRefreshToken, http.StatusUnauthorized},
		{"invalid credentials", service.ErrInvalidCredentials, http.StatusUnauthorized},
		{"task not found", store.ErrTaskNotFound, http.StatusNotFound},
		{"user not found", store.ErrUserNotFound, http.StatusNotFound},
		{"username exists", fmt.Errorf("create: %w", store.ErrUsernameExists), http.StatusConflict},
		{"empty text", domain.ErrEmptyTaskText, http.StatusBadRequest},
		{"invalid id", domain.ErrInvalidID, http.StatusBadRequest},
		{"invalid entity", store.ErrInvalidEntity, http.StatusBadRequest},
		{"invalid params", ErrInvalidParams, http.StatusBadRequest},
		{"unknown", errors.New("connection refused"), http.StatusInternalServerError},
		{
			"task service error",
			service.NewTaskServiceError("remove", "commit failed", errors.New("tx aborted")),
			http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MapErrorToStatusCode(tt.err))
		})
	}
}

func TestGetSafeErrorMessage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, "An unexpected error occurred"},
		{"not authorized", domain.ErrNotAuthorized, "not-authorized"},
		{"task not found", store.ErrTaskNotFound, "Task not found"},
		{"username exists", store.ErrUsernameExists, "Username already exists"},
		{"credentials", service.ErrInvalidCredentials, "Invalid username or password"},
		{"expired", auth.ErrExpiredToken, "Token expired"},
		{"text too long", domain.ErrTaskTextTooLong, "Task text is too long"},
		{"invalid username", domain.ErrInvalidUsername, "Invalid username"},
		{
			"validation error",
			domain.NewValidationError("id", "has invalid format", domain.ErrInvalidID),
			"Invalid request: id has invalid format",
		},
		{
			"internal details are hidden",
			fmt.Errorf("query failed: %w", errors.New(`pq: relation "tasks" at postgres://admin:pw@db/todos`)),
			"An unexpected error occurred",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetSafeErrorMessage(tt.err))
		})
	}
}

func TestHandleAPIError(t *testing.T) {
	t.Parallel()

	t.Run("fallback replaces generic 500 message", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(shared.SetTraceID(req.Context()))

		HandleAPIError(rec, req, errors.New("SELECT * FROM tasks failed"), "Failed to list tasks")

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		var body shared.ErrorResponse
		decodeBody(t, rec, &body)
		assert.Equal(t, "Failed to list tasks", body.Error)
		assert.NotEmpty(t, body.TraceID)
		assert.NotContains(t, rec.Body.String(), "SELECT")
	})

	t.Run("fallback ignored for mapped errors", func(t *testing.T) {
		rec := httptest.NewRecorder()
		HandleAPIError(rec, httptest.NewRequest(http.MethodGet, "/", nil), domain.ErrNotAuthorized, "Failed")

		assert.Equal(t, http.StatusForbidden, rec.Code)
		var body shared.ErrorResponse
		decodeBody(t, rec, &body)
		assert.Equal(t, "not-authorized", body.Error)
	})
}
