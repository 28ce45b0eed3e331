package api

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/simple-todos/internal/domain"
)

// RegisterRequest defines the payload for the user registration endpoint.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=32"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// LoginRequest defines the payload for the user login endpoint.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// RefreshTokenRequest defines the payload for the token refresh endpoint.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// AuthResponse defines the successful response for authentication endpoints.
type AuthResponse struct {
	UserID   uuid.UUID `json:"user_id"`
	Username string    `json:"username"`

	// AccessToken is sent as a bearer token on API requests.
	AccessToken string `json:"token"`

	// RefreshToken is exchanged for a new pair at /api/auth/refresh.
	RefreshToken string `json:"refresh_token"`

	// ExpiresAt is the RFC 3339 expiry of the access token.
	ExpiresAt string `json:"expires_at"`
}

// CreateTaskRequest defines the payload of tasks.insert.
type CreateTaskRequest struct {
	Text string `json:"text" validate:"required,max=1000"`
}

// SetCheckedRequest defines the payload of tasks.setChecked.
// Pointers distinguish a missing field from false.
type SetCheckedRequest struct {
	Checked *bool `json:"checked" validate:"required"`
}

// SetPrivateRequest defines the payload of tasks.setPrivate.
type SetPrivateRequest struct {
	Private *bool `json:"private" validate:"required"`
}

// TaskResponse is the wire form of a task.
type TaskResponse struct {
	ID        uuid.UUID `json:"id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
	Owner     uuid.UUID `json:"owner"`
	Username  string    `json:"username"`
	Checked   bool      `json:"checked"`
	Private   bool      `json:"private"`
	Version   int64     `json:"version"`
}

// TaskListResponse is the snapshot of the tasks publication.
type TaskListResponse struct {
	Tasks           []TaskResponse `json:"tasks"`
	IncompleteCount int            `json:"incomplete_count"`
}

// MethodCallRequest is the body of a named method call. Params are positional.
type MethodCallRequest struct {
	Params []json.RawMessage `json:"params"`
}

// MethodCallResponse carries a method's return value, if any.
type MethodCallResponse struct {
	Method string      `json:"method"`
	Result interface{} `json:"result,omitempty"`
}

func taskToResponse(t *domain.Task) TaskResponse {
	return TaskResponse{
		ID:        t.ID,
		Text:      t.Text,
		CreatedAt: t.CreatedAt,
		Owner:     t.Owner,
		Username:  t.Username,
		Checked:   t.Checked,
		Private:   t.Private,
		Version:   t.Version,
	}
}

func tasksToResponse(tasks []*domain.Task) []TaskResponse {
	out := make([]TaskResponse, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, taskToResponse(t))
	}
	return out
}
