package mocks

import (
	"context"
	"time"

	"github.com/phrazzld/simple-todos/internal/domain"
	"github.com/phrazzld/simple-todos/internal/service"
)

// MockUserService is a function-field mock of service.UserService.
// Unset functions return Result and Err.
type MockUserService struct {
	RegisterFn func(ctx context.Context, username, password string) (*service.AuthResult, error)
	LoginFn    func(ctx context.Context, username, password string) (*service.AuthResult, error)
	RefreshFn  func(ctx context.Context, refreshToken string) (*service.AuthResult, error)

	Result *service.AuthResult
	Err    error
}

var _ service.UserService = (*MockUserService)(nil)

// NewMockUserService returns a mock whose operations succeed for user.
func NewMockUserService(user *domain.User) *MockUserService {
	return &MockUserService{
		Result: &service.AuthResult{
			User:         user,
			AccessToken:  "mock-access-token",
			RefreshToken: "mock-refresh-token",
			ExpiresAt:    time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
		},
	}
}

// Register implements service.UserService
func (m *MockUserService) Register(ctx context.Context, username, password string) (*service.AuthResult, error) {
	if m.RegisterFn != nil {
		return m.RegisterFn(ctx, username, password)
	}
	return m.result()
}

// Login implements service.UserService
func (m *MockUserService) Login(ctx context.Context, username, password string) (*service.AuthResult, error) {
	if m.LoginFn != nil {
		return m.LoginFn(ctx, username, password)
	}
	return m.result()
}

// Refresh implements service.UserService
func (m *MockUserService) Refresh(ctx context.Context, refreshToken string) (*service.AuthResult, error) {
	if m.RefreshFn != nil {
		return m.RefreshFn(ctx, refreshToken)
	}
	return m.result()
}

func (m *MockUserService) result() (*service.AuthResult, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Result, nil
}
