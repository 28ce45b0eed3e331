package mocks

import (
	"github.com/phrazzld/simple-todos/internal/service/auth"
	"golang.org/x/crypto/bcrypt"
)

// MockPasswordVerifier implements auth.PasswordVerifier for testing.
// By default it treats the stored hash as the plaintext, matching the
// default behavior of MockUserStore.Create.
type MockPasswordVerifier struct {
	CompareFn func(hashedPassword, password string) error

	// CompareCallCount tracks how many times Compare was called
	CompareCallCount int
}

var _ auth.PasswordVerifier = (*MockPasswordVerifier)(nil)

// Compare implements the auth.PasswordVerifier interface
func (m *MockPasswordVerifier) Compare(hashedPassword, password string) error {
	m.CompareCallCount++

	if m.CompareFn != nil {
		return m.CompareFn(hashedPassword, password)
	}
	if hashedPassword != password {
		return bcrypt.ErrMismatchedHashAndPassword
	}
	return nil
}
