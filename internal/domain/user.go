package domain

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
)

// Username and password length limits.
const (
	MinUsernameLength = 3
	MaxUsernameLength = 32
	MinPasswordLength = 8
	// MaxPasswordLength is bcrypt's input limit.
	MaxPasswordLength = 72
)

// Common validation errors
var (
	ErrEmptyUserID         = fmt.Errorf("%w: user ID cannot be empty", ErrValidation)
	ErrEmptyUsername       = fmt.Errorf("%w: username cannot be empty", ErrValidation)
	ErrInvalidUsername     = fmt.Errorf("%w: invalid username", ErrValidation)
	ErrPasswordTooShort    = fmt.Errorf("%w: password must be at least %d characters long", ErrValidation, MinPasswordLength)
	ErrPasswordTooLong     = fmt.Errorf("%w: password must be at most %d characters long", ErrValidation, MaxPasswordLength)
	ErrEmptyHashedPassword = errors.New("hashed password cannot be empty")
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// User represents a registered account. Tasks record both the user's ID and
// username at creation time.
type User struct {
	ID             uuid.UUID `json:"id"`
	Username       string    `json:"username"`
	Password       string    `json:"-"` // Plaintext password, used temporarily during registration
	HashedPassword string    `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NewUser creates a new User with the given username and plaintext password.
// The caller is responsible for hashing the password before storing the user.
func NewUser(username, password string) (*User, error) {
	now := time.Now().UTC()
	user := &User{
		ID:        uuid.New(),
		Username:  username,
		Password:  password,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := user.Validate(); err != nil {
		return nil, err
	}

	return user, nil
}

// Validate checks if the User has valid data.
// A user must carry either a plaintext password (during registration) or a hash.
func (u *User) Validate() error {
	if u.ID == uuid.Nil {
		return ErrEmptyUserID
	}

	if u.Username == "" {
		return ErrEmptyUsername
	}

	if len(u.Username) < MinUsernameLength || len(u.Username) > MaxUsernameLength ||
		!usernamePattern.MatchString(u.Username) {
		return ErrInvalidUsername
	}

	if u.Password != "" {
		switch {
		case len(u.Password) < MinPasswordLength:
			return ErrPasswordTooShort
		case len(u.Password) > MaxPasswordLength:
			return ErrPasswordTooLong
		}
		return nil
	}

	if u.HashedPassword == "" {
		return ErrEmptyHashedPassword
	}

	return nil
}
