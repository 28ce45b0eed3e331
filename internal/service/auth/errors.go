package auth

import "errors"

// Access token failures. The API answers all of them with 401.
var (
	ErrMissingToken     = errors.New("authentication token is missing")
	ErrInvalidToken     = errors.New("invalid authentication token")
	ErrExpiredToken     = errors.New("authentication token has expired")
	ErrTokenNotYetValid = errors.New("authentication token not yet valid")
)

// Refresh token failures.
var (
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrExpiredRefreshToken = errors.New("refresh token has expired")

	// ErrWrongTokenType is returned when an access token is presented as a
	// refresh token or the other way round.
	ErrWrongTokenType = errors.New("wrong token type")
)
