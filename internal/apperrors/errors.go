package apperrors

import (
	"errors"
)

var (
	ErrUserAlreadyExists = errors.New("user already exists")
	ErrUserNotFound      = errors.New("user not found")

	// Returned for both unknown username and wrong password
	// so responses never reveal which usernames exist
	ErrAuthenticationFailed = errors.New("invalid username or password")

	ErrAccessTokenRequired = errors.New("access token required")
	ErrTokenExpired        = errors.New("token expired")
	ErrTokenInvalid        = errors.New("invalid token")

	ErrRefreshTokenMissing = errors.New("refresh token not found")

	ErrOAuthStateMismatch = errors.New("oauth state mismatch")
)
