package models

import "errors"

// Application-wide standard errors
var (
	// Common resource errors
	ErrNotFound        = errors.New("resource not found")
	ErrMessageNotFound = errors.New("message not found")

	// User & authentication errors
	ErrUserNotFound       = errors.New("user not found")
	ErrUserAlreadyExists  = errors.New("user with this username already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrForbidden          = errors.New("forbidden")

	// Session token errors
	ErrTokenInvalid   = errors.New("token is invalid")
	ErrTokenMalformed = errors.New("token is malformed")
	ErrTokenExpired   = errors.New("token has expired")

	// CSRF errors. Both collapse to the same caller-visible rejection;
	// the distinction exists for server-side diagnostics only.
	ErrCsrfMissing  = errors.New("csrf token missing")
	ErrCsrfMismatch = errors.New("csrf token mismatch")

	// General request/server errors
	ErrInternalServer = errors.New("internal server error")
	ErrInvalidInput   = errors.New("invalid input data")
)
