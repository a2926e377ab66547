package service

import "errors"

// The full taxonomy exists for server-side logs and audit records. The HTTP
// layer collapses everything here to a generic 401 or 403 so responses never
// reveal which validation step failed.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountBlocked     = errors.New("account blocked")
	ErrMissingToken       = errors.New("missing refresh token")
	ErrInvalidToken       = errors.New("invalid token")
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionInvalidated = errors.New("session invalidated")
	ErrForbidden          = errors.New("forbidden")
	ErrEmailTaken         = errors.New("email already registered")
)
