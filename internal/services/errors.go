package services

import "errors"

// Sentinel errors mapped to client-facing categories by the handlers.
var (
	// ErrNotFound covers both "does not exist" and "exists but belongs to
	// another user": the two must be indistinguishable to the caller.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateEmail signals an email collision on registration or profile update.
	ErrDuplicateEmail = errors.New("email already in use")

	// ErrInvalidCredentials covers both unknown email and password mismatch
	// so the login endpoint can't be used for account enumeration.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrValidation signals a field-level constraint violation.
	ErrValidation = errors.New("validation failed")
)
