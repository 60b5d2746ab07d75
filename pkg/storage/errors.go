package storage

import "errors"

// Sentinel errors for storage operations.
var (
	// ErrNotFound is returned when an account does not exist.
	ErrNotFound = errors.New("account not found")

	// ErrConflict is returned when an account with the same username or
	// email already exists.
	ErrConflict = errors.New("account already exists")
)
