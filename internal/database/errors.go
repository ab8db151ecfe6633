package database

import "errors"

var (
	// ErrDuplicate is returned by InsertCredential when the login name is
	// already registered.
	ErrDuplicate = errors.New("credential already registered")

	// ErrNotFound is returned when a credential lookup matches nothing.
	ErrNotFound = errors.New("credential not found")
)
