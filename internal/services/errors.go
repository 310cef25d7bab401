package services

import "errors"

// Sentinel errors returned by the service layer. Handlers translate
// these into HTTP status codes with errors.Is.
var (
	// ErrUsernameTaken is returned when registering a username that
	// already exists.
	ErrUsernameTaken = errors.New("username taken")

	// ErrInvalidCredentials is returned for both an unknown username and
	// a wrong password, so callers cannot enumerate accounts.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUserNotFound is returned when a token subject does not resolve
	// to an existing user record.
	ErrUserNotFound = errors.New("user not found")

	// ErrTodoNotFound is returned when a todo id does not exist.
	ErrTodoNotFound = errors.New("todo not found")

	// ErrNotOwner is returned when a todo exists but belongs to a
	// different user than the caller.
	ErrNotOwner = errors.New("not the owner of this todo")
)
