package auth

import "errors"

var (
	// ErrMissingField indicates a registration request with an empty
	// required field.
	ErrMissingField = errors.New("missing required field")

	// ErrInvalidCredentials indicates a failed username/password check.
	ErrInvalidCredentials = errors.New("invalid credentials")
)
