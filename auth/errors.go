package auth

import "errors"

// Authentication failures. Handlers map these to fixed status codes and
// never echo the underlying cause to the client.
var (
	// ErrMalformedCredentials: login header absent, not base64, or without ':'.
	ErrMalformedCredentials = errors.New("malformed credentials")
	// ErrInvalidCredentials covers both an unknown user and a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrMissingCredentials: no bearer token on a protected request.
	ErrMissingCredentials = errors.New("missing credentials")
	// ErrInvalidSession: the bearer token belongs to no one.
	ErrInvalidSession = errors.New("invalid session")
	// ErrInvalidRegistration: registration input failed validation.
	ErrInvalidRegistration = errors.New("invalid registration")
)
