package auth

import "errors"

var (
	// ErrInvalidToken indicates the bearer credential failed validation.
	ErrInvalidToken = errors.New("auth: invalid token")
	// ErrUnknownSubject is returned by resolvers when the token subject no longer exists.
	ErrUnknownSubject = errors.New("auth: unknown subject")
	// ErrMissingSecret is returned when an authenticator is built without a signing secret.
	ErrMissingSecret = errors.New("auth: signing secret is not configured")
)
