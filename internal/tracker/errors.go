package tracker

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrInvalidInput    = errors.New("invalid input")
	ErrConflict        = errors.New("resource conflict")
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrPersistence hides store-specific failures from callers.
	ErrPersistence = errors.New("internal failure")
)
