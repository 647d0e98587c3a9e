package geometry

import "errors"

var (
	// ErrNotInitialized is returned when state is read before a successful Initialize.
	ErrNotInitialized = errors.New("geometry not initialized")

	// ErrAlreadyInitialized is returned by a second call to Initialize.
	ErrAlreadyInitialized = errors.New("geometry already initialized")

	// ErrInvalidParameter is returned for malformed geometry, gap or calculator input.
	ErrInvalidParameter = errors.New("invalid geometry parameter")

	// ErrNotFound is returned for unregistered hit types and unknown sub-detector names.
	ErrNotFound = errors.New("not found")
)
