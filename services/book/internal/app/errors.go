package app

import "errors"

var (
	// ErrBookNotFound indicates no book exists for the given id, or the id is malformed.
	ErrBookNotFound = errors.New("book not found")
	// ErrStoreUnavailable wraps failures of the underlying book store.
	ErrStoreUnavailable = errors.New("book store unavailable")
)
