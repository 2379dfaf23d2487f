package column

import "errors"

// Column-related errors
var (
	// Validation errors
	ErrEmptyTitle      = errors.New("column title cannot be empty")
	ErrTitleTooLong    = errors.New("column title cannot exceed 50 characters")
	ErrInvalidColumnID = errors.New("invalid column ID")
	ErrInvalidColor    = errors.New("invalid column color")
	ErrEmptyImage      = errors.New("background image payload cannot be empty")

	// Business logic errors
	ErrColumnNotFound = errors.New("column not found")
	ErrNotEditing     = errors.New("no column rename in progress")
	ErrNotConfirmed   = errors.New("action was not confirmed")

	// ErrSyncFailed wraps persistence failures. The optimistic local list
	// has already been applied and mirrored to the cache; the caller
	// decides whether to surface the store's refusal.
	ErrSyncFailed = errors.New("remote persistence failed, local state retained")
)
