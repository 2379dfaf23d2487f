package drag

import "errors"

var (
	ErrNotDragging     = errors.New("no drag gesture in progress")
	ErrAlreadyDragging = errors.New("a drag gesture is already in progress")
	ErrCardNotFound    = errors.New("card not found")
	ErrEmptyStatus     = errors.New("drop target status cannot be empty")
)
