package todo

import "errors"

// Card-related errors
var (
	// Validation errors
	ErrEmptyTitle       = errors.New("card title cannot be empty")
	ErrTitleTooLong     = errors.New("card title cannot exceed 255 characters")
	ErrInvalidTodoID    = errors.New("invalid card ID")
	ErrUnknownStatus    = errors.New("status does not match any column")
	ErrInvalidPriority  = errors.New("invalid priority")
	ErrEmptyTag         = errors.New("tag cannot be empty")
	ErrDuplicateTag     = errors.New("tag already present on card")
	ErrTagNotFound      = errors.New("tag not present on card")
	ErrEmptyUserID      = errors.New("user id cannot be empty")
	ErrDuplicateUser    = errors.New("user already assigned to card")
	ErrUserNotAssigned  = errors.New("user not assigned to card")
	ErrEmptyItemText    = errors.New("checklist item text cannot be empty")
	ErrItemNotFound     = errors.New("checklist item not found")
	ErrEmptyComment     = errors.New("comment text cannot be empty")
	ErrEmptyDueDate     = errors.New("due date cannot be empty")

	// Business logic errors
	ErrTodoNotFound = errors.New("card not found")
	ErrNotConfirmed = errors.New("action was not confirmed")

	// ErrSyncFailed wraps persistence failures. The local mutation has
	// already been applied; the caller decides whether to surface the
	// store's refusal or carry on with the optimistic state.
	ErrSyncFailed = errors.New("remote persistence failed, local state retained")
)
