package attachment

import "errors"

// Validation errors
var (
	ErrNotImage      = errors.New("file is not an image")
	ErrImageTooLarge = errors.New("image exceeds the maximum upload size")
	ErrEmptyData     = errors.New("attachment has no content")
	ErrEmptyName     = errors.New("attachment name cannot be empty")
)

// Lookup errors
var (
	ErrCardNotFound       = errors.New("card not found")
	ErrAttachmentNotFound = errors.New("attachment not found")
	ErrNoLocator          = errors.New("attachment has no content locator")
)
