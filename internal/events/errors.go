package events

import "errors"

var (
	// ErrQueueFull indicates the sink's buffer is exhausted
	ErrQueueFull = errors.New("notification queue full")

	// ErrSinkClosed indicates the sink no longer accepts notifications
	ErrSinkClosed = errors.New("notification sink closed")
)
