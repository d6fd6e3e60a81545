package task

import "errors"

var (
	// ErrNotPending is returned by Run when the task has already been
	// started or has reached a terminal state.
	ErrNotPending = errors.New("task is not pending")

	// ErrNoWork is recorded as the failure reason of a task built without
	// a delegate.
	ErrNoWork = errors.New("task has no work delegate")

	// ErrEmptyResult is recorded when a delegate returns neither records nor an error.
	ErrEmptyResult = errors.New("task produced no records")
)
