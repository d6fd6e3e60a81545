package task

// Status is the lifecycle state of a Task.
type Status string

const (
	// StatusPending is the initial state.
	StatusPending Status = "pending"
	// StatusRunning is set while the delegate executes.
	StatusRunning Status = "running"
	// StatusSucceeded means the delegate returned a result.
	StatusSucceeded Status = "succeeded"
	// StatusFailed means the delegate returned an error or panicked.
	StatusFailed Status = "failed"
	// StatusCancelled means the context ended before the delegate finished.
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	switch s {
	case StatusSucceeded, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// String implements fmt.Stringer.
func (s Status) String() string {
	return string(s)
}
