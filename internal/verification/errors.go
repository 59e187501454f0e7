package verification

import "errors"

// ErrNotFound is returned when a job does not exist.
var ErrNotFound = errors.New("job not found")

// ValidationError wraps a user-facing validation message.
type ValidationError struct{ Msg string }

func (e *ValidationError) Error() string { return e.Msg }
