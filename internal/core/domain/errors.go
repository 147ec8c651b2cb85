package domain

import (
	"errors"
	"fmt"
)

// ErrInvalidBuildID is returned when a build id or name prefix cannot be
// embedded safely in container names and label filters.
var ErrInvalidBuildID = errors.New("invalid build id")

// ImageResolutionError reports a malformed image reference.
// It is raised before any runtime call is made.
type ImageResolutionError struct {
	Reference string
	Err       error
}

func (e *ImageResolutionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("invalid image reference %q", e.Reference)
	}
	return fmt.Sprintf("invalid image reference %q: %v", e.Reference, e.Err)
}

func (e *ImageResolutionError) Unwrap() error { return e.Err }

// RuntimeCallError is any failure surfaced by the container runtime.
// Its message is the runtime's message, unchanged.
type RuntimeCallError struct {
	Op      string
	Err     error
	Timeout bool
}

func (e *RuntimeCallError) Error() string { return e.Err.Error() }

func (e *RuntimeCallError) Unwrap() error { return e.Err }

// CircuitOpenError is returned when the breaker declined to contact the runtime.
type CircuitOpenError struct {
	Op string
}

func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("circuit open: %s not attempted", e.Op)
}
