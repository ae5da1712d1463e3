package mydb

import (
	"errors"
	"fmt"
)

var (
	ErrOpen           = errors.New("failed to open database")
	ErrClosed         = errors.New("database is closed")
	ErrInvalidCommand = errors.New("invalid command")
	ErrNoContent      = errors.New("result has no content")
	ErrNotTabular     = errors.New("result is not tabular")
)

// OpenError reports a failed Open. It matches ErrOpen and the underlying
// cause with errors.Is.
type OpenError struct {
	Path string
	Err  error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("failed to open database %q: %v", e.Path, e.Err)
}

func (e *OpenError) Unwrap() []error {
	return []error{ErrOpen, e.Err}
}

// ExecutionError reports a non-zero engine status. Message is taken from the
// payload's message or error field when it has one.
type ExecutionError struct {
	Status  int32
	Message string
	Payload string
}

func (e *ExecutionError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("execution failed with status %d", e.Status)
	}
	return fmt.Sprintf("execution failed with status %d: %s", e.Status, e.Message)
}
