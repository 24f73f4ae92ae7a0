// Package domain provides shared domain-level error types.
package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// CollaboratorError wraps a failure from an external dependency (analytics
// API, text generation, chart rendering, document store). Steps wrap it into
// their own failure so the run outcome names both the step and the service.
type CollaboratorError struct {
	Service string
	Err     error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("%s: %v", e.Service, e.Err)
}

func (e *CollaboratorError) Unwrap() error { return e.Err }

// Collab wraps err as a CollaboratorError for the named service.
func Collab(service string, err error) error {
	return &CollaboratorError{Service: service, Err: err}
}
