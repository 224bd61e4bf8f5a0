// Package common defines shared sentinel errors and error types used across
// the data access layer, live queries and services. Callers should use
// errors.Is / errors.As to match these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Session errors.
	ErrNotAuthenticated = errors.New("user not authenticated")

	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Service-level errors.
	ErrValidation   = errors.New("validation error")
	ErrAlreadyTaken = errors.New("dose already marked as taken")
)

// ReconciliationError is raised when a change-feed event cannot be applied
// to the local record list. It never escapes a live query.
type ReconciliationError struct {
	Collection string
	Kind       string
	Err        error
}

func (e *ReconciliationError) Error() string {
	return fmt.Sprintf("reconcile %s event on %s: %v", e.Kind, e.Collection, e.Err)
}

func (e *ReconciliationError) Unwrap() error {
	return e.Err
}
