package backend

import (
	"errors"
	"fmt"
)

// ErrUnknownCollection is returned for table names the store does not know.
var ErrUnknownCollection = errors.New("unknown collection")

// Error wraps any failure reported by a store.
type Error struct {
	Op         string
	Collection string
	Err        error
}

func (e *Error) Error() string {
	return fmt.Sprintf("backend %s %s: %v", e.Op, e.Collection, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Wrap returns nil for a nil err, err itself when it already is an *Error,
// and a new *Error otherwise.
func Wrap(op, collection string, err error) error {
	if err == nil {
		return nil
	}
	var be *Error
	if errors.As(err, &be) {
		return err
	}
	return &Error{Op: op, Collection: collection, Err: err}
}
