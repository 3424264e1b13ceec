package apperrors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrMissingConfig = errors.New("missing required configuration")
)

// FatalError marks failures that must abort the whole run: connectivity and
// auth failures, exhausted store retries, bad configuration. Row-level
// validation and structural errors are never wrapped in it; they are
// collected into the run summary instead.
type FatalError struct {
	Op  string
	Err error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// Fatal wraps err as run-aborting. Returns nil for a nil err.
func Fatal(op string, err error) error {
	if err == nil {
		return nil
	}
	return &FatalError{Op: op, Err: err}
}

// IsFatal reports whether err (or anything it wraps) aborts the run.
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}
