package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is the root of every "entity does not exist" error.
// Entity packages wrap it so callers can match either the specific or the generic form.
var ErrNotFound = errors.New("entity not found")

// ErrPartialFailure means a cascading delete left rows behind inside its own transaction.
// The transaction is rolled back when this is returned.
var ErrPartialFailure = errors.New("partial failure: dangling references after delete")

// StorageError wraps a failure of the durable store or the revocation cache.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Storage wraps err as a *StorageError unless it is nil or already one.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}

	var se *StorageError
	if errors.As(err, &se) {
		return err
	}

	return &StorageError{Op: op, Err: err}
}

// IsStorage reports whether err carries a *StorageError.
func IsStorage(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}
