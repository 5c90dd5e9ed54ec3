package usage

import (
	"errors"
	"fmt"
)

var (
	// ErrRecorderClosed is returned when a record arrives after Close.
	ErrRecorderClosed = errors.New("usage recorder closed")

	// ErrStoreClosed is returned by operations on a closed store.
	ErrStoreClosed = errors.New("usage store closed")
)

// StorageError represents a failed store operation.
type StorageError struct {
	Backend   string // "memory" or "sqlite"
	Operation string // "open", "store", "summarize", ...
	Cause     error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("usage storage error [backend=%s, operation=%s]: %v", e.Backend, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

func newStorageError(backend, operation string, cause error) *StorageError {
	return &StorageError{Backend: backend, Operation: operation, Cause: cause}
}
