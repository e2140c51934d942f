package core

import (
	"errors"
	"fmt"
)

// Predefined errors for common failure scenarios.
var (
	// ErrNotFound indicates that a requested memory was not found, or that
	// it belongs to a different user. The two cases are deliberately
	// indistinguishable so that existence of another user's data never
	// leaks.
	ErrNotFound = errors.New("memory not found")

	// ErrInvalidConfig indicates that the provided configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidInput indicates that the provided input is invalid.
	ErrInvalidInput = errors.New("invalid input")

	// ErrDimensionMismatch indicates that an existing store's dimension
	// does not match the active embedding model. Switching models for a
	// store that already exists is a configuration error, never
	// auto-healed.
	ErrDimensionMismatch = errors.New("store dimension does not match embedding model")

	// ErrStoreOperation indicates that a backing-index operation failed.
	ErrStoreOperation = errors.New("store operation failed")

	// ErrInferenceOperation indicates that a chat-inference call failed.
	ErrInferenceOperation = errors.New("inference operation failed")
)

// MemoryError wraps errors with operation context.
//
// Example:
//
//	err := &MemoryError{Op: "Add", Err: ErrInvalidInput}
//	// Error() returns: "vectormem: Add: invalid input"
type MemoryError struct {
	// Op is the name of the operation that failed.
	Op string

	// Err is the underlying error.
	Err error
}

// Error returns a formatted error message in the form
// "vectormem: <Op>: <Err>".
func (e *MemoryError) Error() string {
	return fmt.Sprintf("vectormem: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is and errors.As.
func (e *MemoryError) Unwrap() error {
	return e.Err
}

// NewMemoryError creates a new MemoryError wrapping the given error.
// If err is nil, returns nil, which allows safe unconditional wrapping.
func NewMemoryError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &MemoryError{
		Op:  op,
		Err: err,
	}
}
