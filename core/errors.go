package core

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a task, checkpoint or queue entry does not
	// exist in the underlying store.
	ErrNotFound = errors.New("not found")

	// ErrInvalidTransition is returned when a lifecycle operation is applied
	// to a task in an incompatible status (pause on a non-running task,
	// resume on a non-paused task, cancel on a terminal task).
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrTaskRunning is returned when a destructive operation (checkpoint
	// restore) is attempted while the task is not confirmed paused.
	ErrTaskRunning = errors.New("task must be paused")
)

// ValidationError rejects invalid input before anything is persisted.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// StorageError wraps an underlying store failure. Read paths degrade to empty
// results on storage errors; write paths abort and surface the error.
type StorageError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("storage unavailable during %s: %v", e.Op, e.Err)
}

// Unwrap exposes the underlying cause for errors.Is/As.
func (e *StorageError) Unwrap() error { return e.Err }

// NewStorageError wraps err with the failing operation name. Returns nil when
// err is nil so call sites can wrap unconditionally.
func NewStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

// IsStorageUnavailable reports whether err stems from store unavailability.
func IsStorageUnavailable(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

// LimitError marks a task failure caused by an exceeded resource budget.
// Tasks failing on limits carry a descriptive reason; they are never silently
// dropped.
type LimitError struct {
	Limit string // "iterations", "tool_calls" or "timeout"
	Max   int
}

// Error implements the error interface.
func (e *LimitError) Error() string {
	switch e.Limit {
	case "iterations":
		return fmt.Sprintf("max iterations reached (%d)", e.Max)
	case "tool_calls":
		return fmt.Sprintf("max tool calls reached (%d)", e.Max)
	case "timeout":
		return "task timeout exceeded"
	default:
		return fmt.Sprintf("limit %s exceeded", e.Limit)
	}
}
