package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors used across all layers.
var (
	ErrValidation       = errors.New("validation error")
	ErrConflict         = errors.New("conflict")
	ErrStorageOperation = errors.New("storage operation failed")
	ErrResultMismatch   = errors.New("storage result mismatch")
)

// FieldError describes a validation error for a specific field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError contains a list of field-level validation errors.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation: %s — %s", e.Errors[0].Field, e.Errors[0].Message)
	}
	return fmt.Sprintf("validation: %d errors", len(e.Errors))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError creates a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Errors: []FieldError{{Field: field, Message: message}},
	}
}

// NewValidationErrors creates a ValidationError from multiple field errors.
func NewValidationErrors(errs []FieldError) *ValidationError {
	return &ValidationError{Errors: errs}
}

// StorageError is returned when the backing store rejects a statement of a
// publishing batch. It carries the structured details reported by the store
// so callers can decide on logging and retry policy.
type StorageError struct {
	// Op names the phase or statement that failed, e.g. "update shared fields".
	Op       string
	Code     string
	Severity string
	Message  string
	Detail   string
	Where    string
	Routine  string
	Line     int32
	Err      error
}

func (e *StorageError) Error() string {
	var b strings.Builder
	b.WriteString("storage: ")
	b.WriteString(e.Op)
	if e.Code != "" {
		fmt.Fprintf(&b, ": %s %s", e.Severity, e.Code)
	}
	if e.Routine != "" {
		fmt.Fprintf(&b, " (%s:%d)", e.Routine, e.Line)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	} else if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes ErrStorageOperation, ErrConflict for a unique violation,
// and the underlying driver error.
func (e *StorageError) Unwrap() []error {
	errs := []error{ErrStorageOperation}
	if e.Code == uniqueViolation {
		errs = append(errs, ErrConflict)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

const uniqueViolation = "23505"

// Retryable reports whether the whole batch may be retried once the
// transaction was rolled back: serialization failures and deadlocks.
func (e *StorageError) Retryable() bool {
	switch e.Code {
	case "40001", // serialization_failure
		"40P01": // deadlock_detected
		return true
	}
	return false
}
