package errs

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation = errors.New("invalid input")
	ErrDuplicate  = errors.New("already exists")
	ErrAuth       = errors.New("invalid credentials")
	ErrNotFound   = errors.New("not found")
	ErrStore      = errors.New("store failure")
)

// FieldError is a problem with a single form field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError collects every field error found in one input.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Message
	}
	return "invalid input: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Add records a field error.
func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// For returns the first message recorded for field, or "".
func (e *ValidationError) For(field string) string {
	if e == nil {
		return ""
	}
	for _, f := range e.Fields {
		if f.Field == field {
			return f.Message
		}
	}
	return ""
}

// OrNil returns nil when no field error was recorded, so callers can
// return the result of a validation pass directly.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

// Invalid builds a ValidationError for a single field.
func Invalid(field, message string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}

// DuplicateError reports a unique value already taken by another record.
type DuplicateError struct {
	Field string
}

func (e *DuplicateError) Error() string {
	if e.Field == "" {
		return ErrDuplicate.Error()
	}
	return fmt.Sprintf("%s %s", e.Field, ErrDuplicate)
}

func (e *DuplicateError) Is(target error) bool { return target == ErrDuplicate }

// StoreError wraps an underlying persistence failure.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }

func (e *StoreError) Unwrap() error { return e.Err }

func (e *StoreError) Is(target error) bool { return target == ErrStore }

// Store wraps err as a StoreError unless it already carries one of the
// domain sentinels.
func Store(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, known := range []error{ErrNotFound, ErrDuplicate, ErrValidation, ErrStore} {
		if errors.Is(err, known) {
			return err
		}
	}
	return &StoreError{Op: op, Err: err}
}
