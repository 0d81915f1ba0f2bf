// Package errors holds the sentinel errors and error constructors shared by the harness
// packages. Constructed errors wrap a sentinel, so callers match them with errors.Is.
package errors

import (
	"errors"
	"fmt"
)

// Suite errors
var (
	ErrNoFixtures         = errors.New("no fixtures configured")
	ErrFixtureNotFound    = errors.New("fixture not found")
	ErrNoMatchingFixtures = errors.New("no fixtures match the specified filter")
	ErrNoExecutable       = errors.New("no executable configured")
	ErrFixtureFailed      = errors.New("fixture failed")
	ErrDuplicateFixture   = errors.New("duplicate fixture")
	ErrCommandFailed      = errors.New("command failed")
)

// Field validation errors
var (
	ErrInvalidField  = errors.New("invalid field")
	ErrEmptyField    = errors.New("field cannot be empty")
	ErrRequiredField = errors.New("field is required")
	ErrInvalidFormat = errors.New("invalid format")
	ErrPathTraversal = errors.New("path traversal detected")
)

// FieldError is a rejected configuration or fixture value
type FieldError struct {
	Field    string
	Value    string
	Expected string // expected format, if any
	Err      error  // one of the field validation sentinels
}

func (e *FieldError) Error() string {
	switch {
	case e.Expected != "":
		return fmt.Sprintf("%v: %s '%s': expected %s", e.Err, e.Field, e.Value, e.Expected)
	case e.Value != "":
		return fmt.Sprintf("%v: %s: %s", e.Err, e.Field, e.Value)
	default:
		return fmt.Sprintf("%v: %s", e.Err, e.Field)
	}
}

func (e *FieldError) Unwrap() error { return e.Err }

// WrapWithContext wraps err as "failed to <operation>: <err>"; nil stays nil
func WrapWithContext(err error, operation string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("failed to %s: %w", operation, err)
}

// InvalidFieldError reports an unacceptable value
func InvalidFieldError(field, value string) error {
	return &FieldError{Field: field, Value: value, Err: ErrInvalidField}
}

// EmptyFieldError reports a field that is set but blank
func EmptyFieldError(field string) error {
	return &FieldError{Field: field, Err: ErrEmptyField}
}

// RequiredFieldError reports a field that is missing
func RequiredFieldError(field string) error {
	return &FieldError{Field: field, Err: ErrRequiredField}
}

// FormatError reports a value that does not parse as expectedFormat
func FormatError(field, value, expectedFormat string) error {
	return &FieldError{Field: field, Value: value, Expected: expectedFormat, Err: ErrInvalidFormat}
}

// PathTraversalError reports a path that escapes its root
func PathTraversalError(path string) error {
	return fmt.Errorf("%w: invalid path '%s'", ErrPathTraversal, path)
}

// CommandFailedError reports a failed setup step or transform command
func CommandFailedError(cmd string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: '%s': %w", ErrCommandFailed, cmd, err)
}

// DuplicateFixtureError reports a fixture name registered more than once
func DuplicateFixtureError(name string) error {
	return fmt.Errorf("%w: %s", ErrDuplicateFixture, name)
}
