package transform

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// ErrTransformerPanicked is wrapped by the error recorded for a transformer that panicked
var ErrTransformerPanicked = errors.New("transformer panicked")

// ErrorCategory categorizes transform failures
type ErrorCategory string

const (
	// CategoryCommand indicates the external command failed or exited non-zero
	CategoryCommand ErrorCategory = "command"

	// CategoryQuery indicates the input could not be opened or queried as a database
	CategoryQuery ErrorCategory = "query"

	// CategoryFileSystem indicates reading the input or writing the artifact failed
	CategoryFileSystem ErrorCategory = "file_system"

	// CategoryTimeout indicates the transform ran out of time
	CategoryTimeout ErrorCategory = "timeout"

	// CategoryContext indicates the run was canceled
	CategoryContext ErrorCategory = "context"

	// CategoryGeneric is used for everything else
	CategoryGeneric ErrorCategory = "generic"
)

// Error describes a failed transform. Callers report it as a finding for the derived path
// instead of aborting the comparison.
type Error struct {
	Transformer string
	Input       string
	Output      string
	Category    ErrorCategory
	Duration    time.Duration
	Err         error
}

// NewError wraps err with transform context
func NewError(err error, transformer, input, output string) *Error {
	return &Error{
		Transformer: transformer,
		Input:       input,
		Output:      output,
		Category:    categorizeError(err),
		Err:         err,
	}
}

// Error implements the error interface
func (e *Error) Error() string {
	parts := []string{"transform failed"}
	if e.Err != nil {
		parts[0] = fmt.Sprintf("transform failed: %s", e.Err.Error())
	}
	if e.Input != "" {
		parts = append(parts, fmt.Sprintf("file: %s", e.Input))
	}
	if e.Transformer != "" {
		parts = append(parts, fmt.Sprintf("transform: %s", e.Transformer))
	}
	parts = append(parts, fmt.Sprintf("category: %s", e.Category))
	return strings.Join(parts, " | ")
}

// Unwrap returns the underlying error for errors.Is and errors.As
func (e *Error) Unwrap() error {
	return e.Err
}

// WithDuration records how long the transform ran before failing
func (e *Error) WithDuration(d time.Duration) *Error {
	e.Duration = d
	return e
}

// categorizeError determines the error category from the underlying error
func categorizeError(err error) ErrorCategory {
	var categorized interface{ category() ErrorCategory }
	switch {
	case err == nil:
		return CategoryGeneric
	case errors.Is(err, context.DeadlineExceeded):
		return CategoryTimeout
	case errors.Is(err, context.Canceled):
		return CategoryContext
	case errors.As(err, &categorized):
		return categorized.category()
	}

	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		return CategoryFileSystem
	}
	return CategoryGeneric
}

// categorizedError tags an error with a category at the point it is created
type categorizedError struct {
	cat ErrorCategory
	err error
}

func (c categorizedError) Error() string { return c.err.Error() }
func (c categorizedError) Unwrap() error { return c.err }
func (c categorizedError) category() ErrorCategory { return c.cat }

func withCategory(cat ErrorCategory, err error) error {
	if err == nil {
		return nil
	}
	return categorizedError{cat: cat, err: err}
}
