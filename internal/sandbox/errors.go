package sandbox

import (
	"fmt"
	"strings"
	"time"
)

// Reason classifies an execution error
type Reason string

const (
	// ReasonLaunch means the subject could not be started (missing or non-executable file)
	ReasonLaunch Reason = "launch"

	// ReasonTimeout means the subject did not exit in time and its process tree was killed
	ReasonTimeout Reason = "timeout"

	// ReasonCanceled means the run was canceled, usually by an interrupt, and the subject's
	// process tree was killed
	ReasonCanceled Reason = "canceled"

	// ReasonExitStatus means the subject exited with a status other than the expected one
	ReasonExitStatus Reason = "exit_status"
)

// ExecutionError reports that the subject did not run as expected. It is recorded next to
// the diff result rather than aborting the comparison.
type ExecutionError struct {
	Reason   Reason
	Command  string
	ExitCode int
	Expected int
	Timeout  time.Duration
	Stderr   string
	Err      error
}

// Error implements the error interface
func (e *ExecutionError) Error() string {
	var msg string
	switch e.Reason {
	case ReasonLaunch:
		msg = fmt.Sprintf("failed to launch '%s'", e.Command)
	case ReasonTimeout:
		msg = fmt.Sprintf("'%s' timed out after %s", e.Command, e.Timeout)
	case ReasonCanceled:
		msg = fmt.Sprintf("'%s' was canceled", e.Command)
	case ReasonExitStatus:
		msg = fmt.Sprintf("'%s' exited with status %d, expected %d", e.Command, e.ExitCode, e.Expected)
	default:
		msg = fmt.Sprintf("'%s' failed", e.Command)
	}

	if e.Err != nil && e.Reason != ReasonExitStatus {
		msg += ": " + e.Err.Error()
	}
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		msg += "\n" + stderr
	}
	return msg
}

// Unwrap returns the underlying error for errors.Is and errors.As
func (e *ExecutionError) Unwrap() error {
	return e.Err
}
