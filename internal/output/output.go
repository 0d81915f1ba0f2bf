// Package output prints colored status lines for the command line. Reports and results go
// to stdout; warnings and errors go to stderr.
package output

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"
)

// Writer prints status lines. It is safe for concurrent use, so fixtures finishing on
// different workers never interleave within a line.
type Writer struct {
	successColor *color.Color
	infoColor    *color.Color
	warnColor    *color.Color
	errorColor   *color.Color
	dimColor     *color.Color
	stdout       io.Writer
	stderr       io.Writer
	mu           sync.Mutex
}

// NewWriter creates a Writer. Nil writers discard output.
func NewWriter(stdout, stderr io.Writer, colored bool) *Writer {
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}
	w := &Writer{
		successColor: color.New(color.FgGreen, color.Bold),
		infoColor:    color.New(color.FgCyan),
		warnColor:    color.New(color.FgYellow),
		errorColor:   color.New(color.FgRed, color.Bold),
		dimColor:     color.New(color.Faint),
		stdout:       stdout,
		stderr:       stderr,
	}
	w.SetColor(colored)
	return w
}

// SetColor turns ANSI colors on or off regardless of terminal detection
func (w *Writer) SetColor(enabled bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, c := range []*color.Color{w.successColor, w.infoColor, w.warnColor, w.errorColor, w.dimColor} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
}

func (w *Writer) println(out io.Writer, c *color.Color, msg string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if c == nil {
		_, _ = fmt.Fprintln(out, msg)
		return
	}
	_, _ = c.Fprintln(out, msg)
}

// Success prints a success message in green
func (w *Writer) Success(msg string) { w.println(w.stdout, w.successColor, msg) }

// Successf prints a formatted success message
func (w *Writer) Successf(format string, args ...interface{}) {
	w.Success(fmt.Sprintf(format, args...))
}

// Info prints an info message in cyan
func (w *Writer) Info(msg string) { w.println(w.stdout, w.infoColor, msg) }

// Infof prints a formatted info message
func (w *Writer) Infof(format string, args ...interface{}) {
	w.Info(fmt.Sprintf(format, args...))
}

// Warn prints a warning message in yellow
func (w *Writer) Warn(msg string) { w.println(w.stderr, w.warnColor, msg) }

// Warnf prints a formatted warning message
func (w *Writer) Warnf(format string, args ...interface{}) {
	w.Warn(fmt.Sprintf(format, args...))
}

// Error prints an error message in red
func (w *Writer) Error(msg string) { w.println(w.stderr, w.errorColor, msg) }

// Errorf prints a formatted error message
func (w *Writer) Errorf(format string, args ...interface{}) {
	w.Error(fmt.Sprintf(format, args...))
}

// Plain prints a message without color
func (w *Writer) Plain(msg string) { w.println(w.stdout, nil, msg) }

// Plainf prints a formatted message without color
func (w *Writer) Plainf(format string, args ...interface{}) {
	w.Plain(fmt.Sprintf(format, args...))
}

// Block writes a multi-line block, such as a rendered fixture report, in one piece
func (w *Writer) Block(text string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, _ = io.WriteString(w.stdout, text)
}

// Result prints the one-line verdict for a fixture
func (w *Writer) Result(name string, passed bool, d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()

	verdict := w.successColor.Sprint("ok  ")
	if !passed {
		verdict = w.errorColor.Sprint("FAIL")
	}
	_, _ = fmt.Fprintf(w.stdout, "%s %s %s\n", verdict, name, w.dimColor.Sprintf("(%s)", d.Round(time.Millisecond)))
}

//nolint:gochecknoglobals // Output package requires package-level state for consistent formatting
var (
	std   = NewWriter(os.Stdout, os.Stderr, !color.NoColor)
	stdMu sync.RWMutex
)

// Default returns the package-level writer
func Default() *Writer {
	stdMu.RLock()
	defer stdMu.RUnlock()
	return std
}

// Init replaces the package-level writer; colored is usually false for --no-color or a
// non-terminal stdout
func Init(stdout, stderr io.Writer, colored bool) {
	stdMu.Lock()
	defer stdMu.Unlock()
	std = NewWriter(stdout, stderr, colored)
}

// Error prints an error with the package-level writer
func Error(msg string) { Default().Error(msg) }
