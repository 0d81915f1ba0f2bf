// Package fixture binds golden fixtures to the sandbox runner and tree diff engine.
//
// A fixture is a directory holding a "before" tree, copied into a sandbox where the
// subject runs, and an "after" tree the sandbox must match once the subject exits.
package fixture

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	appErrors "github.com/mrz1836/go-cligolden/internal/errors"
	"github.com/mrz1836/go-cligolden/internal/ignore"
)

const (
	// BeforeDirName holds the tree copied into the sandbox
	BeforeDirName = "before"

	// AfterDirName holds the expected tree
	AfterDirName = "after"
)

// Fixture is one golden test case. It is read-only during a run.
type Fixture struct {
	Name string

	// Dir contains the before and after trees
	Dir string

	// Args is a shell-style argument string appended to the default arguments. It may
	// reference setup variables as {{NAME}} or ${NAME}.
	Args string

	// Env is overlaid on the suite environment; values may reference setup variables
	Env map[string]string

	// Ignores extend the suite ignore rules for this fixture only
	Ignores []ignore.Rule

	// Setup runs against the before tree once, before the first sandbox copy
	Setup []Hook

	// Timeout overrides the suite timeout when non-zero
	Timeout time.Duration

	// ExitCode is the expected exit status of the subject
	ExitCode int
}

// BeforeDir returns the directory copied into the sandbox
func (f Fixture) BeforeDir() string {
	return filepath.Join(f.Dir, BeforeDirName)
}

// AfterDir returns the expected tree
func (f Fixture) AfterDir() string {
	return filepath.Join(f.Dir, AfterDirName)
}

// Discover lists the fixtures under root: every directory with an after/ subdirectory.
// Fixtures are returned sorted by name with no arguments.
func Discover(root string) ([]Fixture, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, appErrors.FileReadError(root, err)
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, appErrors.FileReadError(root, err)
	}

	var fixtures []Fixture
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(abs, entry.Name())
		if info, err := os.Stat(filepath.Join(dir, AfterDirName)); err != nil || !info.IsDir() {
			continue
		}
		fixtures = append(fixtures, Fixture{Name: entry.Name(), Dir: dir})
	}
	return fixtures, nil
}

// SetupError reports that a fixture could not be prepared or sandboxed. It aborts that
// fixture only.
type SetupError struct {
	Fixture string
	Stage   string
	Err     error
}

// Error implements the error interface
func (e *SetupError) Error() string {
	return fmt.Sprintf("fixture %s: %s failed: %v", e.Fixture, e.Stage, e.Err)
}

// Unwrap returns the underlying error for errors.Is and errors.As
func (e *SetupError) Unwrap() error {
	return e.Err
}
