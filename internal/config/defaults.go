// Package config loads the harness configuration file and builds the fixture suite from it.
package config

import "github.com/mrz1836/go-cligolden/internal/transform"

const (
	// DefaultTimeout bounds one subject run
	DefaultTimeout = "2m"

	// DefaultFixturesDir holds one directory per fixture
	DefaultFixturesDir = "fixtures"

	// DefaultSQLiteQuery dumps a documentation search index
	DefaultSQLiteQuery = transform.DefaultSQLiteQuery

	// CaptureStdout and CaptureCombined select the streams written to execution_output.txt
	CaptureStdout   = "stdout"
	CaptureCombined = "combined"

	// TransformSQLite and TransformCommand are the supported transform types
	TransformSQLite  = "sqlite"
	TransformCommand = "command"
)

// DefaultIgnores returns the rules applied unless default_ignores is false. They cover
// files the operating system or a VCS drops into fixture trees.
func DefaultIgnores() []string {
	return []string{
		".DS_Store", // macOS files
		".git",      // Git directories
	}
}

// ApplyTransformDefaults fills in the suffix and query a transform type implies.
// If t is nil, the function returns immediately without panic.
func ApplyTransformDefaults(t *TransformSpec) {
	if t == nil {
		return
	}
	if t.Type == "" && t.Command != "" {
		t.Type = TransformCommand
	}
	if t.Type == TransformSQLite {
		if t.Query == "" {
			t.Query = DefaultSQLiteQuery
		}
		if t.Suffix == "" {
			t.Suffix = ".csv"
		}
	}
	if t.Type == TransformCommand && t.Suffix == "" {
		t.Suffix = ".txt"
	}
}
