// Package env reads dotenv files into environment overlays for the subject under test.
package env

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// ErrMalformed is returned for dotenv content godotenv cannot parse
var ErrMalformed = errors.New("malformed env file")

// Parse reads KEY=VALUE statements. Comments, quoting and an "export " prefix follow
// godotenv; a repeated key keeps its last value.
func Parse(r io.Reader) (map[string]string, error) {
	vars, err := godotenv.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return vars, nil
}

// ParseFile reads the dotenv file at path
func ParseFile(path string) (map[string]string, error) {
	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()

	return Parse(file)
}

// Load reads the dotenv files in order; later files override earlier ones. Every file
// must exist.
func Load(paths ...string) (map[string]string, error) {
	merged := map[string]string{}
	for _, path := range paths {
		vars, err := ParseFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load env file %s: %w", path, err)
		}
		for k, v := range vars {
			merged[k] = v
		}
	}
	return merged, nil
}

// Overlay returns base with overlay applied on top. Neither map is modified.
func Overlay(base, overlay map[string]string) map[string]string {
	if len(base) == 0 && len(overlay) == 0 {
		return nil
	}
	merged := make(map[string]string, len(base)+len(overlay))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range overlay {
		merged[k] = v
	}
	return merged
}
