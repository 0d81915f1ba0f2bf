// Package transform produces comparable artifacts from files that cannot be compared
// directly, such as a CSV dump of a binary SQLite index.
package transform

import (
	"context"
	"path/filepath"

	"github.com/mrz1836/go-cligolden/internal/logging"
)

// Transformer derives an artifact from a single file of a tree
type Transformer interface {
	// Name returns the name of this transformer
	Name() string

	// Output returns the absolute path of the artifact derived from the file at input
	Output(input string) string

	// Transform writes the derived artifact. Running it again over the same input must
	// overwrite the artifact rather than fail.
	Transform(ctx context.Context, tctx Context) error
}

// Context describes the file a transformer is applied to
type Context struct {
	// Root is the absolute root of the tree being transformed
	Root string

	// RelPath is the slash-separated path of the input relative to Root
	RelPath string

	// Variables contains values available to command templates
	Variables map[string]string

	// LogConfig provides configuration for debug logging and verbose settings
	LogConfig *logging.LogConfig
}

// Path returns the absolute path of the input file
func (c Context) Path() string {
	return filepath.Join(c.Root, filepath.FromSlash(c.RelPath))
}
