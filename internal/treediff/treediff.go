// Package treediff compares the tree a subject produced against the expected golden tree.
package treediff

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	appErrors "github.com/mrz1836/go-cligolden/internal/errors"
	"github.com/mrz1836/go-cligolden/internal/ignore"
	"github.com/mrz1836/go-cligolden/internal/logging"
	"github.com/mrz1836/go-cligolden/internal/normalize"
	"github.com/mrz1836/go-cligolden/internal/transform"
)

// Kind is the outcome of comparing one path
type Kind int

const (
	// Match means both trees hold equal content
	Match Kind = iota
	// MissingInActual means only the expected tree has the path
	MissingInActual
	// MissingInExpected means only the produced tree has the path
	MissingInExpected
	// ContentMismatch means both trees have the path with different content, or a
	// transform that should have produced it failed
	ContentMismatch
)

func (k Kind) String() string {
	switch k {
	case Match:
		return "match"
	case MissingInActual:
		return "missing-in-actual"
	case MissingInExpected:
		return "missing-in-expected"
	case ContentMismatch:
		return "content-mismatch"
	default:
		return "unknown"
	}
}

// Entry is the outcome for one relative path
type Entry struct {
	Path string
	Kind Kind

	// Binary is set when the content was compared byte for byte
	Binary bool

	// Diff holds a unified diff of the normalized text for text mismatches
	Diff string

	// ExpectedText and ActualText hold the normalized text of a text mismatch
	ExpectedText string
	ActualText   string

	ExpectedSize int64
	ActualSize   int64
	ExpectedSum  string
	ActualSum    string

	// Err is the transform failure that should have produced this path
	Err error
}

// Result is the ordered outcome of a comparison. Every non-ignored path of either tree
// appears exactly once, sorted by relative path.
type Result struct {
	Entries    []Entry
	Transforms []transform.Outcome
}

// Failures returns every entry that is not a match
func (r *Result) Failures() []Entry {
	if r == nil {
		return nil
	}
	return lo.Filter(r.Entries, func(e Entry, _ int) bool { return e.Kind != Match })
}

// Passed reports whether every entry matched
func (r *Result) Passed() bool {
	return len(r.Failures()) == 0
}

// Counts returns the number of entries per kind
func (r *Result) Counts() map[Kind]int {
	if r == nil {
		return map[Kind]int{}
	}
	return lo.CountValuesBy(r.Entries, func(e Entry) Kind { return e.Kind })
}

// Entry returns the entry for path
func (r *Result) Entry(path string) (Entry, bool) {
	if r == nil {
		return Entry{}, false
	}
	return lo.Find(r.Entries, func(e Entry) bool { return e.Path == path })
}

// Options configures an Engine
type Options struct {
	Ignore     *ignore.Matcher
	Pipeline   *transform.Pipeline
	Normalizer *normalize.Normalizer

	// Variables are passed to transformers
	Variables map[string]string

	Logger    *logrus.Logger
	LogConfig *logging.LogConfig
}

// Engine compares trees. It is immutable and safe for concurrent use; the With methods
// return scoped copies.
type Engine struct {
	ignore     *ignore.Matcher
	pipeline   *transform.Pipeline
	normalizer *normalize.Normalizer
	variables  map[string]string
	logger     *logrus.Logger
	logConfig  *logging.LogConfig
}

// NewEngine creates an Engine
func NewEngine(opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	return &Engine{
		ignore:     opts.Ignore,
		pipeline:   opts.Pipeline,
		normalizer: opts.Normalizer,
		variables:  opts.Variables,
		logger:     logger,
		logConfig:  opts.LogConfig,
	}
}

// WithIgnore returns a copy of the engine using m
func (e *Engine) WithIgnore(m *ignore.Matcher) *Engine {
	scoped := *e
	scoped.ignore = m
	return &scoped
}

// WithNormalizer returns a copy of the engine using n
func (e *Engine) WithNormalizer(n *normalize.Normalizer) *Engine {
	scoped := *e
	scoped.normalizer = n
	return &scoped
}

// WithVariables returns a copy of the engine passing vars to transformers
func (e *Engine) WithVariables(vars map[string]string) *Engine {
	scoped := *e
	scoped.variables = vars
	return &scoped
}

// Ignore returns the engine's ignore matcher
func (e *Engine) Ignore() *ignore.Matcher { return e.ignore }

// Normalizer returns the engine's normalizer
func (e *Engine) Normalizer() *normalize.Normalizer { return e.normalizer }

// node is a comparable filesystem entry
type node struct {
	abs     string
	symlink bool
}

// Compare runs the transform pipeline over actualRoot, then compares it with
// expectedRoot. The expected tree is never written to. A missing actual root compares as an
// empty tree; a missing expected root is an error.
func (e *Engine) Compare(ctx context.Context, actualRoot, expectedRoot string) (*Result, error) {
	start := time.Now()
	log := logging.WithStandardFields(e.logger, e.logConfig, logging.ComponentNames.Diff).
		WithField(logging.StandardFields.Operation, logging.OperationTypes.TreeCompare)

	if _, err := os.Stat(expectedRoot); err != nil {
		return nil, appErrors.FileReadError(expectedRoot, err)
	}

	result := &Result{}

	actualExists := true
	if _, err := os.Stat(actualRoot); errors.Is(err, os.ErrNotExist) {
		actualExists = false
	}

	if actualExists && e.pipeline.Len() > 0 {
		outcomes, err := e.pipeline.ApplyTree(ctx, actualRoot, e.variables)
		if err != nil {
			return nil, err
		}
		result.Transforms = outcomes
	}

	actual := map[string]node{}
	if actualExists {
		var err error
		if actual, err = scan(actualRoot); err != nil {
			return nil, err
		}
	}
	expected, err := scan(expectedRoot)
	if err != nil {
		return nil, err
	}

	paths := lo.Union(lo.Keys(actual), lo.Keys(expected))
	sort.Strings(paths)

	for _, rel := range paths {
		if rule, ignored := e.ignore.MatchingRule(rel); ignored {
			if e.logConfig.Debugging(logging.ComponentNames.Diff) {
				log.WithFields(logrus.Fields{
					logging.StandardFields.FilePath: rel,
					logging.StandardFields.Rule:     rule.String(),
				}).Trace("Path ignored")
			}
			continue
		}

		a, inActual := actual[rel]
		x, inExpected := expected[rel]
		switch {
		case !inActual:
			result.Entries = append(result.Entries, Entry{Path: rel, Kind: MissingInActual})
		case !inExpected:
			result.Entries = append(result.Entries, Entry{Path: rel, Kind: MissingInExpected})
		default:
			entry, err := e.compareNodes(rel, a, x)
			if err != nil {
				return nil, err
			}
			result.Entries = append(result.Entries, entry)
		}
	}

	e.foldTransformFailures(result)

	failures := len(result.Failures())
	log.WithFields(logrus.Fields{
		logging.StandardFields.FileCount:  len(result.Entries),
		logging.StandardFields.Mismatches: failures,
		logging.StandardFields.DurationMs: time.Since(start).Milliseconds(),
	}).Debug("Tree comparison completed")

	return result, nil
}

// foldTransformFailures turns every failed transform into a content mismatch for the path
// it should have produced, keeping one entry per path
func (e *Engine) foldTransformFailures(result *Result) {
	inserted := false
	for _, outcome := range result.Transforms {
		if outcome.Err == nil || outcome.Output == "" || e.ignore.IsIgnored(outcome.Output) {
			continue
		}

		_, idx, found := lo.FindIndexOf(result.Entries, func(en Entry) bool { return en.Path == outcome.Output })
		if found {
			result.Entries[idx].Kind = ContentMismatch
			result.Entries[idx].Err = outcome.Err
			continue
		}

		result.Entries = append(result.Entries, Entry{Path: outcome.Output, Kind: ContentMismatch, Err: outcome.Err})
		inserted = true
	}

	if inserted {
		sort.SliceStable(result.Entries, func(i, j int) bool { return result.Entries[i].Path < result.Entries[j].Path })
	}
}

func (e *Engine) compareNodes(rel string, actual, expected node) (Entry, error) {
	entry := Entry{Path: rel, Kind: Match}

	actualData, err := readNode(actual)
	if err != nil {
		return entry, err
	}
	expectedData, err := readNode(expected)
	if err != nil {
		return entry, err
	}

	entry.ActualSize = int64(len(actualData))
	entry.ExpectedSize = int64(len(expectedData))

	if actual.symlink || expected.symlink || IsBinary(rel, expectedData) || IsBinary(rel, actualData) {
		entry.Binary = !actual.symlink && !expected.symlink
		if !bytes.Equal(actualData, expectedData) {
			entry.Kind = ContentMismatch
			entry.ActualSum = checksum(actualData)
			entry.ExpectedSum = checksum(expectedData)
			if !entry.Binary {
				entry.ExpectedText, entry.ActualText = string(expectedData), string(actualData)
			}
		}
		return entry, nil
	}

	expectedText := e.normalizeText(expectedData)
	actualText := e.normalizeText(actualData)
	if expectedText == actualText {
		return entry, nil
	}

	entry.Kind = ContentMismatch
	entry.ExpectedText = expectedText
	entry.ActualText = actualText
	entry.Diff = UnifiedDiff(rel, expectedText, actualText)

	if e.logConfig.Debugging(logging.ComponentNames.Diff) {
		e.logger.WithFields(logrus.Fields{
			logging.StandardFields.Component: logging.ComponentNames.Diff,
			logging.StandardFields.FilePath:  rel,
		}).Debug("Content mismatch")
	}
	return entry, nil
}

func (e *Engine) normalizeText(data []byte) string {
	text := string(bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n")))
	return e.normalizer.Normalize(text)
}

// UnifiedDiff renders a unified diff of expected against actual for path
func UnifiedDiff(path, expected, actual string) string {
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(expected),
		B:        difflib.SplitLines(actual),
		FromFile: "expected/" + path,
		ToFile:   "actual/" + path,
		Context:  3,
	})
	if err != nil {
		return err.Error()
	}
	return diff
}

func checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// readNode returns the content of a file, or "-> target" for a symlink
func readNode(n node) ([]byte, error) {
	if n.symlink {
		target, err := os.Readlink(n.abs)
		if err != nil {
			return nil, appErrors.FileReadError(n.abs, err)
		}
		return []byte("-> " + filepath.ToSlash(target)), nil
	}
	data, err := os.ReadFile(n.abs)
	if err != nil {
		return nil, appErrors.FileReadError(n.abs, err)
	}
	return data, nil
}

// scan collects regular files and symlinks under root keyed by slash-separated relative path
func scan(root string) (map[string]node, error) {
	nodes := map[string]node{}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		isLink := d.Type()&fs.ModeSymlink != 0
		if !isLink && !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		nodes[filepath.ToSlash(rel)] = node{abs: path, symlink: isLink}
		return nil
	})
	if err != nil {
		return nil, appErrors.DirectoryWalkError(root, err)
	}
	return nodes, nil
}
