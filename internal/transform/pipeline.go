package transform

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/sirupsen/logrus"

	appErrors "github.com/mrz1836/go-cligolden/internal/errors"
	"github.com/mrz1836/go-cligolden/internal/logging"
)

// Rule pairs a glob with the transformer applied to matching files. Patterns without a
// slash match the file name, patterns with a slash match the whole relative path.
type Rule struct {
	Pattern     string
	Transformer Transformer
}

// NewRule validates pattern and creates a rule
func NewRule(pattern string, transformer Transformer) (Rule, error) {
	if transformer == nil {
		return Rule{}, appErrors.RequiredFieldError("transformer")
	}
	if pattern == "" || !doublestar.ValidatePattern(pattern) {
		return Rule{}, appErrors.FormatError("transform glob", pattern, "valid glob pattern")
	}
	return Rule{Pattern: pattern, Transformer: transformer}, nil
}

// Matches reports whether the rule applies to relPath
func (r Rule) Matches(relPath string) bool {
	target := relPath
	if !strings.Contains(r.Pattern, "/") {
		target = path.Base(relPath)
	}
	ok, _ := doublestar.Match(r.Pattern, target)
	return ok
}

// Outcome records one transformer run
type Outcome struct {
	// Input and Output are slash-separated paths relative to the tree root
	Input       string
	Output      string
	Transformer string
	Duration    time.Duration
	// Err is a *Error when the transform failed
	Err error
}

// Pipeline applies registered rules to the files of a tree. It holds no per-run state and
// may be shared by concurrent fixture runs.
type Pipeline struct {
	rules     []Rule
	logger    *logrus.Logger
	logConfig *logging.LogConfig
}

// NewPipeline creates a pipeline over rules
func NewPipeline(logger *logrus.Logger, logConfig *logging.LogConfig, rules ...Rule) *Pipeline {
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	return &Pipeline{
		rules:     append([]Rule(nil), rules...),
		logger:    logger,
		logConfig: logConfig,
	}
}

// Rules returns a copy of the registered rules
func (p *Pipeline) Rules() []Rule {
	if p == nil {
		return nil
	}
	return append([]Rule(nil), p.rules...)
}

// Len returns the number of registered rules
func (p *Pipeline) Len() int {
	if p == nil {
		return 0
	}
	return len(p.rules)
}

// Apply runs every rule matching relPath once. Failures are returned in the outcomes and
// never stop the remaining rules.
func (p *Pipeline) Apply(ctx context.Context, root, relPath string, vars map[string]string) []Outcome {
	if p.Len() == 0 {
		return nil
	}

	log := logging.WithStandardFields(p.logger, p.logConfig, logging.ComponentNames.Transform)
	tctx := Context{Root: root, RelPath: relPath, Variables: vars, LogConfig: p.logConfig}

	var outcomes []Outcome
	for _, rule := range p.rules {
		if !rule.Matches(relPath) {
			continue
		}

		select {
		case <-ctx.Done():
			return append(outcomes, Outcome{
				Input:       relPath,
				Transformer: rule.Transformer.Name(),
				Err:         NewError(ctx.Err(), rule.Transformer.Name(), relPath, ""),
			})
		default:
		}

		outcomes = append(outcomes, p.run(ctx, log, rule, tctx))
	}
	return outcomes
}

// ApplyTree walks root and applies the pipeline to every regular file that existed before
// the walk started, so artifacts written by one rule are not fed to another. Only a failed
// walk is returned as an error.
func (p *Pipeline) ApplyTree(ctx context.Context, root string, vars map[string]string) ([]Outcome, error) {
	if p.Len() == 0 {
		return nil, nil
	}

	var inputs []string
	err := filepath.WalkDir(root, func(current string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, relErr := filepath.Rel(root, current)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)
		for _, rule := range p.rules {
			if rule.Matches(rel) {
				inputs = append(inputs, rel)
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, appErrors.DirectoryWalkError(root, err)
	}

	var outcomes []Outcome
	for _, rel := range inputs {
		outcomes = append(outcomes, p.Apply(ctx, root, rel, vars)...)
	}
	return outcomes, nil
}

func (p *Pipeline) run(ctx context.Context, log *logrus.Entry, rule Rule, tctx Context) Outcome {
	name := rule.Transformer.Name()
	input := tctx.Path()
	start := time.Now()

	outcome := Outcome{Input: tctx.RelPath, Transformer: name}

	outputAbs := rule.Transformer.Output(input)
	outputRel, err := filepath.Rel(tctx.Root, outputAbs)
	if err != nil || outputRel == ".." || strings.HasPrefix(outputRel, ".."+string(filepath.Separator)) {
		outcome.Err = NewError(appErrors.PathTraversalError(outputAbs), name, tctx.RelPath, outputAbs)
		return outcome
	}
	outcome.Output = filepath.ToSlash(outputRel)

	entry := log.WithFields(logrus.Fields{
		logging.StandardFields.Operation:   logging.OperationTypes.FileTransform,
		logging.StandardFields.Transformer: name,
		logging.StandardFields.FilePath:    tctx.RelPath,
	})
	if p.logConfig.Debugging(logging.ComponentNames.Transform) {
		entry.WithField(logging.StandardFields.Rule, rule.Pattern).Debug("Applying transformer")
	}

	err = transformSafely(ctx, rule.Transformer, tctx)
	outcome.Duration = time.Since(start)
	if err != nil {
		te, ok := err.(*Error)
		if !ok {
			te = NewError(err, name, tctx.RelPath, outcome.Output)
		}
		outcome.Err = te.WithDuration(outcome.Duration)
		entry.WithFields(logrus.Fields{
			logging.StandardFields.Error:      err.Error(),
			logging.StandardFields.ErrorType:  string(te.Category),
			logging.StandardFields.DurationMs: outcome.Duration.Milliseconds(),
		}).Warn("Transform failed")
		return outcome
	}

	entry.WithField(logging.StandardFields.DurationMs, outcome.Duration.Milliseconds()).Debug("Transform completed")
	return outcome
}

// transformSafely runs t, turning a panic into an error so one broken transformer only
// costs the path it should have produced
func transformSafely(ctx context.Context, t Transformer, tctx Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = withCategory(CategoryGeneric, fmt.Errorf("%w: %v", ErrTransformerPanicked, r))
		}
	}()
	return t.Transform(ctx, tctx)
}
