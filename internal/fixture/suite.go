package fixture

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/anmitsu/go-shlex"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	appErrors "github.com/mrz1836/go-cligolden/internal/errors"
	"github.com/mrz1836/go-cligolden/internal/logging"
	"github.com/mrz1836/go-cligolden/internal/metrics"
	"github.com/mrz1836/go-cligolden/internal/report"
	"github.com/mrz1836/go-cligolden/internal/sandbox"
	"github.com/mrz1836/go-cligolden/internal/transform"
	"github.com/mrz1836/go-cligolden/internal/treediff"
)

// Outcome is the result of running one fixture
type Outcome struct {
	Fixture  string
	Record   *sandbox.Record
	Result   *treediff.Result
	ExecErr  *sandbox.ExecutionError
	SetupErr error
	Duration time.Duration

	// Report is the rendered failure message, or the pass line
	Report string
}

// Passed reports whether the fixture ran as expected and its tree matched
func (o *Outcome) Passed() bool {
	return o.SetupErr == nil && o.ExecErr == nil && o.Result.Passed()
}

// Err returns nil for a passing fixture, the setup error when setup failed, and an error
// wrapping ErrFixtureFailed otherwise
func (o *Outcome) Err() error {
	switch {
	case o.SetupErr != nil:
		return o.SetupErr
	case o.Passed():
		return nil
	default:
		return fmt.Errorf("%w: %s", appErrors.ErrFixtureFailed, o.Fixture)
	}
}

// Options configures a Suite
type Options struct {
	Runner *sandbox.Runner
	Engine *treediff.Engine

	// Workers bounds concurrent fixtures in RunAll and Bind; values below 1 mean 1
	Workers int

	// Variables are available to every fixture's setup hooks, arguments and environment
	Variables map[string]string

	Report    report.Options
	Logger    *logrus.Logger
	LogConfig *logging.LogConfig
}

type preparation struct {
	once sync.Once
	vars map[string]string
	err  error
}

// Suite runs a fixed set of fixtures against one runner and engine. Configuration is
// read-only once the suite is built; only the per-fixture preparation cache is mutable.
type Suite struct {
	fixtures  []Fixture
	runner    *sandbox.Runner
	engine    *treediff.Engine
	workers   int
	variables map[string]string
	report    report.Options
	logger    *logrus.Logger
	logConfig *logging.LogConfig

	prepared *preparations
}

type preparations struct {
	mu sync.Mutex
	m  map[string]*preparation
}

// NewSuite validates fixtures and creates a Suite
func NewSuite(fixtures []Fixture, opts Options) (*Suite, error) {
	if opts.Runner == nil {
		return nil, appErrors.RequiredFieldError("runner")
	}
	if opts.Engine == nil {
		return nil, appErrors.RequiredFieldError("engine")
	}

	seen := map[string]bool{}
	for _, f := range fixtures {
		if f.Name == "" {
			return nil, appErrors.EmptyFieldError("fixture name")
		}
		if seen[f.Name] {
			return nil, appErrors.DuplicateFixtureError(f.Name)
		}
		seen[f.Name] = true
	}

	logger := opts.Logger
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}

	return &Suite{
		fixtures:  append([]Fixture(nil), fixtures...),
		runner:    opts.Runner,
		engine:    opts.Engine,
		workers:   max(opts.Workers, 1),
		variables: opts.Variables,
		report:    opts.Report,
		logger:    logger,
		logConfig: opts.LogConfig,
		prepared:  &preparations{m: map[string]*preparation{}},
	}, nil
}

// Fixtures returns the suite's fixtures in registration order
func (s *Suite) Fixtures() []Fixture {
	return append([]Fixture(nil), s.fixtures...)
}

// Lookup returns the fixture named name
func (s *Suite) Lookup(name string) (Fixture, bool) {
	return lo.Find(s.fixtures, func(f Fixture) bool { return f.Name == name })
}

// Filter returns a suite limited to fixtures whose name matches the glob pattern. The
// returned suite shares the runner, engine and preparation cache.
func (s *Suite) Filter(pattern string) (*Suite, error) {
	if !doublestar.ValidatePattern(pattern) {
		return nil, appErrors.FormatError("filter", pattern, "valid glob pattern")
	}

	matched := lo.Filter(s.fixtures, func(f Fixture, _ int) bool {
		ok, _ := doublestar.Match(pattern, f.Name)
		return ok
	})
	if len(matched) == 0 {
		return nil, fmt.Errorf("%w: %s", appErrors.ErrNoMatchingFixtures, pattern)
	}

	return s.subset(matched), nil
}

func (s *Suite) subset(fixtures []Fixture) *Suite {
	sub := *s
	sub.fixtures = fixtures
	return &sub
}

// Select returns a suite limited to the named fixtures, in the order given
func (s *Suite) Select(names ...string) (*Suite, error) {
	selected := make([]Fixture, 0, len(names))
	for _, name := range names {
		f, ok := s.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("%w: %s", appErrors.ErrFixtureNotFound, name)
		}
		selected = append(selected, f)
	}
	return s.subset(selected), nil
}

// Prepare runs the fixture's setup hooks once and returns the variables visible to it.
// Later calls return the cached result, including a cached failure.
func (s *Suite) Prepare(ctx context.Context, f Fixture) (map[string]string, error) {
	s.prepared.mu.Lock()
	p, ok := s.prepared.m[f.Name]
	if !ok {
		p = &preparation{}
		s.prepared.m[f.Name] = p
	}
	s.prepared.mu.Unlock()

	p.once.Do(func() {
		p.vars, p.err = s.runHooks(ctx, f)
	})
	return p.vars, p.err
}

func (s *Suite) runHooks(ctx context.Context, f Fixture) (map[string]string, error) {
	vars := make(map[string]string, len(s.variables))
	for k, v := range s.variables {
		vars[k] = v
	}

	log := logging.WithStandardFields(s.logger, s.logConfig, logging.ComponentNames.Fixture).WithFields(logrus.Fields{
		logging.StandardFields.Fixture:   f.Name,
		logging.StandardFields.Operation: logging.OperationTypes.FixturePrepare,
	})

	for _, hook := range f.Setup {
		log.WithField(logging.StandardFields.Command, hook.String()).Debug("Running setup step")
		captured, err := hook.Run(ctx, f.BeforeDir(), vars)
		if err != nil {
			return nil, err
		}
		for k, v := range captured {
			vars[k] = v
		}
	}
	return vars, nil
}

// RunFixture prepares, sandboxes, runs and compares one fixture. Subject failures and
// mismatches end up in the outcome; only setup problems stop the fixture early.
func (s *Suite) RunFixture(ctx context.Context, f Fixture) *Outcome {
	start := time.Now()
	outcome := &Outcome{Fixture: f.Name}
	log := logging.WithStandardFields(s.logger, s.logConfig, logging.ComponentNames.Fixture).
		WithField(logging.StandardFields.Fixture, f.Name)

	defer func() {
		outcome.Duration = time.Since(start)
		s.finish(log, outcome)
	}()

	setupFailed := func(stage string, err error) *Outcome {
		outcome.SetupErr = &SetupError{Fixture: f.Name, Stage: stage, Err: err}
		return outcome
	}

	timer := metrics.StartTimer(log, metrics.PhaseSetup).AddField("hooks", len(f.Setup))
	vars, err := s.Prepare(ctx, f)
	timer.StopWithError(err)
	if err != nil {
		return setupFailed("setup", err)
	}

	args, err := shlex.Split(transform.ExpandVariables(f.Args, vars), true)
	if err != nil {
		return setupFailed("arguments", appErrors.FormatError("args", f.Args, "shell-style argument string"))
	}

	env := make(map[string]string, len(f.Env))
	for k, v := range f.Env {
		env[k] = transform.ExpandVariables(v, vars)
	}

	timer = metrics.StartTimer(log, metrics.PhaseSandbox)
	record, err := s.runner.Run(ctx, sandbox.Request{
		Name:      f.Name,
		BeforeDir: f.BeforeDir(),
		AfterDir:  f.AfterDir(),
		Args:      args,
		Env:       env,
		Timeout:   f.Timeout,
		ExitCode:  f.ExitCode,
	})
	timer.StopWithError(err)
	if err != nil {
		if record != nil {
			_ = s.runner.Cleanup(record)
		}
		return setupFailed("sandbox", err)
	}
	outcome.Record = record
	outcome.ExecErr = record.Err
	defer func() {
		if err := s.runner.Cleanup(record); err != nil {
			log.WithField(logging.StandardFields.Error, err.Error()).Warn("Failed to remove sandbox")
		}
	}()

	engine := s.engine.WithNormalizer(record.Normalizer).WithVariables(vars)
	if len(f.Ignores) > 0 {
		engine = engine.WithIgnore(engine.Ignore().Extend(f.Ignores...))
	}

	timer = metrics.StartTimer(log, metrics.PhaseCompare)
	result, err := engine.Compare(ctx, record.Dir, f.AfterDir())
	if err != nil {
		timer.StopWithError(err)
		return setupFailed("compare", err)
	}
	timer.AddField(logging.StandardFields.FileCount, len(result.Entries)).
		AddField(logging.StandardFields.Mismatches, len(result.Failures())).
		Stop()
	outcome.Result = result
	return outcome
}

func (s *Suite) finish(log *logrus.Entry, outcome *Outcome) {
	fields := logrus.Fields{
		logging.StandardFields.DurationMs: outcome.Duration.Milliseconds(),
	}

	var execErr error
	if outcome.ExecErr != nil {
		execErr = outcome.ExecErr
		fields[logging.StandardFields.ExitCode] = outcome.ExecErr.ExitCode
	}

	switch {
	case outcome.SetupErr != nil:
		outcome.Report = fmt.Sprintf("FAIL %s\n  setup error: %v\n", outcome.Fixture, outcome.SetupErr)
		log.WithFields(fields).WithField(logging.StandardFields.Error, outcome.SetupErr.Error()).Error("Fixture setup failed")
	default:
		outcome.Report = report.String(outcome.Fixture, outcome.Result, execErr, s.report)
		fields[logging.StandardFields.Mismatches] = len(outcome.Result.Failures())
		if outcome.Passed() {
			log.WithFields(fields).Info("Fixture passed")
		} else {
			log.WithFields(fields).Warn("Fixture failed")
		}
	}
}

// RunAll runs every fixture with at most Workers at a time and returns the outcomes in
// registration order
func (s *Suite) RunAll(ctx context.Context) []*Outcome {
	outcomes := make([]*Outcome, len(s.fixtures))

	g := new(errgroup.Group)
	g.SetLimit(s.workers)
	for i, f := range s.fixtures {
		g.Go(func() error {
			outcomes[i] = s.RunFixture(ctx, f)
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}

// Bind registers one subtest per fixture on t. Each subtest fails with the rendered report
// when its fixture does not pass.
func (s *Suite) Bind(t *testing.T) {
	t.Helper()

	for _, f := range s.fixtures {
		t.Run(f.Name, func(t *testing.T) {
			if s.workers > 1 {
				t.Parallel()
			}
			outcome := s.RunFixture(t.Context(), f)
			if !outcome.Passed() {
				t.Error(outcome.Report)
			}
		})
	}
}
