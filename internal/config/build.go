package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/mrz1836/go-cligolden/internal/env"
	appErrors "github.com/mrz1836/go-cligolden/internal/errors"
	"github.com/mrz1836/go-cligolden/internal/fixture"
	"github.com/mrz1836/go-cligolden/internal/ignore"
	"github.com/mrz1836/go-cligolden/internal/logging"
	"github.com/mrz1836/go-cligolden/internal/normalize"
	"github.com/mrz1836/go-cligolden/internal/report"
	"github.com/mrz1836/go-cligolden/internal/sandbox"
	"github.com/mrz1836/go-cligolden/internal/transform"
	"github.com/mrz1836/go-cligolden/internal/treediff"
)

// BuildOptions carries the runtime dependencies that are not part of the file
type BuildOptions struct {
	Logger    *logrus.Logger
	LogConfig *logging.LogConfig
	Report    report.Options
}

// Build validates the configuration and assembles the fixture suite. Everything it returns
// is read-only and safe to share between concurrent fixtures.
func (c *Config) Build(ctx context.Context, opts BuildOptions) (*fixture.Suite, error) {
	if err := c.ValidateWithLogging(ctx, opts.Logger, opts.LogConfig); err != nil {
		return nil, err
	}

	matcher, err := c.IgnoreMatcher()
	if err != nil {
		return nil, err
	}
	normalizer, err := c.Normalizer()
	if err != nil {
		return nil, err
	}
	pipeline, err := c.Pipeline(opts.Logger, opts.LogConfig)
	if err != nil {
		return nil, err
	}
	inv, err := c.Invocation()
	if err != nil {
		return nil, err
	}
	fixtures, err := c.ResolveFixtures()
	if err != nil {
		return nil, err
	}

	var limiter *rate.Limiter
	if c.LaunchRate > 0 {
		limiter = rate.NewLimiter(rate.Limit(c.LaunchRate), c.LaunchBurst)
	}

	runner := sandbox.NewRunner(inv, sandbox.Options{
		TempRoot:   c.resolve(c.TempRoot),
		Keep:       c.Keep,
		Normalizer: normalizer,
		Limiter:    limiter,
		Logger:     opts.Logger,
		LogConfig:  opts.LogConfig,
	})

	engine := treediff.NewEngine(treediff.Options{
		Ignore:     matcher,
		Pipeline:   pipeline,
		Normalizer: normalizer,
		Variables:  c.Variables,
		Logger:     opts.Logger,
		LogConfig:  opts.LogConfig,
	})

	return fixture.NewSuite(fixtures, fixture.Options{
		Runner:    runner,
		Engine:    engine,
		Workers:   c.Workers,
		Variables: c.Variables,
		Report:    opts.Report,
		Logger:    opts.Logger,
		LogConfig: opts.LogConfig,
	})
}

// IgnoreMatcher builds the suite-wide ignore rules, defaults first
func (c *Config) IgnoreMatcher() (*ignore.Matcher, error) {
	var rules []ignore.Rule
	if c.DefaultIgnores == nil || *c.DefaultIgnores {
		for _, pattern := range DefaultIgnores() {
			rule, err := ignore.NewGlob(pattern)
			if err != nil {
				return nil, err
			}
			rules = append(rules, rule)
		}
	}

	for i, entry := range c.Ignore {
		rule, err := entry.Rule()
		if err != nil {
			return nil, fmt.Errorf("ignore[%d]: %w", i, err)
		}
		rules = append(rules, rule)
	}
	return ignore.New(rules...), nil
}

// Normalizer builds the substitution table in configuration order. Path substitutions
// also match the path with symlinks resolved, so either spelling maps to the token.
func (c *Config) Normalizer() (*normalize.Normalizer, error) {
	rules := make([]normalize.Rule, 0, len(c.Substitutions))
	for i, sub := range c.Substitutions {
		switch {
		case sub.Path != "":
			path := c.resolve(sub.Path)
			if resolved, err := filepath.EvalSymlinks(path); err == nil && resolved != path {
				rules = append(rules, normalize.NewLiteral(resolved, sub.Token))
			}
			rules = append(rules, normalize.NewLiteral(path, sub.Token))
		case sub.Literal != "":
			rules = append(rules, normalize.NewLiteral(sub.Literal, sub.Token))
		case sub.Pattern != "":
			rule, err := normalize.NewPattern(sub.Pattern, sub.Token)
			if err != nil {
				return nil, fmt.Errorf("substitutions[%d]: %w", i, err)
			}
			rules = append(rules, rule)
		case sub.Semver != "":
			rule, err := normalize.NewSemver(sub.Semver, sub.Token)
			if err != nil {
				return nil, fmt.Errorf("substitutions[%d]: %w", i, err)
			}
			rules = append(rules, rule)
		default:
			return nil, fmt.Errorf("substitutions[%d]: %w", i, ErrInvalidSubstitution)
		}
	}
	return normalize.New(rules...), nil
}

// Pipeline builds the transform pipeline
func (c *Config) Pipeline(logger *logrus.Logger, logConfig *logging.LogConfig) (*transform.Pipeline, error) {
	rules := make([]transform.Rule, 0, len(c.Transforms))
	for i, spec := range c.Transforms {
		rule, err := spec.Rule()
		if err != nil {
			return nil, fmt.Errorf("transforms[%d]: %w", i, err)
		}
		rules = append(rules, rule)
	}
	return transform.NewPipeline(logger, logConfig, rules...), nil
}

// Invocation builds the subject invocation. An executable given as a relative path with a
// directory part resolves against the config directory; bare names are looked up in PATH.
func (c *Config) Invocation() (sandbox.Invocation, error) {
	timeout, err := parseDuration("timeout", c.Timeout)
	if err != nil {
		return sandbox.Invocation{}, err
	}

	environment, err := c.environment()
	if err != nil {
		return sandbox.Invocation{}, err
	}

	inv, err := sandbox.ParseInvocation(c.Executable, environment, timeout)
	if err != nil {
		return sandbox.Invocation{}, err
	}
	if strings.ContainsRune(inv.Executable, '/') && !filepath.IsAbs(inv.Executable) {
		inv.Executable = c.resolve(inv.Executable)
	}
	if c.DisplayName != "" {
		inv.DisplayName = c.DisplayName
	}
	inv.Capture = sandbox.CaptureMode(c.Capture)
	return inv, nil
}

// environment merges the env files in order, then the explicit env on top.
func (c *Config) environment() (map[string]string, error) {
	if len(c.EnvFiles) == 0 {
		return c.Env, nil
	}
	paths := make([]string, len(c.EnvFiles))
	for i, p := range c.EnvFiles {
		paths[i] = c.resolve(p)
	}
	loaded, err := env.Load(paths...)
	if err != nil {
		return nil, err
	}
	return env.Overlay(loaded, c.Env), nil
}

// ResolveFixtures returns the fixtures that will run: configured fixtures in file order,
// then, with discover enabled, unconfigured fixture directories in name order. Configured
// fixtures whose when condition does not hold are left out, and discovery does not bring
// them back.
func (c *Config) ResolveFixtures() ([]fixture.Fixture, error) {
	fixtures := make([]fixture.Fixture, 0, len(c.Fixtures))
	for _, spec := range c.Fixtures {
		if ok, _ := spec.When.Enabled(os.LookupEnv); !ok {
			continue
		}
		f, err := c.fixture(spec)
		if err != nil {
			return nil, err
		}
		if info, err := os.Stat(f.AfterDir()); err != nil || !info.IsDir() {
			return nil, fmt.Errorf("%w: %s: missing %s directory in %s",
				ErrInvalidFixture, spec.Name, fixture.AfterDirName, f.Dir)
		}
		fixtures = append(fixtures, f)
	}

	if !c.Discover {
		return fixtures, nil
	}

	discovered, err := fixture.Discover(c.resolve(c.FixturesDir))
	if err != nil {
		return nil, err
	}
	configured := lo.SliceToMap(c.Fixtures, func(spec FixtureSpec) (string, bool) { return spec.Name, true })
	for _, f := range discovered {
		if !configured[f.Name] {
			fixtures = append(fixtures, f)
		}
	}

	if len(fixtures) == 0 {
		return nil, appErrors.ErrNoFixtures
	}
	return fixtures, nil
}

func (c *Config) fixture(spec FixtureSpec) (fixture.Fixture, error) {
	dir := spec.Dir
	if dir == "" {
		dir = filepath.Join(c.FixturesDir, spec.Name)
	}

	f := fixture.Fixture{
		Name:     spec.Name,
		Dir:      c.resolve(dir),
		Args:     spec.Args,
		Env:      spec.Env,
		ExitCode: spec.ExitCode,
	}

	timeout, err := parseDuration("fixture timeout", spec.Timeout)
	if err != nil {
		return fixture.Fixture{}, err
	}
	f.Timeout = timeout

	for i, entry := range spec.Ignore {
		rule, err := entry.Rule()
		if err != nil {
			return fixture.Fixture{}, fmt.Errorf("fixture %s: ignore[%d]: %w", spec.Name, i, err)
		}
		f.Ignores = append(f.Ignores, rule)
	}

	for _, step := range spec.Setup {
		f.Setup = append(f.Setup, fixture.ShellHook{Command: step.Run, Capture: step.Capture, Env: step.Env})
	}
	return f, nil
}

// InventoryEntry describes one fixture known from the configuration or the disk
type InventoryEntry struct {
	Name       string
	Dir        string
	Configured bool
	OnDisk     bool
	Runs       bool

	// Skipped holds the reason a configured fixture's when condition does not hold
	Skipped string
}

// Inventory lists configured fixtures and fixture directories found on disk, sorted by
// name. A missing fixtures directory yields the configured entries only.
func (c *Config) Inventory() ([]InventoryEntry, error) {
	entries := map[string]*InventoryEntry{}

	for _, spec := range c.Fixtures {
		f, err := c.fixture(spec)
		if err != nil {
			return nil, err
		}
		_, statErr := os.Stat(f.AfterDir())
		_, reason := spec.When.Enabled(os.LookupEnv)
		entries[spec.Name] = &InventoryEntry{
			Name:       spec.Name,
			Dir:        f.Dir,
			Configured: true,
			OnDisk:     statErr == nil,
			Skipped:    reason,
		}
	}

	discovered, err := fixture.Discover(c.resolve(c.FixturesDir))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	for _, f := range discovered {
		if entry, ok := entries[f.Name]; ok {
			if entry.Dir == f.Dir {
				entry.OnDisk = true
			}
			continue
		}
		entries[f.Name] = &InventoryEntry{Name: f.Name, Dir: f.Dir, OnDisk: true}
	}

	list := make([]InventoryEntry, 0, len(entries))
	for _, entry := range entries {
		entry.Runs = entry.OnDisk && (entry.Configured || c.Discover) && entry.Skipped == ""
		list = append(list, *entry)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list, nil
}

func (c *Config) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	base := c.BaseDir
	if base == "" {
		if wd, err := os.Getwd(); err == nil {
			base = wd
		}
	}
	return filepath.Join(base, path)
}
