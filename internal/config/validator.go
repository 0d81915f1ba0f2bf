package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/anmitsu/go-shlex"
	"github.com/sirupsen/logrus"

	appErrors "github.com/mrz1836/go-cligolden/internal/errors"
	"github.com/mrz1836/go-cligolden/internal/ignore"
	"github.com/mrz1836/go-cligolden/internal/logging"
	"github.com/mrz1836/go-cligolden/internal/normalize"
	"github.com/mrz1836/go-cligolden/internal/transform"
)

var (
	// ErrUnsupportedVersion indicates the configuration version is not supported
	ErrUnsupportedVersion = errors.New("unsupported config version")
	// ErrEmptyConfig indicates the configuration document is empty
	ErrEmptyConfig = errors.New("configuration is empty")
	// ErrUnknownField indicates a key that maps to no configuration field
	ErrUnknownField = errors.New("unknown configuration field")
	// ErrInvalidIgnore indicates a malformed ignore entry
	ErrInvalidIgnore = errors.New("invalid ignore rule")
	// ErrInvalidSubstitution indicates a malformed substitution entry
	ErrInvalidSubstitution = errors.New("invalid substitution")
	// ErrInvalidTransform indicates a malformed transform entry
	ErrInvalidTransform = errors.New("invalid transform")
	// ErrInvalidFixture indicates a malformed fixture entry
	ErrInvalidFixture = errors.New("invalid fixture")
)

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	return c.ValidateWithLogging(context.Background(), nil, nil)
}

// ValidateWithLogging checks if the configuration is valid, logging each step when the
// config debug flag is set. It checks structure and syntax only; fixture directories are
// resolved by Build.
func (c *Config) ValidateWithLogging(ctx context.Context, logger *logrus.Logger, logConfig *logging.LogConfig) error {
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	log := logging.WithStandardFields(logger, logConfig, logging.ComponentNames.Config).
		WithField(logging.StandardFields.Operation, logging.OperationTypes.ConfigValidate)
	debug := logConfig.Debugging(logging.ComponentNames.Config)
	start := time.Now()

	if debug {
		log.WithFields(logrus.Fields{
			"version":       c.Version,
			"fixture_count": len(c.Fixtures),
			"ignore_count":  len(c.Ignore),
		}).Debug("Starting configuration validation")
	}

	select {
	case <-ctx.Done():
		return fmt.Errorf("validation canceled: %w", ctx.Err())
	default:
	}

	if c.Version != 1 {
		return fmt.Errorf("%w: %d (only version 1 is supported)", ErrUnsupportedVersion, c.Version)
	}

	if err := c.validateInvocation(); err != nil {
		return err
	}

	for i, entry := range c.Ignore {
		if _, err := entry.Rule(); err != nil {
			return fmt.Errorf("ignore[%d]: %w", i, err)
		}
	}

	for i, sub := range c.Substitutions {
		if err := sub.validate(); err != nil {
			return fmt.Errorf("substitutions[%d]: %w", i, err)
		}
	}

	for i, spec := range c.Transforms {
		if err := spec.validate(); err != nil {
			return fmt.Errorf("transforms[%d]: %w", i, err)
		}
	}

	if len(c.Fixtures) == 0 && !c.Discover {
		return appErrors.ErrNoFixtures
	}

	seen := make(map[string]bool, len(c.Fixtures))
	for i, spec := range c.Fixtures {
		select {
		case <-ctx.Done():
			return fmt.Errorf("validation canceled: %w", ctx.Err())
		default:
		}

		if err := spec.validate(); err != nil {
			return fmt.Errorf("fixtures[%d]: %w", i, err)
		}
		if seen[spec.Name] {
			return fmt.Errorf("fixtures[%d]: %w", i, appErrors.DuplicateFixtureError(spec.Name))
		}
		seen[spec.Name] = true
	}

	if debug {
		log.WithField(logging.StandardFields.DurationMs, time.Since(start).Milliseconds()).
			Debug("Configuration validation completed")
	}
	return nil
}

func (c *Config) validateInvocation() error {
	if strings.TrimSpace(c.Executable) == "" {
		return appErrors.ErrNoExecutable
	}
	if _, err := shlex.Split(c.Executable, true); err != nil {
		return appErrors.FormatError("executable", c.Executable, "shell-style command line")
	}

	if _, err := parseDuration("timeout", c.Timeout); err != nil {
		return err
	}
	if c.Capture != CaptureStdout && c.Capture != CaptureCombined {
		return appErrors.InvalidFieldError("capture", c.Capture)
	}
	if c.Workers < 1 {
		return appErrors.InvalidFieldError("workers", fmt.Sprint(c.Workers))
	}
	if c.LaunchRate < 0 {
		return appErrors.InvalidFieldError("launch_rate", fmt.Sprint(c.LaunchRate))
	}
	if c.LaunchBurst < 1 {
		return appErrors.InvalidFieldError("launch_burst", fmt.Sprint(c.LaunchBurst))
	}
	for i, path := range c.EnvFiles {
		if strings.TrimSpace(path) == "" {
			return appErrors.EmptyFieldError(fmt.Sprintf("env_files[%d]", i))
		}
	}
	return nil
}

// Rule compiles the entry into an ignore rule
func (e IgnoreEntry) Rule() (ignore.Rule, error) {
	set := 0
	for _, present := range []bool{e.raw != "", e.Glob != "", e.Regex != "", len(e.Only) > 0} {
		if present {
			set++
		}
	}
	if set != 1 {
		return nil, fmt.Errorf("%w: exactly one of glob, regex or only must be set", ErrInvalidIgnore)
	}

	var (
		rule ignore.Rule
		err  error
	)
	switch {
	case e.raw != "":
		rule, err = ignore.ParseRule(e.raw)
	case e.Glob != "":
		rule, err = ignore.NewGlob(e.Glob)
	case e.Regex != "":
		rule, err = ignore.NewRegex(e.Regex)
	default:
		rule, err = ignore.NewOnly(e.Only...)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidIgnore, err)
	}
	return rule, nil
}

// String returns the entry as written in the configuration
func (e IgnoreEntry) String() string {
	switch {
	case e.raw != "":
		return e.raw
	case e.Glob != "":
		return "glob:" + e.Glob
	case e.Regex != "":
		return "regex:" + e.Regex
	default:
		return "only:" + strings.Join(e.Only, ",")
	}
}

func (s Substitution) validate() error {
	set := 0
	for _, v := range []string{s.Path, s.Literal, s.Pattern, s.Semver} {
		if v != "" {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("%w: exactly one of path, literal, pattern or semver must be set", ErrInvalidSubstitution)
	}
	if s.Token == "" {
		return fmt.Errorf("%w: %w", ErrInvalidSubstitution, appErrors.EmptyFieldError("token"))
	}

	switch {
	case s.Pattern != "":
		if _, err := normalize.NewPattern(s.Pattern, s.Token); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidSubstitution, err)
		}
	case s.Semver != "":
		if _, err := normalize.NewSemver(s.Semver, s.Token); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidSubstitution, err)
		}
	}
	return nil
}

func (t TransformSpec) validate() error {
	if t.Glob == "" {
		return fmt.Errorf("%w: %w", ErrInvalidTransform, appErrors.EmptyFieldError("glob"))
	}
	if _, err := parseDuration("transform timeout", t.Timeout); err != nil {
		return err
	}

	switch t.Type {
	case TransformSQLite:
		if t.Command != "" {
			return fmt.Errorf("%w: sqlite transforms take a query, not a command", ErrInvalidTransform)
		}
	case TransformCommand:
		if t.Command == "" {
			return fmt.Errorf("%w: %w", ErrInvalidTransform, appErrors.EmptyFieldError("command"))
		}
		if t.Query != "" {
			return fmt.Errorf("%w: command transforms take a command, not a query", ErrInvalidTransform)
		}
	default:
		return fmt.Errorf("%w: %w", ErrInvalidTransform, appErrors.InvalidFieldError("type", t.Type))
	}

	if _, err := t.Rule(); err != nil {
		return err
	}
	return nil
}

// Rule builds the transform rule the entry describes
func (t TransformSpec) Rule() (transform.Rule, error) {
	timeout, err := parseDuration("transform timeout", t.Timeout)
	if err != nil {
		return transform.Rule{}, err
	}

	var transformer transform.Transformer
	switch t.Type {
	case TransformSQLite:
		transformer = transform.NewSQLiteCSVTransformer(t.Query, t.Suffix)
	case TransformCommand:
		cmd, err := transform.NewCommandTransformer(t.Command, t.Suffix, timeout)
		if err != nil {
			return transform.Rule{}, fmt.Errorf("%w: %w", ErrInvalidTransform, err)
		}
		transformer = cmd
	default:
		return transform.Rule{}, fmt.Errorf("%w: %w", ErrInvalidTransform, appErrors.InvalidFieldError("type", t.Type))
	}

	rule, err := transform.NewRule(t.Glob, transformer)
	if err != nil {
		return transform.Rule{}, fmt.Errorf("%w: %w", ErrInvalidTransform, err)
	}
	return rule, nil
}

func (f FixtureSpec) validate() error {
	if f.Name == "" {
		return fmt.Errorf("%w: %w", ErrInvalidFixture, appErrors.EmptyFieldError("name"))
	}
	if strings.ContainsAny(f.Name, `/\`) || f.Name == "." || f.Name == ".." {
		return fmt.Errorf("%w: %w", ErrInvalidFixture, appErrors.InvalidFieldError("name", f.Name))
	}
	if _, err := shlex.Split(f.Args, true); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidFixture, appErrors.FormatError("args", f.Args, "shell-style argument string"))
	}
	if _, err := parseDuration("fixture timeout", f.Timeout); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidFixture, err)
	}
	if f.ExitCode < 0 || f.ExitCode > 255 {
		return fmt.Errorf("%w: %w", ErrInvalidFixture, appErrors.InvalidFieldError("exit_code", fmt.Sprint(f.ExitCode)))
	}
	if err := f.When.validate(); err != nil {
		return err
	}

	for i, entry := range f.Ignore {
		if _, err := entry.Rule(); err != nil {
			return fmt.Errorf("ignore[%d]: %w", i, err)
		}
	}

	for i, step := range f.Setup {
		if strings.TrimSpace(step.Run) == "" {
			return fmt.Errorf("%w: setup[%d]: %w", ErrInvalidFixture, i, appErrors.EmptyFieldError("run"))
		}
	}
	return nil
}

func parseDuration(field, value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil || d < 0 {
		return 0, appErrors.FormatError(field, value, "non-negative duration such as 30s or 2m")
	}
	return d, nil
}
