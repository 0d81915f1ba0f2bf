package config

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/mrz1836/go-cligolden/internal/errors"
	"github.com/mrz1836/go-cligolden/internal/logging"
)

func validConfig() *Config {
	cfg := &Config{
		Version:    1,
		Executable: "bin/subject --flag",
		Fixtures:   []FixtureSpec{{Name: "basic", Args: "--clean"}},
	}
	applyDefaults(cfg)
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(c *Config)
		wantErr error
		errText string
	}{
		{
			name:   "valid",
			modify: func(_ *Config) {},
		},
		{
			name:    "unsupported version",
			modify:  func(c *Config) { c.Version = 2 },
			wantErr: ErrUnsupportedVersion,
		},
		{
			name:    "missing executable",
			modify:  func(c *Config) { c.Executable = "  " },
			wantErr: appErrors.ErrNoExecutable,
		},
		{
			name:    "unbalanced executable quoting",
			modify:  func(c *Config) { c.Executable = `bin/subject "unterminated` },
			errText: "shell-style command line",
		},
		{
			name:    "bad timeout",
			modify:  func(c *Config) { c.Timeout = "soon" },
			errText: "non-negative duration",
		},
		{
			name:    "bad capture",
			modify:  func(c *Config) { c.Capture = "stderr" },
			errText: "capture",
		},
		{
			name:    "negative launch rate",
			modify:  func(c *Config) { c.LaunchRate = -1 },
			errText: "launch_rate",
		},
		{
			name:    "blank env file",
			modify:  func(c *Config) { c.EnvFiles = []string{".env", " "} },
			wantErr: appErrors.ErrEmptyField,
		},
		{
			name:    "ignore with two kinds",
			modify:  func(c *Config) { c.Ignore = []IgnoreEntry{{Glob: "*.tgz", Regex: "x"}} },
			wantErr: ErrInvalidIgnore,
		},
		{
			name:    "ignore with invalid regex",
			modify:  func(c *Config) { c.Ignore = []IgnoreEntry{{Regex: "(unclosed"}} },
			wantErr: ErrInvalidIgnore,
		},
		{
			name:    "substitution without token",
			modify:  func(c *Config) { c.Substitutions = []Substitution{{Literal: "/Users/ci"}} },
			wantErr: ErrInvalidSubstitution,
		},
		{
			name:    "substitution with two kinds",
			modify:  func(c *Config) { c.Substitutions = []Substitution{{Literal: "a", Path: "b", Token: "T"}} },
			wantErr: ErrInvalidSubstitution,
		},
		{
			name:    "substitution with invalid version",
			modify:  func(c *Config) { c.Substitutions = []Substitution{{Semver: "not-a-version", Token: "V"}} },
			wantErr: ErrInvalidSubstitution,
		},
		{
			name:    "transform without glob",
			modify:  func(c *Config) { c.Transforms = []TransformSpec{{Type: TransformSQLite}} },
			wantErr: ErrInvalidTransform,
		},
		{
			name:    "transform with unknown type",
			modify:  func(c *Config) { c.Transforms = []TransformSpec{{Glob: "*.db", Type: "python"}} },
			wantErr: ErrInvalidTransform,
		},
		{
			name: "command transform without command",
			modify: func(c *Config) {
				c.Transforms = []TransformSpec{{Glob: "*.tgz", Type: TransformCommand, Suffix: ".txt"}}
			},
			wantErr: ErrInvalidTransform,
		},
		{
			name:    "no fixtures",
			modify:  func(c *Config) { c.Fixtures = nil },
			wantErr: appErrors.ErrNoFixtures,
		},
		{
			name:   "no fixtures with discovery",
			modify: func(c *Config) { c.Fixtures = nil; c.Discover = true },
		},
		{
			name:    "fixture without name",
			modify:  func(c *Config) { c.Fixtures[0].Name = "" },
			wantErr: ErrInvalidFixture,
		},
		{
			name:    "fixture name with separator",
			modify:  func(c *Config) { c.Fixtures[0].Name = "../escape" },
			wantErr: ErrInvalidFixture,
		},
		{
			name:    "duplicate fixture",
			modify:  func(c *Config) { c.Fixtures = append(c.Fixtures, FixtureSpec{Name: "basic"}) },
			errText: "duplicate fixture",
		},
		{
			name:    "fixture exit code out of range",
			modify:  func(c *Config) { c.Fixtures[0].ExitCode = 300 },
			wantErr: ErrInvalidFixture,
		},
		{
			name:    "when without variable",
			modify:  func(c *Config) { c.Fixtures[0].When = &Condition{Equals: []string{"1.2"}} },
			wantErr: ErrInvalidFixture,
		},
		{
			name:    "empty setup step",
			modify:  func(c *Config) { c.Fixtures[0].Setup = []SetupStep{{Capture: "v"}} },
			wantErr: ErrInvalidFixture,
		},
		{
			name:    "fixture ignore invalid",
			modify:  func(c *Config) { c.Fixtures[0].Ignore = []IgnoreEntry{{}} },
			wantErr: ErrInvalidIgnore,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modify(cfg)
			err := cfg.Validate()

			switch {
			case tt.wantErr != nil:
				require.ErrorIs(t, err, tt.wantErr)
			case tt.errText != "":
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errText)
			default:
				require.NoError(t, err)
			}
		})
	}
}

func TestValidateWithLoggingCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := validConfig().ValidateWithLogging(ctx, nil, &logging.LogConfig{Debug: logging.DebugFlags{Config: true}})
	require.ErrorIs(t, err, context.Canceled)
}
