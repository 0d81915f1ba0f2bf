package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/go-cligolden/internal/sandbox"
	"github.com/mrz1836/go-cligolden/internal/testutil"
)

const projectYAML = `
version: 1
executable: bin/subject
variables:
  who: gopher
substitutions:
  - pattern: '\d{4}-\d{2}-\d{2}'
    token: DATE
fixtures:
  - name: hello
    args: "{{who}}"
  - name: stamped
    args: "{{stamp}}"
    setup:
      - run: cat STAMP
        capture: stamp
    ignore:
      - "*.tmp"
`

func writeProject(t *testing.T, extra string) *Config {
	t.Helper()
	testutil.RequireShell(t)

	dir := t.TempDir()
	testutil.WriteScript(t, filepath.Join(dir, "bin", "subject"), `
printf '%s\n' "$1" > output.txt
echo scratch > notes.tmp
echo "built $1 on $(date +%Y-%m-%d)"`)

	testutil.WriteTree(t, filepath.Join(dir, "fixtures", "hello", "after"), map[string]string{
		"output.txt":                "gopher\n",
		sandbox.ExecutionOutputFile: "$ subject gopher\nbuilt gopher on DATE\n",
		"notes.tmp":                 "scratch\n",
	})
	testutil.WriteTree(t, filepath.Join(dir, "fixtures", "stamped", "before"), map[string]string{"STAMP": "v2\n"})
	testutil.WriteTree(t, filepath.Join(dir, "fixtures", "stamped", "after"), map[string]string{
		"STAMP":      "v2\n",
		"output.txt": "v2\n",
	})

	path := filepath.Join(dir, "goldentree.yaml")
	require.NoError(t, os.WriteFile(path, []byte(projectYAML+extra), 0o600))
	cfg, err := Load(path)
	require.NoError(t, err)
	return cfg
}

func TestBuildRunsConfiguredFixtures(t *testing.T) {
	cfg := writeProject(t, "")
	cfg.TempRoot = "sandboxes"

	suite, err := cfg.Build(context.Background(), BuildOptions{})
	require.NoError(t, err)

	outcomes := suite.RunAll(context.Background())
	require.Len(t, outcomes, 2)
	for _, o := range outcomes {
		assert.True(t, o.Passed(), o.Report)
	}

	entries, err := os.ReadDir(filepath.Join(cfg.BaseDir, "sandboxes"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestBuildDiscover(t *testing.T) {
	cfg := writeProject(t, "discover: true\n")
	testutil.WriteTree(t, filepath.Join(cfg.BaseDir, "fixtures", "unconfigured", "after"), map[string]string{
		"output.txt": "\n",
	})

	fixtures, err := cfg.ResolveFixtures()
	require.NoError(t, err)
	require.Len(t, fixtures, 3)
	assert.Equal(t, "hello", fixtures[0].Name)
	assert.Equal(t, "stamped", fixtures[1].Name)
	assert.Equal(t, "unconfigured", fixtures[2].Name)
	assert.Empty(t, fixtures[2].Args)
}

func TestResolveFixturesMissingDirectory(t *testing.T) {
	cfg := writeProject(t, "  - name: ghost\n")

	_, err := cfg.ResolveFixtures()
	require.ErrorIs(t, err, ErrInvalidFixture)
	assert.Contains(t, err.Error(), "ghost")

	_, err = cfg.Build(context.Background(), BuildOptions{})
	require.ErrorIs(t, err, ErrInvalidFixture)
}

func TestInventory(t *testing.T) {
	cfg := writeProject(t, "  - name: ghost\n")
	testutil.WriteTree(t, filepath.Join(cfg.BaseDir, "fixtures", "unconfigured", "after"), nil)

	entries, err := cfg.Inventory()
	require.NoError(t, err)

	byName := map[string]InventoryEntry{}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		byName[e.Name] = e
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{"ghost", "hello", "stamped", "unconfigured"}, names)

	assert.True(t, byName["hello"].Configured)
	assert.True(t, byName["hello"].OnDisk)
	assert.True(t, byName["hello"].Runs)

	assert.True(t, byName["ghost"].Configured)
	assert.False(t, byName["ghost"].OnDisk)
	assert.False(t, byName["ghost"].Runs)

	assert.False(t, byName["unconfigured"].Configured)
	assert.True(t, byName["unconfigured"].OnDisk)
	assert.False(t, byName["unconfigured"].Runs)
}

const conditionalFixture = `  - name: swift12
    args: legacy
    when:
      env: GOLDENTREE_SWIFT
      equals: ["1.2"]
`

func TestResolveFixturesWhenCondition(t *testing.T) {
	cfg := writeProject(t, conditionalFixture+"discover: true\n")
	testutil.WriteTree(t, filepath.Join(cfg.BaseDir, "fixtures", "swift12", "after"), map[string]string{
		"output.txt": "legacy\n",
	})

	names := func() []string {
		t.Helper()
		fixtures, err := cfg.ResolveFixtures()
		require.NoError(t, err)
		list := make([]string, 0, len(fixtures))
		for _, f := range fixtures {
			list = append(list, f.Name)
		}
		return list
	}

	t.Run("unset variable enables the fixture", func(t *testing.T) {
		t.Setenv("GOLDENTREE_SWIFT", "")
		assert.Equal(t, []string{"hello", "stamped", "swift12"}, names())
		assert.Empty(t, cfg.SkippedFixtures())
	})

	t.Run("listed value enables the fixture", func(t *testing.T) {
		t.Setenv("GOLDENTREE_SWIFT", "1.2")
		assert.Equal(t, []string{"hello", "stamped", "swift12"}, names())
	})

	t.Run("other value skips the fixture even with discovery", func(t *testing.T) {
		t.Setenv("GOLDENTREE_SWIFT", "2.0")
		assert.Equal(t, []string{"hello", "stamped"}, names())

		skipped := cfg.SkippedFixtures()
		require.Len(t, skipped, 1)
		assert.Equal(t, "swift12", skipped[0].Name)
		assert.Equal(t, "GOLDENTREE_SWIFT=2.0, runs only for 1.2", skipped[0].Reason)

		entries, err := cfg.Inventory()
		require.NoError(t, err)
		for _, e := range entries {
			if e.Name == "swift12" {
				assert.True(t, e.OnDisk)
				assert.False(t, e.Runs)
				assert.Equal(t, skipped[0].Reason, e.Skipped)
			}
		}

		suite, err := cfg.Build(context.Background(), BuildOptions{})
		require.NoError(t, err)
		_, found := suite.Lookup("swift12")
		assert.False(t, found)
	})
}

func TestConditionEnabled(t *testing.T) {
	env := map[string]string{"SET": "a"}
	lookup := func(name string) (string, bool) {
		v, ok := env[name]
		return v, ok
	}

	var none *Condition
	ok, _ := none.Enabled(lookup)
	assert.True(t, ok)

	ok, _ = (&Condition{Env: "MISSING", Equals: []string{"x"}}).Enabled(lookup)
	assert.True(t, ok)

	ok, _ = (&Condition{Env: "SET", Equals: []string{"b", "a"}}).Enabled(lookup)
	assert.True(t, ok)

	ok, reason := (&Condition{Env: "SET"}).Enabled(lookup)
	assert.False(t, ok)
	assert.Equal(t, "SET=a, runs only while SET is unset", reason)
}

func TestInvocation(t *testing.T) {
	cfg := &Config{
		Executable:  `bin/jazzy --no-download "--theme fullwidth"`,
		DisplayName: "jazzy",
		Timeout:     "90s",
		Capture:     CaptureCombined,
		BaseDir:     "/work/project",
	}

	inv, err := cfg.Invocation()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/work/project", "bin", "jazzy"), inv.Executable)
	assert.Equal(t, []string{"--no-download", "--theme fullwidth"}, inv.DefaultArgs)
	assert.Equal(t, "jazzy", inv.DisplayName)
	assert.Equal(t, "1m30s", inv.Timeout.String())
	assert.Equal(t, sandbox.CaptureCombined, inv.Capture)

	cfg.Executable = "jazzy"
	inv, err = cfg.Invocation()
	require.NoError(t, err)
	assert.Equal(t, "jazzy", inv.Executable)
}

func TestInvocationEnvFiles(t *testing.T) {
	base := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(base, ".env.fixtures"),
		[]byte("LANG=C\nJAZZY_FAKE_DATE=2020-01-01\n"), 0o600))

	cfg := &Config{
		Executable: "jazzy",
		Timeout:    DefaultTimeout,
		EnvFiles:   []string{".env.fixtures"},
		Env:        map[string]string{"JAZZY_FAKE_DATE": "2026-10-18"},
		BaseDir:    base,
	}

	inv, err := cfg.Invocation()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"LANG": "C", "JAZZY_FAKE_DATE": "2026-10-18"}, inv.Env)

	cfg.EnvFiles = append(cfg.EnvFiles, "missing.env")
	_, err = cfg.Invocation()
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestNormalizer(t *testing.T) {
	base := t.TempDir()
	cfg := &Config{
		BaseDir: base,
		Substitutions: []Substitution{
			{Path: ".", Token: "ROOT"},
			{Literal: "/Users/ci", Token: "HOME"},
			{Semver: "1.2.3", Token: "VERSION"},
		},
	}

	n, err := cfg.Normalizer()
	require.NoError(t, err)

	out := n.Normalize(base + "/docs built by /Users/ci with v1.2.3")
	assert.Equal(t, "ROOT/docs built by HOME with VERSION", out)
	assert.False(t, strings.Contains(out, base))
}

func TestPipeline(t *testing.T) {
	cfg := &Config{Transforms: []TransformSpec{
		{Glob: "**/*.dsidx", Type: TransformSQLite},
		{Glob: "*.tgz", Type: TransformCommand, Command: "tar -tzf {{input}}"},
	}}
	for i := range cfg.Transforms {
		ApplyTransformDefaults(&cfg.Transforms[i])
	}

	p, err := cfg.Pipeline(nil, nil)
	require.NoError(t, err)
	require.Equal(t, 2, p.Len())

	rules := p.Rules()
	assert.True(t, rules[0].Matches("docs/docSet.dsidx"))
	assert.Equal(t, "docs/docSet.dsidx.csv", rules[0].Transformer.Output("docs/docSet.dsidx"))
	assert.True(t, rules[1].Matches("vendor/pkg.tgz"))
	assert.Equal(t, "vendor/pkg.tgz.txt", rules[1].Transformer.Output("vendor/pkg.tgz"))
}
