package config

// Config is the harness configuration: how to launch the subject, how to compare trees,
// and which fixtures to run. It is loaded once and turned into immutable runtime objects
// by Build.
type Config struct {
	Version int `yaml:"version" toml:"version"`

	// Executable is a shell-style command line; the first token is the subject
	Executable  string            `yaml:"executable" toml:"executable"`
	DisplayName string            `yaml:"display_name,omitempty" toml:"display_name"`
	Env         map[string]string `yaml:"env,omitempty" toml:"env"`
	EnvFiles    []string          `yaml:"env_files,omitempty" toml:"env_files"` // Dotenv files loaded under env
	Variables   map[string]string `yaml:"variables,omitempty" toml:"variables"`
	Timeout     string            `yaml:"timeout,omitempty" toml:"timeout"`           // Default: 2m
	Capture     string            `yaml:"capture,omitempty" toml:"capture"`           // stdout or combined
	FixturesDir string            `yaml:"fixtures_dir,omitempty" toml:"fixtures_dir"` // Default: fixtures
	Discover    bool              `yaml:"discover,omitempty" toml:"discover"`         // Run unconfigured fixtures found on disk
	TempRoot    string            `yaml:"temp_root,omitempty" toml:"temp_root"`       // Default: os.TempDir()
	Keep        bool              `yaml:"keep_sandboxes,omitempty" toml:"keep_sandboxes"`
	Workers     int               `yaml:"workers,omitempty" toml:"workers"`           // Default: 1
	LaunchRate  float64           `yaml:"launch_rate,omitempty" toml:"launch_rate"`   // Subject launches per second, 0 means unlimited
	LaunchBurst int               `yaml:"launch_burst,omitempty" toml:"launch_burst"` // Default: 1

	// DefaultIgnores adds .DS_Store and .git to the ignore rules; nil means true
	DefaultIgnores *bool `yaml:"default_ignores,omitempty" toml:"default_ignores"`

	Ignore        []IgnoreEntry   `yaml:"ignore,omitempty" toml:"ignore"`
	Substitutions []Substitution  `yaml:"substitutions,omitempty" toml:"substitutions"`
	Transforms    []TransformSpec `yaml:"transforms,omitempty" toml:"transforms"`
	Fixtures      []FixtureSpec   `yaml:"fixtures,omitempty" toml:"fixtures"`

	// BaseDir anchors every relative path; Load sets it to the config file's directory
	BaseDir string `yaml:"-" toml:"-"`
}

// IgnoreEntry is one ignore rule. A bare string is a glob, or a regex when wrapped in
// slashes; the mapping form sets exactly one of its fields.
type IgnoreEntry struct {
	Glob  string   `yaml:"glob,omitempty" toml:"glob"`
	Regex string   `yaml:"regex,omitempty" toml:"regex"`
	Only  []string `yaml:"only,omitempty" toml:"only"`

	// raw holds the bare string form
	raw string
}

// Substitution maps a machine-specific value to a stable token. Exactly one of Path,
// Literal, Pattern or Semver is set.
type Substitution struct {
	Path    string `yaml:"path,omitempty" toml:"path"` // Resolved to an absolute path
	Literal string `yaml:"literal,omitempty" toml:"literal"`
	Pattern string `yaml:"pattern,omitempty" toml:"pattern"`
	Semver  string `yaml:"semver,omitempty" toml:"semver"` // A version, or "*" for any
	Token   string `yaml:"token" toml:"token"`
}

// TransformSpec registers a derived artifact for files matching Glob
type TransformSpec struct {
	Glob    string `yaml:"glob" toml:"glob"`
	Type    string `yaml:"type" toml:"type"`                 // sqlite or command
	Command string `yaml:"command,omitempty" toml:"command"` // command transforms only
	Query   string `yaml:"query,omitempty" toml:"query"`     // sqlite transforms only
	Suffix  string `yaml:"suffix,omitempty" toml:"suffix"`   // Default: .csv for sqlite
	Timeout string `yaml:"timeout,omitempty" toml:"timeout"`
}

// FixtureSpec configures one fixture directory
type FixtureSpec struct {
	Name     string            `yaml:"name" toml:"name"`
	Dir      string            `yaml:"dir,omitempty" toml:"dir"` // Default: <fixtures_dir>/<name>
	Args     string            `yaml:"args,omitempty" toml:"args"`
	Env      map[string]string `yaml:"env,omitempty" toml:"env"`
	Ignore   []IgnoreEntry     `yaml:"ignore,omitempty" toml:"ignore"`
	Setup    []SetupStep       `yaml:"setup,omitempty" toml:"setup"`
	Timeout  string            `yaml:"timeout,omitempty" toml:"timeout"`
	ExitCode int               `yaml:"exit_code,omitempty" toml:"exit_code"`
	When     *Condition        `yaml:"when,omitempty" toml:"when"` // Nil means always
}

// Condition enables a fixture depending on the harness environment, for fixture sets that
// only apply to one toolchain. The fixture runs when the variable is unset or empty, or
// when its value is one of Equals.
type Condition struct {
	Env    string   `yaml:"env" toml:"env"`
	Equals []string `yaml:"equals,omitempty" toml:"equals"`
}

// SetupStep is a shell command run once in the fixture's before tree
type SetupStep struct {
	Run     string            `yaml:"run" toml:"run"`
	Capture string            `yaml:"capture,omitempty" toml:"capture"`
	Env     map[string]string `yaml:"env,omitempty" toml:"env"`
}
