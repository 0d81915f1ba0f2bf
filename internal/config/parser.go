package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

const (
	// configLoadMaxRetries is the maximum number of attempts to load the config file
	configLoadMaxRetries = 2
	// configLoadRetryDelay is the delay between retry attempts
	configLoadRetryDelay = 100 * time.Millisecond
)

// Load reads and parses a configuration file. Files ending in .toml are parsed as TOML,
// everything else as YAML. Relative paths in the file resolve against its directory.
//
// It retries once on I/O and parse errors, which covers a file being rewritten by an
// editor while it is read.
func Load(path string) (*Config, error) {
	var lastErr error
	for attempt := 1; attempt <= configLoadMaxRetries; attempt++ {
		cfg, err := loadOnce(path)
		if err == nil {
			return cfg, nil
		}

		lastErr = err
		if errors.Is(err, os.ErrNotExist) {
			return nil, err
		}

		if attempt < configLoadMaxRetries {
			time.Sleep(configLoadRetryDelay)
		}
	}

	return nil, lastErr
}

func loadOnce(path string) (*Config, error) {
	file, err := os.Open(path) //#nosec G304 -- Path is user-provided config file
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var config *Config
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		config, err = LoadTOML(file)
	} else {
		config, err = LoadFromReader(file)
	}
	if err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path: %w", err)
	}
	config.BaseDir = filepath.Dir(abs)

	return config, nil
}

// LoadFromReader parses YAML configuration from an io.Reader. Unknown fields are an error.
func LoadFromReader(reader io.Reader) (*Config, error) {
	config := &Config{}

	decoder := yaml.NewDecoder(reader)
	decoder.KnownFields(true) // Strict parsing - fail on unknown fields

	if err := decoder.Decode(config); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to parse YAML: %w", ErrEmptyConfig)
		}
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	applyDefaults(config)
	return config, nil
}

// LoadTOML parses TOML configuration from an io.Reader. Keys that map to no field are an
// error, matching the strict YAML decoding.
func LoadTOML(reader io.Reader) (*Config, error) {
	config := &Config{}

	md, err := toml.NewDecoder(reader).Decode(config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		sort.Strings(keys)
		return nil, fmt.Errorf("failed to parse TOML: %w: %s", ErrUnknownField, strings.Join(keys, ", "))
	}

	applyDefaults(config)
	return config, nil
}

// UnmarshalYAML accepts a bare string or a mapping
func (e *IgnoreEntry) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		e.raw = value.Value
		return nil
	}

	type plain IgnoreEntry
	return value.Decode((*plain)(e))
}

// UnmarshalTOML accepts a bare string or an inline table
func (e *IgnoreEntry) UnmarshalTOML(data any) error {
	switch v := data.(type) {
	case string:
		e.raw = v
		return nil
	case map[string]any:
		for key, value := range v {
			switch key {
			case "glob":
				e.Glob, _ = value.(string)
			case "regex":
				e.Regex, _ = value.(string)
			case "only":
				list, ok := value.([]any)
				if !ok {
					return fmt.Errorf("%w: ignore.only must be a list", ErrInvalidIgnore)
				}
				for _, item := range list {
					s, ok := item.(string)
					if !ok {
						return fmt.Errorf("%w: ignore.only must be a list of strings", ErrInvalidIgnore)
					}
					e.Only = append(e.Only, s)
				}
			default:
				return fmt.Errorf("%w: ignore.%s", ErrUnknownField, key)
			}
		}
		return nil
	default:
		return fmt.Errorf("%w: expected a string or table, got %T", ErrInvalidIgnore, data)
	}
}

// applyDefaults sets default values for optional fields
func applyDefaults(config *Config) {
	if config.Timeout == "" {
		config.Timeout = DefaultTimeout
	}
	if config.Capture == "" {
		config.Capture = CaptureStdout
	}
	if config.FixturesDir == "" {
		config.FixturesDir = DefaultFixturesDir
	}
	if config.Workers == 0 {
		config.Workers = 1
	}
	if config.LaunchBurst == 0 {
		config.LaunchBurst = 1
	}
	if config.DefaultIgnores == nil {
		config.DefaultIgnores = boolPtr(true)
	}

	for i := range config.Transforms {
		ApplyTransformDefaults(&config.Transforms[i])
	}
}

// boolPtr is a helper function to create a pointer to a boolean value.
// This is used for optional boolean fields with default values.
func boolPtr(b bool) *bool {
	return &b
}
