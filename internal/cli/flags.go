package cli

import (
	"time"

	"github.com/mrz1836/go-cligolden/internal/logging"
)

// DefaultConfigFile is looked up in the working directory when --config is not given
const DefaultConfigFile = "goldentree.yaml"

// Flags contains the flags of one root command instance
type Flags struct {
	ConfigFile string
	LogLevel   string
	LogFormat  string
	Verbose    int
	Debug      logging.DebugFlags
	NoColor    bool
	JSON       bool

	// run overrides; zero values keep the configuration file's setting
	Workers      int
	Keep         bool
	Timeout      time.Duration
	Filter       string
	ShowMatches  bool
	MaxDiffLines int
}

func newFlags() *Flags {
	return &Flags{
		ConfigFile: DefaultConfigFile,
		LogLevel:   "info",
		LogFormat:  "text",
	}
}

// logConfig converts the flags into the logging configuration passed to every component
func (f *Flags) logConfig() *logging.LogConfig {
	return &logging.LogConfig{
		ConfigFile:    f.ConfigFile,
		LogLevel:      f.LogLevel,
		Verbose:       f.Verbose,
		Debug:         f.Debug,
		LogFormat:     f.LogFormat,
		CorrelationID: logging.GenerateCorrelationID(),
		JSONOutput:    f.LogFormat == "json",
	}
}
