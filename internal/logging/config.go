// Package logging configures logrus for the harness: levels from -v counts, per-component
// debug switches, a JSON formatter, redaction of secrets and the shared field names.
package logging

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/sirupsen/logrus"
)

// LogConfig is built once from the command line and injected into every component
type LogConfig struct {
	ConfigFile    string
	LogLevel      string
	Verbose       int    // -v debug, -vv trace, -vvv trace with caller
	LogFormat     string // "text" or "json"
	JSONOutput    bool
	CorrelationID string // shared by every log entry of one invocation
	Debug         DebugFlags
}

// DebugFlags turn on detailed logging for one component regardless of the level
type DebugFlags struct {
	Sandbox   bool // sandbox copies, subject launches, exit details
	Diff      bool // every per-path decision, ignored paths included
	Transform bool // rule matches and produced artifacts
	Config    bool // loading and validation steps
}

// Debugging reports whether component-level debug output is enabled for component.
// Component names are the ComponentNames values; a nil config enables nothing.
func (lc *LogConfig) Debugging(component string) bool {
	if lc == nil {
		return false
	}
	switch component {
	case ComponentNames.Sandbox:
		return lc.Debug.Sandbox
	case ComponentNames.Diff:
		return lc.Debug.Diff
	case ComponentNames.Transform:
		return lc.Debug.Transform
	case ComponentNames.Config:
		return lc.Debug.Config
	default:
		return false
	}
}

// Level resolves the logrus level. Any -v count wins over an explicit --log-level.
func (lc *LogConfig) Level() (logrus.Level, error) {
	switch {
	case lc == nil:
		return logrus.InfoLevel, nil
	case lc.Verbose == 1:
		return logrus.DebugLevel, nil
	case lc.Verbose >= 2:
		return logrus.TraceLevel, nil
	case lc.LogLevel != "":
		level, err := logrus.ParseLevel(lc.LogLevel)
		if err != nil {
			return logrus.InfoLevel, fmt.Errorf("invalid log level %q: %w", lc.LogLevel, err)
		}
		return level, nil
	default:
		return logrus.InfoLevel, nil
	}
}

// GenerateCorrelationID returns 16 random hex characters
func GenerateCorrelationID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "fallback-id"
	}
	return hex.EncodeToString(b)
}
