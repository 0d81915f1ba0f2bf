// Package metrics times the phases of a fixture run and logs their durations.
//
// Usage:
//
//	timer := metrics.StartTimer(log, metrics.PhaseCompare)
//	result, err := engine.Compare(ctx, actual, expected)
//	timer.AddField("paths", len(result.Entries)).StopWithError(err)
package metrics

import (
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mrz1836/go-cligolden/internal/logging"
)

// Phases of a fixture run
const (
	PhaseSetup   = "setup"
	PhaseSandbox = "sandbox"
	PhaseCompare = "compare"
)

// DefaultSlowThreshold is the duration above which a successful phase logs a warning
const DefaultSlowThreshold = 30 * time.Second

// Timer tracks one phase. It is not safe for concurrent use; each fixture owns its timers.
type Timer struct {
	start  time.Time
	phase  string
	logger *logrus.Entry
	fields logrus.Fields
	slow   time.Duration
}

// StartTimer starts timing phase. A nil logger discards the log entries.
func StartTimer(logger *logrus.Entry, phase string) *Timer {
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = logrus.NewEntry(l)
	}
	return &Timer{
		start:  time.Now(),
		phase:  phase,
		logger: logger.WithField(logging.StandardFields.Phase, phase),
		fields: make(logrus.Fields),
		slow:   DefaultSlowThreshold,
	}
}

// WithThreshold sets the slow-phase threshold; zero disables the warning
func (t *Timer) WithThreshold(d time.Duration) *Timer {
	t.slow = d
	return t
}

// AddField adds a field logged when the timer stops
func (t *Timer) AddField(key string, value interface{}) *Timer {
	t.fields[key] = value
	return t
}

// Stop logs the phase duration
func (t *Timer) Stop() time.Duration {
	return t.StopWithError(nil)
}

// StopWithError logs the phase duration, at error level when err is non-nil
func (t *Timer) StopWithError(err error) time.Duration {
	duration := time.Since(t.start)
	t.fields[logging.StandardFields.DurationMs] = duration.Milliseconds()

	entry := t.logger.WithFields(t.fields)
	switch {
	case err != nil:
		entry.WithField(logging.StandardFields.Error, err.Error()).
			WithField(logging.StandardFields.Status, "failed").
			Error("Phase failed")
	case t.slow > 0 && duration > t.slow:
		entry.WithField(logging.StandardFields.Status, "completed").Warn("Phase took longer than expected")
	default:
		entry.WithField(logging.StandardFields.Status, "completed").Debug("Phase completed")
	}
	return duration
}

// Elapsed returns the time since the timer started
func (t *Timer) Elapsed() time.Duration {
	return time.Since(t.start)
}
