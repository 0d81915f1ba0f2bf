package cli

import (
	"time"

	"github.com/mrz1836/go-cligolden/internal/config"
	"github.com/mrz1836/go-cligolden/internal/fixture"
	"github.com/mrz1836/go-cligolden/internal/treediff"
)

type runReport struct {
	CorrelationID string          `json:"correlation_id,omitempty"`
	Passed        int             `json:"passed"`
	Failed        int             `json:"failed"`
	DurationMs    int64           `json:"duration_ms"`
	Fixtures      []fixtureReport `json:"fixtures"`
	Skipped       []skippedReport `json:"skipped,omitempty"`
}

type skippedReport struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

type fixtureReport struct {
	Name           string          `json:"name"`
	Passed         bool            `json:"passed"`
	DurationMs     int64           `json:"duration_ms"`
	ExitCode       *int            `json:"exit_code,omitempty"`
	ExecutionError string          `json:"execution_error,omitempty"`
	SetupError     string          `json:"setup_error,omitempty"`
	Compared       int             `json:"compared"`
	Mismatches     []mismatchEntry `json:"mismatches,omitempty"`
}

type mismatchEntry struct {
	Path           string `json:"path"`
	Kind           string `json:"kind"`
	Binary         bool   `json:"binary,omitempty"`
	Diff           string `json:"diff,omitempty"`
	ExpectedSum    string `json:"expected_sha256,omitempty"`
	ActualSum      string `json:"actual_sha256,omitempty"`
	TransformError string `json:"transform_error,omitempty"`
}

func newRunReport(correlationID string, outcomes []*fixture.Outcome, skipped []config.SkippedFixture, elapsed time.Duration) runReport {
	r := runReport{
		CorrelationID: correlationID,
		DurationMs:    elapsed.Milliseconds(),
		Fixtures:      make([]fixtureReport, 0, len(outcomes)),
	}

	for _, o := range outcomes {
		fr := fixtureReport{
			Name:       o.Fixture,
			Passed:     o.Passed(),
			DurationMs: o.Duration.Milliseconds(),
		}
		if fr.Passed {
			r.Passed++
		} else {
			r.Failed++
		}

		if o.SetupErr != nil {
			fr.SetupError = o.SetupErr.Error()
		}
		if o.Record != nil {
			code := o.Record.ExitCode
			fr.ExitCode = &code
		}
		if o.ExecErr != nil {
			fr.ExecutionError = o.ExecErr.Error()
		}
		if o.Result != nil {
			fr.Compared = len(o.Result.Entries)
			for _, e := range o.Result.Failures() {
				fr.Mismatches = append(fr.Mismatches, newMismatch(e))
			}
		}
		r.Fixtures = append(r.Fixtures, fr)
	}
	for _, sk := range skipped {
		r.Skipped = append(r.Skipped, skippedReport(sk))
	}
	return r
}

func newMismatch(e treediff.Entry) mismatchEntry {
	m := mismatchEntry{
		Path:   e.Path,
		Kind:   e.Kind.String(),
		Binary: e.Binary,
		Diff:   e.Diff,
	}
	if e.Binary {
		m.ExpectedSum, m.ActualSum = e.ExpectedSum, e.ActualSum
	}
	if e.Err != nil {
		m.TransformError = e.Err.Error()
	}
	return m
}
