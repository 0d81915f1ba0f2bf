// Package report renders fixture outcomes as the human-readable failure message.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/samber/lo"
	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/mrz1836/go-cligolden/internal/treediff"
)

// Options controls rendering
type Options struct {
	// Color enables ANSI colors
	Color bool

	// MaxDiffLines truncates long diffs; zero means no limit
	MaxDiffLines int

	// ShowMatches lists matching paths too
	ShowMatches bool
}

type palette struct {
	header  *color.Color
	path    *color.Color
	removed *color.Color
	added   *color.Color
	hunk    *color.Color
	note    *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		header:  color.New(color.FgRed, color.Bold),
		path:    color.New(color.Bold),
		removed: color.New(color.FgRed),
		added:   color.New(color.FgGreen),
		hunk:    color.New(color.FgCyan),
		note:    color.New(color.FgYellow),
	}
	for _, c := range []*color.Color{p.header, p.path, p.removed, p.added, p.hunk, p.note} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

// Render writes the report for one fixture. Nothing but the summary line is written for a
// passing fixture.
func Render(w io.Writer, fixture string, result *treediff.Result, execErr error, opts Options) error {
	p := newPalette(opts.Color)
	var b strings.Builder

	failures := result.Failures()
	if execErr == nil && len(failures) == 0 {
		fmt.Fprintf(&b, "PASS %s (%d paths compared)\n", fixture, len(entries(result)))
		if opts.ShowMatches {
			for _, e := range entries(result) {
				fmt.Fprintf(&b, "  match: %s\n", e.Path)
			}
		}
		_, err := io.WriteString(w, b.String())
		return err
	}

	b.WriteString(p.header.Sprintf("FAIL %s", fixture))
	b.WriteByte('\n')

	if execErr != nil {
		b.WriteString(p.note.Sprint("  execution error: "))
		b.WriteString(indent(execErr.Error(), "    ", true))
		b.WriteByte('\n')
	}

	for _, e := range entries(result) {
		if e.Kind == treediff.Match {
			if opts.ShowMatches {
				fmt.Fprintf(&b, "  match: %s\n", e.Path)
			}
			continue
		}
		renderEntry(&b, p, e, opts)
	}

	b.WriteString(Summary(result))
	b.WriteByte('\n')

	_, err := io.WriteString(w, b.String())
	return err
}

// String renders the report into a string
func String(fixture string, result *treediff.Result, execErr error, opts Options) string {
	var b strings.Builder
	_ = Render(&b, fixture, result, execErr, opts)
	return b.String()
}

// Summary returns a one-line count of mismatches by kind
func Summary(result *treediff.Result) string {
	counts := result.Counts()
	failures := len(result.Failures())
	if failures == 0 {
		return "no mismatched paths"
	}

	parts := lo.FilterMap([]treediff.Kind{treediff.ContentMismatch, treediff.MissingInActual, treediff.MissingInExpected},
		func(k treediff.Kind, _ int) (string, bool) {
			return fmt.Sprintf("%d %s", counts[k], k), counts[k] > 0
		})
	noun := "paths"
	if failures == 1 {
		noun = "path"
	}
	return fmt.Sprintf("%d mismatched %s (%s)", failures, noun, strings.Join(parts, ", "))
}

func entries(result *treediff.Result) []treediff.Entry {
	if result == nil {
		return nil
	}
	return result.Entries
}

func renderEntry(b *strings.Builder, p palette, e treediff.Entry, opts Options) {
	label := e.Kind.String()
	if e.Binary {
		label += " (binary)"
	}
	fmt.Fprintf(b, "  %s: %s\n", label, p.path.Sprint(e.Path))

	switch {
	case e.Err != nil:
		b.WriteString(p.note.Sprint("    transform failed: "))
		b.WriteString(indent(e.Err.Error(), "      ", true))
		b.WriteByte('\n')
	case e.Kind == treediff.MissingInActual:
		b.WriteString("    expected file was not produced\n")
	case e.Kind == treediff.MissingInExpected:
		b.WriteString("    unexpected file was produced\n")
	case e.Binary || e.Diff == "":
		fmt.Fprintf(b, "    expected %d bytes (sha256 %s), got %d bytes (sha256 %s)\n",
			e.ExpectedSize, short(e.ExpectedSum), e.ActualSize, short(e.ActualSum))
		if e.ExpectedText != "" || e.ActualText != "" {
			fmt.Fprintf(b, "    expected %q, got %q\n", e.ExpectedText, e.ActualText)
		}
	default:
		renderDiff(b, p, e.Diff, opts.MaxDiffLines)
		if inline, ok := inlineDiff(p, e.ExpectedText, e.ActualText); ok {
			b.WriteString("    inline: ")
			b.WriteString(inline)
			b.WriteByte('\n')
		}
	}
}

func renderDiff(b *strings.Builder, p palette, diff string, maxLines int) {
	lines := strings.Split(strings.TrimRight(diff, "\n"), "\n")
	truncated := 0
	if maxLines > 0 && len(lines) > maxLines {
		truncated = len(lines) - maxLines
		lines = lines[:maxLines]
	}

	for _, line := range lines {
		b.WriteString("    ")
		switch {
		case strings.HasPrefix(line, "---"), strings.HasPrefix(line, "+++"):
			b.WriteString(p.path.Sprint(line))
		case strings.HasPrefix(line, "@@"):
			b.WriteString(p.hunk.Sprint(line))
		case strings.HasPrefix(line, "-"):
			b.WriteString(p.removed.Sprint(line))
		case strings.HasPrefix(line, "+"):
			b.WriteString(p.added.Sprint(line))
		default:
			b.WriteString(line)
		}
		b.WriteByte('\n')
	}

	if truncated > 0 {
		fmt.Fprintf(b, "    ... %d more diff lines\n", truncated)
	}
}

// inlineDiff renders a character-level diff for single-line content, where a line diff
// only shows that the one line changed
func inlineDiff(p palette, expected, actual string) (string, bool) {
	expected = strings.TrimSuffix(expected, "\n")
	actual = strings.TrimSuffix(actual, "\n")
	if strings.Contains(expected, "\n") || strings.Contains(actual, "\n") {
		return "", false
	}

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffCleanupSemantic(dmp.DiffMain(expected, actual, false))

	var b strings.Builder
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			b.WriteString(p.removed.Sprint("[-" + d.Text + "-]"))
		case diffmatchpatch.DiffInsert:
			b.WriteString(p.added.Sprint("{+" + d.Text + "+}"))
		case diffmatchpatch.DiffEqual:
			b.WriteString(d.Text)
		}
	}
	return b.String(), true
}

func indent(text, prefix string, skipFirst bool) string {
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	for i := range lines {
		if i == 0 && skipFirst {
			continue
		}
		lines[i] = prefix + lines[i]
	}
	return strings.Join(lines, "\n")
}

func short(sum string) string {
	if len(sum) > 12 {
		return sum[:12]
	}
	return sum
}
