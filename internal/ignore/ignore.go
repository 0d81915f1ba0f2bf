// Package ignore decides which relative paths of a fixture tree take part in a comparison.
//
// A path is ignored when any rule of the set matches it. Three rule kinds exist: globs
// matched against path components or path prefixes, regular expressions (with lookaround
// support) tested against the full relative path, and whitelist rules that ignore
// everything outside a set of prefixes.
package ignore

import (
	"path"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/dlclark/regexp2"

	appErrors "github.com/mrz1836/go-cligolden/internal/errors"
)

// Rule reports whether a slash-separated relative path is ignored
type Rule interface {
	Match(relPath string) bool
	String() string
}

// Glob matches path components (patterns without a slash, e.g. ".DS_Store" or "*.tgz") or
// path prefixes (patterns with a slash, e.g. "**/*.dsidx" or "build/cache")
type Glob struct {
	pattern  string
	anchored bool
}

// NewGlob validates pattern and creates a glob rule
func NewGlob(pattern string) (Glob, error) {
	cleaned := strings.TrimSuffix(strings.TrimPrefix(pattern, "/"), "/")
	if cleaned == "" || !doublestar.ValidatePattern(cleaned) {
		return Glob{}, appErrors.FormatError("ignore glob", pattern, "valid glob pattern")
	}
	return Glob{pattern: cleaned, anchored: strings.Contains(cleaned, "/")}, nil
}

// Match implements Rule
func (g Glob) Match(relPath string) bool {
	if !g.anchored {
		for _, component := range strings.Split(relPath, "/") {
			if ok, _ := doublestar.Match(g.pattern, component); ok {
				return true
			}
		}
		return false
	}

	// try the path itself and every directory containing it
	for candidate := relPath; candidate != "." && candidate != ""; candidate = path.Dir(candidate) {
		if ok, _ := doublestar.Match(g.pattern, candidate); ok {
			return true
		}
	}
	return false
}

func (g Glob) String() string { return g.pattern }

// Regex tests a regular expression against the full relative path. The expression is not
// anchored implicitly and may use lookahead, e.g. `^(?!(docs/|execution_output.txt))`.
type Regex struct {
	re *regexp2.Regexp
}

// NewRegex compiles expr into a regex rule
func NewRegex(expr string) (Regex, error) {
	re, err := regexp2.Compile(expr, regexp2.None)
	if err != nil {
		return Regex{}, appErrors.FormatError("ignore regex", expr, "valid regular expression")
	}
	return Regex{re: re}, nil
}

// Match implements Rule
func (r Regex) Match(relPath string) bool {
	ok, err := r.re.MatchString(relPath)
	return err == nil && ok
}

func (r Regex) String() string { return "/" + r.re.String() + "/" }

// Only ignores every path that is not one of the listed paths or inside one of them
type Only struct {
	prefixes []string
}

// NewOnly creates a whitelist rule for the given relative paths
func NewOnly(prefixes ...string) (Only, error) {
	cleaned := make([]string, 0, len(prefixes))
	for _, p := range prefixes {
		p = strings.Trim(path.Clean("/"+p), "/")
		if p == "" {
			return Only{}, appErrors.EmptyFieldError("only prefix")
		}
		cleaned = append(cleaned, p)
	}
	if len(cleaned) == 0 {
		return Only{}, appErrors.EmptyFieldError("only")
	}
	return Only{prefixes: cleaned}, nil
}

// Match implements Rule
func (o Only) Match(relPath string) bool {
	for _, prefix := range o.prefixes {
		if relPath == prefix || strings.HasPrefix(relPath, prefix+"/") {
			return false
		}
	}
	return true
}

func (o Only) String() string { return "only:" + strings.Join(o.prefixes, ",") }

// ParseRule turns a command-line style rule into a Rule. "/expr/" is a regex, anything else
// is a glob.
func ParseRule(s string) (Rule, error) {
	if len(s) > 2 && strings.HasPrefix(s, "/") && strings.HasSuffix(s, "/") {
		return NewRegex(s[1 : len(s)-1])
	}
	return NewGlob(s)
}

// Matcher evaluates an ordered rule set. It is safe for concurrent use; results are cached
// per path since rules never change after construction.
type Matcher struct {
	rules []Rule
	cache sync.Map // relative path -> index of the first matching rule, -1 for none
}

// New creates a Matcher over rules
func New(rules ...Rule) *Matcher {
	return &Matcher{rules: append([]Rule(nil), rules...)}
}

// IsIgnored reports whether relPath matches at least one rule
func (m *Matcher) IsIgnored(relPath string) bool {
	_, ok := m.MatchingRule(relPath)
	return ok
}

// MatchingRule returns the first rule matching relPath
func (m *Matcher) MatchingRule(relPath string) (Rule, bool) {
	if m == nil || len(m.rules) == 0 {
		return nil, false
	}

	normalized := strings.TrimPrefix(path.Clean(strings.ReplaceAll(relPath, "\\", "/")), "./")
	if cached, found := m.cache.Load(normalized); found {
		idx := cached.(int)
		if idx < 0 {
			return nil, false
		}
		return m.rules[idx], true
	}

	idx := -1
	for i, rule := range m.rules {
		if rule.Match(normalized) {
			idx = i
			break
		}
	}
	m.cache.Store(normalized, idx)

	if idx < 0 {
		return nil, false
	}
	return m.rules[idx], true
}

// Extend returns a new Matcher with extra rules appended; the receiver is unchanged
func (m *Matcher) Extend(rules ...Rule) *Matcher {
	if len(rules) == 0 && m != nil {
		return m
	}
	return New(append(m.Rules(), rules...)...)
}

// Rules returns a copy of the rule set
func (m *Matcher) Rules() []Rule {
	if m == nil {
		return nil
	}
	return append([]Rule(nil), m.rules...)
}
