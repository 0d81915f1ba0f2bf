// Package normalize rewrites machine-specific strings (absolute roots, injected dates and
// version numbers) into stable placeholder tokens before content is compared or reported.
package normalize

import (
	"regexp"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"

	appErrors "github.com/mrz1836/go-cligolden/internal/errors"
)

// Rule is a single substitution applied by a Normalizer
type Rule interface {
	// Apply returns s with every occurrence handled by the rule replaced by its token
	Apply(s string) string
	// Token returns the placeholder written in place of a match
	Token() string
	// String describes the rule for logs
	String() string
}

// Literal replaces every occurrence of Value with Token
type Literal struct {
	Value       string
	Placeholder string
}

// NewLiteral creates a literal substitution
func NewLiteral(value, token string) Literal {
	return Literal{Value: value, Placeholder: token}
}

// Apply implements Rule
func (l Literal) Apply(s string) string {
	if l.Value == "" {
		return s
	}
	return strings.ReplaceAll(s, l.Value, l.Placeholder)
}

// Token implements Rule
func (l Literal) Token() string { return l.Placeholder }

func (l Literal) String() string { return "literal:" + l.Value + " -> " + l.Placeholder }

// Pattern replaces every match of a regular expression with a token
type Pattern struct {
	re          *regexp.Regexp
	placeholder string
}

// NewPattern compiles expr into a substitution rule
func NewPattern(expr, token string) (Pattern, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return Pattern{}, appErrors.FormatError("substitution pattern", expr, "valid regular expression")
	}
	return Pattern{re: re, placeholder: token}, nil
}

// Apply implements Rule
func (p Pattern) Apply(s string) string {
	if p.re == nil {
		return s
	}
	return p.re.ReplaceAllLiteralString(s, p.placeholder)
}

// Token implements Rule
func (p Pattern) Token() string { return p.placeholder }

func (p Pattern) String() string { return "pattern:" + p.re.String() + " -> " + p.placeholder }

// AnyVersion matches anything that parses as a semantic version
const AnyVersion = "*"

var versionCandidate = regexp.MustCompile(`\bv?\d+\.\d+\.\d+(?:-[0-9A-Za-z.-]+)?(?:\+[0-9A-Za-z.-]+)?\b`)

// Semver replaces a version number with a token. A fixed version matches its common
// spellings ("1.2.3" and "v1.2.3"); AnyVersion matches every valid semantic version.
type Semver struct {
	forms       []string
	placeholder string
}

// NewSemver builds a version substitution. version is either AnyVersion or a version
// accepted by semver.NewVersion.
func NewSemver(version, token string) (Semver, error) {
	if version == AnyVersion {
		return Semver{placeholder: token}, nil
	}

	v, err := semver.NewVersion(version)
	if err != nil {
		return Semver{}, appErrors.FormatError("version substitution", version, "semantic version")
	}

	seen := map[string]struct{}{}
	forms := make([]string, 0, 3)
	for _, form := range []string{v.Original(), v.String(), "v" + v.String()} {
		if _, ok := seen[form]; ok {
			continue
		}
		seen[form] = struct{}{}
		forms = append(forms, form)
	}
	sort.SliceStable(forms, func(i, j int) bool { return len(forms[i]) > len(forms[j]) })

	return Semver{forms: forms, placeholder: token}, nil
}

// Apply implements Rule
func (v Semver) Apply(s string) string {
	if v.forms == nil {
		return versionCandidate.ReplaceAllStringFunc(s, func(m string) string {
			if _, err := semver.StrictNewVersion(strings.TrimPrefix(m, "v")); err != nil {
				return m
			}
			return v.placeholder
		})
	}
	for _, form := range v.forms {
		s = strings.ReplaceAll(s, form, v.placeholder)
	}
	return s
}

// Token implements Rule
func (v Semver) Token() string { return v.placeholder }

func (v Semver) String() string {
	if v.forms == nil {
		return "semver:* -> " + v.placeholder
	}
	return "semver:" + v.forms[len(v.forms)-1] + " -> " + v.placeholder
}

// Normalizer applies an ordered table of rules. It is immutable; Prepend returns a copy.
type Normalizer struct {
	rules []Rule
}

// New creates a Normalizer that applies rules in the given order
func New(rules ...Rule) *Normalizer {
	return &Normalizer{rules: append([]Rule(nil), rules...)}
}

// Normalize applies every rule in registration order
func (n *Normalizer) Normalize(s string) string {
	if n == nil {
		return s
	}
	for _, rule := range n.rules {
		s = rule.Apply(s)
	}
	return s
}

// NormalizeBytes is Normalize for file content
func (n *Normalizer) NormalizeBytes(b []byte) []byte {
	if n == nil || len(n.rules) == 0 {
		return b
	}
	return []byte(n.Normalize(string(b)))
}

// Prepend returns a Normalizer whose table starts with rules, followed by the receiver's rules
func (n *Normalizer) Prepend(rules ...Rule) *Normalizer {
	combined := make([]Rule, 0, len(rules)+n.Len())
	combined = append(combined, rules...)
	if n != nil {
		combined = append(combined, n.rules...)
	}
	return &Normalizer{rules: combined}
}

// Rules returns a copy of the substitution table
func (n *Normalizer) Rules() []Rule {
	if n == nil {
		return nil
	}
	return append([]Rule(nil), n.rules...)
}

// Len returns the number of rules
func (n *Normalizer) Len() int {
	if n == nil {
		return 0
	}
	return len(n.rules)
}
