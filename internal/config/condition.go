package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/samber/lo"
)

// SkippedFixture is a configured fixture whose when condition does not hold
type SkippedFixture struct {
	Name   string
	Reason string
}

// Enabled reports whether the condition holds in the environment read by lookup. When it
// does not, the returned reason names the variable and the accepted values. A nil
// condition always holds.
func (c *Condition) Enabled(lookup func(string) (string, bool)) (bool, string) {
	if c == nil {
		return true, ""
	}

	value, _ := lookup(c.Env)
	if value == "" || lo.Contains(c.Equals, value) {
		return true, ""
	}

	if len(c.Equals) == 0 {
		return false, fmt.Sprintf("%s=%s, runs only while %s is unset", c.Env, value, c.Env)
	}
	return false, fmt.Sprintf("%s=%s, runs only for %s", c.Env, value, strings.Join(c.Equals, ", "))
}

func (c *Condition) validate() error {
	if c == nil {
		return nil
	}
	if strings.TrimSpace(c.Env) == "" || strings.ContainsAny(c.Env, "= \t") {
		return fmt.Errorf("%w: when: env %q is not a variable name", ErrInvalidFixture, c.Env)
	}
	return nil
}

// SkippedFixtures lists the configured fixtures disabled by their when condition in the
// current process environment, in file order
func (c *Config) SkippedFixtures() []SkippedFixture {
	var skipped []SkippedFixture
	for _, spec := range c.Fixtures {
		if ok, reason := spec.When.Enabled(os.LookupEnv); !ok {
			skipped = append(skipped, SkippedFixture{Name: spec.Name, Reason: reason})
		}
	}
	return skipped
}
