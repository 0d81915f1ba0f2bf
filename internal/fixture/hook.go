package fixture

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	appErrors "github.com/mrz1836/go-cligolden/internal/errors"
	"github.com/mrz1836/go-cligolden/internal/transform"
)

// Hook prepares a fixture's before tree. It runs once per suite, outside any sandbox, and
// may return variables for the fixture's arguments and environment.
type Hook interface {
	Run(ctx context.Context, dir string, vars map[string]string) (map[string]string, error)
	String() string
}

// HookFunc adapts a function into a Hook
type HookFunc func(ctx context.Context, dir string, vars map[string]string) (map[string]string, error)

// Run calls f
func (f HookFunc) Run(ctx context.Context, dir string, vars map[string]string) (map[string]string, error) {
	return f(ctx, dir, vars)
}

func (f HookFunc) String() string { return "func" }

// ShellHook runs a command through /bin/sh inside the before directory. With Capture set,
// its trimmed stdout is stored under that variable name.
type ShellHook struct {
	Command string
	Capture string
	Env     map[string]string
}

// Run implements Hook
func (h ShellHook) Run(ctx context.Context, dir string, vars map[string]string) (map[string]string, error) {
	command := transform.ExpandVariables(h.Command, vars)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, "sh", "-c", command) //nolint:gosec // setup steps come from the harness configuration
	cmd.Dir = dir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.Env = os.Environ()
	for k, v := range h.Env {
		cmd.Env = append(cmd.Env, k+"="+transform.ExpandVariables(v, vars))
	}

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			err = fmt.Errorf("%w: %s", err, msg)
		}
		return nil, appErrors.CommandFailedError(command, err)
	}

	if h.Capture == "" {
		return nil, nil
	}
	return map[string]string{h.Capture: strings.TrimSpace(stdout.String())}, nil
}

func (h ShellHook) String() string {
	if h.Capture != "" {
		return h.Capture + " <- " + h.Command
	}
	return h.Command
}
