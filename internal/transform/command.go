package transform

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/anmitsu/go-shlex"
	"github.com/samber/lo"

	appErrors "github.com/mrz1836/go-cligolden/internal/errors"
)

// CommandTransformer runs an external command that produces the derived artifact.
//
// The command line is shell-tokenized once; each token may reference {{input}}, {{output}},
// {{name}} and any context variable using {{VAR}} or ${VAR}. The command runs in the
// directory of the input file without a shell, so no quoting of substituted paths is needed.
// A command that references the output path writes the artifact itself; any other command
// has its stdout stored as the artifact.
type CommandTransformer struct {
	command      string
	argv         []string
	suffix       string
	timeout      time.Duration
	writesOutput bool
}

// NewCommandTransformer parses command and creates a transformer writing <input><suffix>
func NewCommandTransformer(command, suffix string, timeout time.Duration) (*CommandTransformer, error) {
	argv, err := shlex.Split(command, true)
	if err != nil {
		return nil, appErrors.FormatError("transform command", command, "shell-style command line")
	}
	if len(argv) == 0 {
		return nil, appErrors.EmptyFieldError("transform command")
	}
	if suffix == "" {
		return nil, appErrors.EmptyFieldError("transform suffix")
	}
	writesOutput := lo.SomeBy(argv, func(token string) bool {
		return strings.Contains(token, "{{output}}") || strings.Contains(token, "${output}")
	})
	return &CommandTransformer{
		command:      command,
		argv:         argv,
		suffix:       suffix,
		timeout:      timeout,
		writesOutput: writesOutput,
	}, nil
}

// Name returns the name of this transformer
func (c *CommandTransformer) Name() string {
	return "command:" + c.argv[0]
}

// Output returns the path of the artifact for input
func (c *CommandTransformer) Output(input string) string {
	return input + c.suffix
}

// Transform runs the command and, unless the command writes the artifact itself, stores its
// stdout at the artifact path. A failed command removes any stale artifact so the comparison
// sees it as absent.
func (c *CommandTransformer) Transform(ctx context.Context, tctx Context) error {
	input := tctx.Path()
	output := c.Output(input)

	vars := make(map[string]string, len(tctx.Variables)+3)
	for k, v := range tctx.Variables {
		vars[k] = v
	}
	vars["input"] = input
	vars["output"] = output
	vars["name"] = filepath.Base(input)

	argv := make([]string, len(c.argv))
	for i, token := range c.argv {
		argv[i] = ExpandVariables(token, vars)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	if c.writesOutput {
		// a command that exits without writing must not leave the previous artifact behind
		if err := os.Remove(output); err != nil && !errors.Is(err, os.ErrNotExist) {
			return NewError(appErrors.FileWriteError(output, err), c.Name(), tctx.RelPath, output)
		}
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...) //nolint:gosec // command comes from the harness configuration
	cmd.Dir = filepath.Dir(input)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		_ = os.Remove(output)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return NewError(ctxErr, c.Name(), tctx.RelPath, output)
		}
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			err = fmt.Errorf("%w: %s", err, msg)
		}
		return NewError(withCategory(CategoryCommand, appErrors.CommandFailedError(strings.Join(argv, " "), err)),
			c.Name(), tctx.RelPath, output)
	}

	if c.writesOutput {
		return nil
	}
	if err := os.WriteFile(output, stdout.Bytes(), 0o644); err != nil { //nolint:gosec // artifacts are plain files in the sandbox
		return NewError(appErrors.FileWriteError(output, err), c.Name(), tctx.RelPath, output)
	}
	return nil
}

func (c *CommandTransformer) String() string { return c.command }
