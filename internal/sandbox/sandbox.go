// Package sandbox materializes a fixture's "before" tree into an exclusive temporary
// directory and runs the subject command inside it.
package sandbox

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/anmitsu/go-shlex"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/mrz1836/go-cligolden/internal/env"
	appErrors "github.com/mrz1836/go-cligolden/internal/errors"
	"github.com/mrz1836/go-cligolden/internal/logging"
	"github.com/mrz1836/go-cligolden/internal/normalize"
)

// ExecutionOutputFile is the well-known file that receives the subject's captured output
// when the expected tree contains it
const ExecutionOutputFile = "execution_output.txt"

// SandboxToken replaces the absolute sandbox path in captured output and compared content
const SandboxToken = "TMP_DIR"

// CaptureMode selects which streams end up in ExecutionOutputFile
type CaptureMode string

const (
	// CaptureStdout writes stdout only
	CaptureStdout CaptureMode = "stdout"

	// CaptureCombined writes stdout and stderr interleaved as the subject produced them
	CaptureCombined CaptureMode = "combined"
)

// Invocation describes how the subject is launched. It is immutable once built.
type Invocation struct {
	// Executable is the path or PATH-resolved name of the subject
	Executable string

	// DisplayName is used for the command line echoed into ExecutionOutputFile
	DisplayName string

	// DefaultArgs are prepended to every fixture's arguments
	DefaultArgs []string

	// Env is overlaid on the ambient environment
	Env map[string]string

	// Timeout bounds a single run; zero means no limit
	Timeout time.Duration

	Capture CaptureMode
}

// ParseInvocation builds an Invocation from a shell-style command line. The first token is
// the executable, the rest become default arguments.
func ParseInvocation(command string, overlay map[string]string, timeout time.Duration) (Invocation, error) {
	argv, err := shlex.Split(command, true)
	if err != nil {
		return Invocation{}, appErrors.FormatError("executable", command, "shell-style command line")
	}
	if len(argv) == 0 {
		return Invocation{}, appErrors.ErrNoExecutable
	}
	return Invocation{
		Executable:  argv[0],
		DisplayName: filepath.Base(argv[0]),
		DefaultArgs: argv[1:],
		Env:         overlay,
		Timeout:     timeout,
		Capture:     CaptureStdout,
	}, nil
}

// Request is one fixture run
type Request struct {
	// Name names the sandbox directory and log entries
	Name string

	// BeforeDir is copied into the sandbox; a missing directory is treated as an empty tree
	BeforeDir string

	// AfterDir is consulted to decide whether captured output is written
	AfterDir string

	// Args are appended to the invocation's default arguments
	Args []string

	// Env is overlaid on top of the invocation environment
	Env map[string]string

	// Timeout overrides the invocation timeout when non-zero
	Timeout time.Duration

	// ExitCode is the expected exit status
	ExitCode int
}

// Record captures what happened during a run
type Record struct {
	// Dir is the sandbox root
	Dir string

	// Argv is the full command line, executable first
	Argv []string

	Stdout   []byte
	Stderr   []byte
	ExitCode int
	Duration time.Duration

	// OutputWritten reports whether ExecutionOutputFile was written into the sandbox
	OutputWritten bool

	// Normalizer is the runner's table with the sandbox path prepended
	Normalizer *normalize.Normalizer

	// Err is set when the subject failed to launch, timed out, or exited unexpectedly
	Err *ExecutionError
}

// CommandLine returns the normalized command line as echoed into ExecutionOutputFile
func (r *Record) CommandLine(displayName string) string {
	parts := append([]string{displayName}, r.Argv[1:]...)
	return r.Normalizer.Normalize(strings.Join(parts, " "))
}

// Options configures a Runner
type Options struct {
	// TempRoot holds every sandbox; defaults to os.TempDir()
	TempRoot string

	// Keep leaves sandboxes in place after Cleanup
	Keep bool

	// Normalizer is applied to captured output
	Normalizer *normalize.Normalizer

	// Limiter throttles subject launches; nil means unlimited
	Limiter *rate.Limiter

	Logger    *logrus.Logger
	LogConfig *logging.LogConfig
}

// Runner prepares sandboxes and executes the subject. A Runner holds no per-run state and
// may be used by concurrent fixtures.
type Runner struct {
	inv        Invocation
	tempRoot   string
	keep       bool
	normalizer *normalize.Normalizer
	limiter    *rate.Limiter
	logger     *logrus.Logger
	logConfig  *logging.LogConfig
}

// NewRunner creates a Runner for inv
func NewRunner(inv Invocation, opts Options) *Runner {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	tempRoot := opts.TempRoot
	if tempRoot == "" {
		tempRoot = os.TempDir()
	}
	if inv.DisplayName == "" {
		inv.DisplayName = filepath.Base(inv.Executable)
	}
	if inv.Capture == "" {
		inv.Capture = CaptureStdout
	}
	return &Runner{
		inv:        inv,
		tempRoot:   tempRoot,
		keep:       opts.Keep,
		normalizer: opts.Normalizer,
		limiter:    opts.Limiter,
		logger:     logger,
		logConfig:  opts.LogConfig,
	}
}

// Invocation returns the runner's invocation
func (r *Runner) Invocation() Invocation {
	return r.inv
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Run copies req.BeforeDir into a fresh sandbox and executes the subject there. The
// returned error is reserved for setup failures (sandbox creation or copy); problems with
// the subject itself are reported in Record.Err and leave the sandbox ready to compare.
func (r *Runner) Run(ctx context.Context, req Request) (*Record, error) {
	log := logging.WithStandardFields(r.logger, r.logConfig, logging.ComponentNames.Sandbox).
		WithField(logging.StandardFields.Fixture, req.Name)

	if err := os.MkdirAll(r.tempRoot, 0o750); err != nil {
		return nil, appErrors.DirectoryCreateError(r.tempRoot, err)
	}

	prefix := unsafeName.ReplaceAllString(req.Name, "_")
	if prefix == "" {
		prefix = "fixture"
	}
	dir, err := os.MkdirTemp(r.tempRoot, prefix+"-")
	if err != nil {
		return nil, appErrors.DirectoryCreateError(r.tempRoot, err)
	}

	record := &Record{Dir: dir, Normalizer: r.scopedNormalizer(dir)}
	log = log.WithField(logging.StandardFields.SandboxDir, dir)

	if err := r.populate(req.BeforeDir, dir, log); err != nil {
		_ = os.RemoveAll(dir)
		return nil, err
	}

	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			record.Argv = r.argv(req)
			record.ExitCode = -1
			record.Err = &ExecutionError{Reason: ReasonLaunch, Command: strings.Join(record.Argv, " "), Err: err}
			return record, nil
		}
	}

	r.execute(ctx, req, record, log)

	if err := r.writeExecutionOutput(req, record); err != nil {
		return record, err
	}
	return record, nil
}

// Cleanup removes the sandbox of rec unless the runner keeps sandboxes
func (r *Runner) Cleanup(rec *Record) error {
	if rec == nil || rec.Dir == "" {
		return nil
	}
	if r.keep {
		r.logger.WithField(logging.StandardFields.SandboxDir, rec.Dir).Info("Keeping sandbox for inspection")
		return nil
	}
	if err := os.RemoveAll(rec.Dir); err != nil {
		return appErrors.DirectoryRemoveError(rec.Dir, err)
	}
	return nil
}

func (r *Runner) populate(before, dir string, log *logrus.Entry) error {
	start := time.Now()

	info, err := os.Stat(before)
	switch {
	case errors.Is(err, os.ErrNotExist):
		log.WithField(logging.StandardFields.FixtureDir, before).Debug("Fixture has no before tree, starting empty")
		return nil
	case err != nil:
		return appErrors.FileReadError(before, err)
	case !info.IsDir():
		return appErrors.InvalidFieldError("before", before)
	}

	if err := CopyTree(before, dir); err != nil {
		return err
	}

	log.WithFields(logrus.Fields{
		logging.StandardFields.Operation:  logging.OperationTypes.SandboxCopy,
		logging.StandardFields.DurationMs: time.Since(start).Milliseconds(),
	}).Debug("Copied before tree into sandbox")
	return nil
}

func (r *Runner) scopedNormalizer(dir string) *normalize.Normalizer {
	rules := []normalize.Rule{normalize.NewLiteral(dir, SandboxToken)}
	if resolved, err := filepath.EvalSymlinks(dir); err == nil && resolved != dir {
		rules = append([]normalize.Rule{normalize.NewLiteral(resolved, SandboxToken)}, rules...)
	}
	return r.normalizer.Prepend(rules...)
}

func (r *Runner) argv(req Request) []string {
	argv := make([]string, 0, 1+len(r.inv.DefaultArgs)+len(req.Args))
	argv = append(argv, r.inv.Executable)
	argv = append(argv, r.inv.DefaultArgs...)
	return append(argv, req.Args...)
}

func (r *Runner) environment(req Request, dir string) []string {
	merged := map[string]string{}
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			merged[k] = v
		}
	}
	for k, v := range env.Overlay(r.inv.Env, req.Env) {
		merged[k] = v
	}
	merged["PWD"] = dir

	environ := make([]string, 0, len(merged))
	for k, v := range merged {
		environ = append(environ, k+"="+v)
	}
	sort.Strings(environ)
	return environ
}

func (r *Runner) timeout(req Request) time.Duration {
	if req.Timeout > 0 {
		return req.Timeout
	}
	return r.inv.Timeout
}

func (r *Runner) execute(ctx context.Context, req Request, record *Record, log *logrus.Entry) {
	record.Argv = r.argv(req)
	commandLine := strings.Join(record.Argv, " ")
	timeout := r.timeout(req)

	entry := log.WithFields(logrus.Fields{
		logging.StandardFields.Operation: logging.OperationTypes.SubjectRun,
		logging.StandardFields.Command:   commandLine,
	})
	if r.logConfig.Debugging(logging.ComponentNames.Sandbox) {
		entry.WithField("env", logging.RedactEnv(env.Overlay(r.inv.Env, req.Env))).Debug("Launching subject")
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.Command(record.Argv[0], record.Argv[1:]...) //nolint:gosec // the subject is configured by the harness user
	cmd.Dir = record.Dir
	cmd.Env = r.environment(req, record.Dir)
	cmd.Stdout = &stdout
	if r.inv.Capture == CaptureCombined {
		cmd.Stderr = &stdout
	} else {
		cmd.Stderr = &stderr
	}
	// grandchildren holding the pipes open must not block Wait forever
	cmd.WaitDelay = 2 * time.Second

	start := time.Now()
	defer func() { record.Duration = time.Since(start) }()

	if err := cmd.Start(); err != nil {
		record.ExitCode = -1
		record.Err = &ExecutionError{Reason: ReasonLaunch, Command: commandLine, ExitCode: -1, Expected: req.ExitCode, Err: err}
		entry.WithField(logging.StandardFields.Error, err.Error()).Warn("Subject failed to launch")
		return
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	var timer <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		timer = t.C
	}

	var waitErr error
	var interrupted error
	reason := ReasonTimeout
	select {
	case waitErr = <-done:
	case <-timer:
		interrupted = context.DeadlineExceeded
	case <-ctx.Done():
		interrupted = ctx.Err()
		reason = ReasonCanceled
	}

	if interrupted != nil {
		if err := killTree(cmd.Process.Pid); err != nil {
			_ = cmd.Process.Kill()
		}
		<-done
		record.Stdout, record.Stderr = stdout.Bytes(), stderr.Bytes()
		record.ExitCode = -1
		record.Err = &ExecutionError{
			Reason:   reason,
			Command:  commandLine,
			ExitCode: -1,
			Expected: req.ExitCode,
			Timeout:  timeout,
			Stderr:   stderr.String(),
			Err:      interrupted,
		}
		entry.WithFields(logrus.Fields{
			logging.StandardFields.DurationMs: time.Since(start).Milliseconds(),
			logging.StandardFields.Status:     string(reason),
		}).Warn("Subject interrupted, process tree killed")
		return
	}

	record.Stdout, record.Stderr = stdout.Bytes(), stderr.Bytes()
	record.ExitCode = cmd.ProcessState.ExitCode()

	var exitErr *exec.ExitError
	if waitErr != nil && !errors.As(waitErr, &exitErr) {
		record.Err = &ExecutionError{Reason: ReasonLaunch, Command: commandLine, ExitCode: record.ExitCode, Expected: req.ExitCode, Err: waitErr}
		return
	}

	if record.ExitCode != req.ExitCode {
		record.Err = &ExecutionError{
			Reason:   ReasonExitStatus,
			Command:  commandLine,
			ExitCode: record.ExitCode,
			Expected: req.ExitCode,
			Stderr:   stderr.String(),
			Err:      waitErr,
		}
	}

	entry.WithFields(logrus.Fields{
		logging.StandardFields.ExitCode:   record.ExitCode,
		logging.StandardFields.DurationMs: time.Since(start).Milliseconds(),
	}).Debug("Subject finished")
}

func (r *Runner) writeExecutionOutput(req Request, record *Record) error {
	if req.AfterDir == "" {
		return nil
	}
	if _, err := os.Stat(filepath.Join(req.AfterDir, ExecutionOutputFile)); err != nil {
		return nil //nolint:nilerr // no expected output means nothing to capture
	}

	var buf bytes.Buffer
	buf.WriteString("$ ")
	buf.WriteString(record.CommandLine(r.inv.DisplayName))
	buf.WriteByte('\n')
	buf.Write(record.Normalizer.NormalizeBytes(record.Stdout))

	path := filepath.Join(record.Dir, ExecutionOutputFile)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil { //nolint:gosec // sandbox files are compared, not secret
		return appErrors.FileWriteError(path, err)
	}
	record.OutputWritten = true
	return nil
}
