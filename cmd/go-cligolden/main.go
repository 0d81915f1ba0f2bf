// Package main is the entry point for the go-cligolden CLI tool.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/fatih/color"

	"github.com/mrz1836/go-cligolden/internal/cli"
	"github.com/mrz1836/go-cligolden/internal/output"
)

// Exit codes: fixture failures are distinguished from harness problems
const (
	exitOK            = 0
	exitFixtureFailed = 1
	exitHarnessError  = 2
)

// errPanicRecovered is returned when a panic is recovered during application execution.
var errPanicRecovered = errors.New("panic recovered")

func main() {
	app := NewApp()
	os.Exit(exitCode(app.Run(context.Background())))
}

// App represents the main application with testable components
type App struct {
	outputHandler OutputHandler
	cliExecutor   CLIExecutor
}

// OutputHandler defines interface for output operations
type OutputHandler interface {
	Init()
	Error(msg string)
}

// CLIExecutor defines interface for CLI execution
type CLIExecutor interface {
	Execute(ctx context.Context) error
}

// DefaultOutputHandler writes to the process stdout and stderr
type DefaultOutputHandler struct{}

// Init enables color unless NO_COLOR is set or stdout is not a terminal
func (d *DefaultOutputHandler) Init() {
	output.Init(os.Stdout, os.Stderr, !color.NoColor)
}

func (d *DefaultOutputHandler) Error(msg string) {
	output.Error(msg)
}

// DefaultCLIExecutor implements CLIExecutor using the cli package
type DefaultCLIExecutor struct{}

func (d *DefaultCLIExecutor) Execute(ctx context.Context) error {
	return cli.ExecuteWithContext(ctx)
}

// NewApp creates a new App instance with default implementations
func NewApp() *App {
	return &App{
		outputHandler: &DefaultOutputHandler{},
		cliExecutor:   &DefaultCLIExecutor{},
	}
}

// NewAppWithDependencies creates a new App instance with injectable dependencies.
// Panics if either dependency is nil to fail fast during initialization.
func NewAppWithDependencies(outputHandler OutputHandler, cliExecutor CLIExecutor) *App {
	if outputHandler == nil {
		panic("outputHandler must not be nil")
	}
	if cliExecutor == nil {
		panic("cliExecutor must not be nil")
	}
	return &App{
		outputHandler: outputHandler,
		cliExecutor:   cliExecutor,
	}
}

// Run executes the CLI. Errors are displayed before they are returned; a failed fixture
// run has already printed its report, so only the summary error follows it.
func (a *App) Run(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			a.outputHandler.Error(fmt.Sprintf("Fatal error: %v\n%s", r, debug.Stack()))
			err = fmt.Errorf("%w: %v", errPanicRecovered, r)
		}
	}()

	a.outputHandler.Init()

	err = a.cliExecutor.Execute(ctx)
	if err != nil {
		a.outputHandler.Error(err.Error())
	}
	return err
}

// exitCode maps a run error to the process exit status
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, cli.ErrFixturesFailed):
		return exitFixtureFailed
	default:
		return exitHarnessError
	}
}
