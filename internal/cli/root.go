// Package cli implements the go-cligolden command line: running golden fixtures, listing
// and validating them, and printing version information.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mrz1836/go-cligolden/internal/output"
)

const rootLong = `go-cligolden runs a command-line program against golden fixtures.

Each fixture holds a "before" tree, copied into a fresh sandbox where the program
runs, and an "after" tree the sandbox must match afterwards. Differences are
reported per path: unified diffs for text, sizes and checksums for binary files.`

// NewRootCmd creates an isolated root command with its own flags, so tests and embedders
// never share state
func NewRootCmd() *cobra.Command {
	flags := newFlags()

	cmd := &cobra.Command{
		Use:               "go-cligolden",
		Short:             "Golden directory tree tests for command-line programs",
		Long:              rootLong,
		PersistentPreRunE: setupSession(flags),
		SilenceUsage:      true,
		SilenceErrors:     true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&flags.ConfigFile, "config", "c", DefaultConfigFile, "Path to configuration file (.yaml or .toml)")
	pf.StringVar(&flags.LogLevel, "log-level", "info", "Log level (trace, debug, info, warn, error)")
	pf.StringVar(&flags.LogFormat, "log-format", "text", "Log format (text, json)")
	pf.CountVarP(&flags.Verbose, "verbose", "v", "Increase verbosity (-v debug, -vv trace, -vvv trace with caller)")
	pf.BoolVar(&flags.NoColor, "no-color", false, "Disable colored output")
	pf.BoolVar(&flags.JSON, "json", false, "Print machine-readable JSON instead of text")
	pf.BoolVar(&flags.Debug.Sandbox, "debug-sandbox", false, "Debug sandbox creation and subject execution")
	pf.BoolVar(&flags.Debug.Diff, "debug-diff", false, "Debug per-path comparison decisions")
	pf.BoolVar(&flags.Debug.Transform, "debug-transform", false, "Debug transform rule matches")
	pf.BoolVar(&flags.Debug.Config, "debug-config", false, "Debug configuration loading and validation")

	cmd.AddCommand(createRunCmd(flags))
	cmd.AddCommand(createListCmd(flags))
	cmd.AddCommand(createValidateCmd(flags))
	cmd.AddCommand(createVersionCmd(flags))

	return cmd
}

// setupSession configures the logger and console writer for one command invocation
func setupSession(flags *Flags) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		logConfig := flags.logConfig()

		logger, err := newLogger(cmd.ErrOrStderr(), logConfig)
		if err != nil {
			return err
		}

		colored := !flags.NoColor && !color.NoColor
		s := &session{
			logger:    logger,
			logConfig: logConfig,
			out:       output.NewWriter(cmd.OutOrStdout(), cmd.ErrOrStderr(), colored),
			colored:   colored,
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		cmd.SetContext(withSession(ctx, s))

		s.entry(cmd.Name()).WithField("config", flags.ConfigFile).Debug("CLI initialized")
		return nil
	}
}

// ExecuteWithContext runs the CLI with os.Args. Interrupts cancel ctx, which stops running
// subjects and their process trees.
func ExecuteWithContext(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return NewRootCmd().ExecuteContext(ctx)
}
