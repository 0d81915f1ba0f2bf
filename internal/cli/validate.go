package cli

import (
	"github.com/spf13/cobra"

	"github.com/mrz1836/go-cligolden/internal/logging"
)

func createValidateCmd(flags *Flags) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration file",
		Long: `Validate the configuration file for syntax and semantic errors, compile every
ignore, substitution and transform rule, load the env files, and check that each
fixture has an after tree.`,
		Aliases: []string{"check"},
		Args:    cobra.NoArgs,
		RunE:    createRunValidate(flags),
	}
}

func createRunValidate(flags *Flags) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		s, err := sessionFrom(ctx)
		if err != nil {
			return err
		}

		cfg, err := loadConfig(flags, s)
		if err != nil {
			return err
		}

		if err := cfg.ValidateWithLogging(ctx, s.logger, s.logConfig); err != nil {
			return err
		}
		if _, err := cfg.IgnoreMatcher(); err != nil {
			return err
		}
		if _, err := cfg.Normalizer(); err != nil {
			return err
		}
		if _, err := cfg.Pipeline(s.logger, s.logConfig); err != nil {
			return err
		}
		if _, err := cfg.Invocation(); err != nil {
			return err
		}
		fixtures, err := cfg.ResolveFixtures()
		if err != nil {
			return err
		}

		s.entry(logging.OperationTypes.ConfigValidate).Debug("Configuration is valid")
		s.out.Successf("✓ %s is valid (%d fixtures, %d ignore rules, %d transforms)",
			flags.ConfigFile, len(fixtures), len(cfg.Ignore), len(cfg.Transforms))
		return nil
	}
}
