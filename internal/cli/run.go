package cli

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mrz1836/go-cligolden/internal/config"
	"github.com/mrz1836/go-cligolden/internal/fixture"
	"github.com/mrz1836/go-cligolden/internal/jsonutil"
	"github.com/mrz1836/go-cligolden/internal/logging"
	"github.com/mrz1836/go-cligolden/internal/report"
)

func createRunCmd(flags *Flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [fixtures...]",
		Short: "Run golden fixtures and compare the produced trees",
		Long: `Run every configured fixture, or only the named ones, and compare each
sandbox with the fixture's after tree. The command fails when any fixture fails.`,
		Example: `  # Run all fixtures from goldentree.yaml
  go-cligolden run

  # Run two fixtures by name
  go-cligolden run document_moya misc_jazzy_features

  # Run fixtures matching a glob with four workers and keep their sandboxes
  go-cligolden run --filter 'document_*' --workers 4 --keep`,
		RunE: createRunRun(flags),
	}

	cmd.Flags().IntVarP(&flags.Workers, "workers", "w", 0, "Fixtures to run concurrently (default from config)")
	cmd.Flags().BoolVar(&flags.Keep, "keep", false, "Keep sandboxes for inspection")
	cmd.Flags().DurationVar(&flags.Timeout, "timeout", 0, "Timeout for each subject run (default from config)")
	cmd.Flags().StringVarP(&flags.Filter, "filter", "f", "", "Only run fixtures whose name matches this glob")
	cmd.Flags().BoolVar(&flags.ShowMatches, "show-matches", false, "List matching paths of passing fixtures")
	cmd.Flags().IntVar(&flags.MaxDiffLines, "max-diff-lines", 200, "Truncate each diff after this many lines (0 for no limit)")

	return cmd
}

func createRunRun(flags *Flags) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := sessionFrom(ctx)
		if err != nil {
			return err
		}

		cfg, err := loadConfig(flags, s)
		if err != nil {
			return err
		}
		applyOverrides(cfg, flags)

		suite, err := cfg.Build(ctx, config.BuildOptions{
			Logger:    s.logger,
			LogConfig: s.logConfig,
			Report: report.Options{
				Color:        s.colored && !flags.JSON,
				MaxDiffLines: flags.MaxDiffLines,
				ShowMatches:  flags.ShowMatches,
			},
		})
		if err != nil {
			return err
		}

		suite, err = selectFixtures(suite, flags.Filter, args)
		if err != nil {
			return err
		}

		skipped := cfg.SkippedFixtures()
		log := s.entry(logging.OperationTypes.SuiteRun)
		log.WithFields(logrus.Fields{
			logging.StandardFields.FileCount: len(suite.Fixtures()),
			"skipped":                        len(skipped),
		}).Info("Running fixtures")

		start := time.Now()
		outcomes := suite.RunAll(ctx)
		elapsed := time.Since(start)

		failed := 0
		for _, o := range outcomes {
			if !o.Passed() {
				failed++
			}
		}

		if flags.JSON {
			if err := jsonutil.Write(cmd.OutOrStdout(), newRunReport(s.logConfig.CorrelationID, outcomes, skipped, elapsed)); err != nil {
				return err
			}
		} else {
			printOutcomes(s, outcomes, cfg.Keep)
			for _, sk := range skipped {
				s.out.Warnf("skip %s (%s)", sk.Name, sk.Reason)
			}
			summary := fmt.Sprintf("%d passed, %d failed in %s", len(outcomes)-failed, failed, elapsed.Round(time.Millisecond))
			if failed > 0 {
				s.out.Error(summary)
			} else {
				s.out.Success(summary)
			}
		}

		log.WithFields(logrus.Fields{
			logging.StandardFields.DurationMs: elapsed.Milliseconds(),
			logging.StandardFields.Mismatches: failed,
		}).Debug("Suite finished")

		if failed > 0 {
			return fmt.Errorf("%w: %d of %d", ErrFixturesFailed, failed, len(outcomes))
		}
		return nil
	}
}

func loadConfig(flags *Flags, s *session) (*config.Config, error) {
	log := s.entry(logging.OperationTypes.ConfigLoad).WithField("config", flags.ConfigFile)

	cfg, err := config.Load(flags.ConfigFile)
	if err != nil {
		log.WithField(logging.StandardFields.Error, err.Error()).Debug("Failed to load configuration")
		return nil, err
	}
	log.WithField("fixture_count", len(cfg.Fixtures)).Debug("Configuration loaded")
	return cfg, nil
}

func applyOverrides(cfg *config.Config, flags *Flags) {
	if flags.Workers > 0 {
		cfg.Workers = flags.Workers
	}
	if flags.Keep {
		cfg.Keep = true
	}
	if flags.Timeout > 0 {
		cfg.Timeout = flags.Timeout.String()
	}
}

func selectFixtures(suite *fixture.Suite, filter string, names []string) (*fixture.Suite, error) {
	var err error
	if len(names) > 0 {
		if suite, err = suite.Select(names...); err != nil {
			return nil, err
		}
	}
	if filter != "" {
		if suite, err = suite.Filter(filter); err != nil {
			return nil, err
		}
	}
	return suite, nil
}

func printOutcomes(s *session, outcomes []*fixture.Outcome, keep bool) {
	for _, o := range outcomes {
		s.out.Result(o.Fixture, o.Passed(), o.Duration)
		if !o.Passed() {
			s.out.Block(o.Report)
		}
		if keep && o.Record != nil {
			s.out.Warnf("sandbox kept: %s", o.Record.Dir)
		}
	}
}
