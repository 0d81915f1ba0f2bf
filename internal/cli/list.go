package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mrz1836/go-cligolden/internal/jsonutil"
	"github.com/mrz1836/go-cligolden/internal/logging"
)

type listEntry struct {
	Name       string `json:"name"`
	Dir        string `json:"dir"`
	Configured bool   `json:"configured"`
	OnDisk     bool   `json:"on_disk"`
	Runs       bool   `json:"runs"`
	Skipped    string `json:"skipped,omitempty"`
}

func createListCmd(flags *Flags) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Short:   "List configured and discovered fixtures",
		Long:    `List every fixture named in the configuration or found in the fixtures directory, and whether it will run.`,
		Aliases: []string{"ls"},
		Args:    cobra.NoArgs,
		RunE:    createRunList(flags),
	}
}

func createRunList(flags *Flags) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		s, err := sessionFrom(cmd.Context())
		if err != nil {
			return err
		}

		cfg, err := loadConfig(flags, s)
		if err != nil {
			return err
		}

		inventory, err := cfg.Inventory()
		if err != nil {
			return err
		}
		s.entry(logging.OperationTypes.FixtureList).
			WithField(logging.StandardFields.FileCount, len(inventory)).Debug("Fixture inventory built")

		entries := make([]listEntry, 0, len(inventory))
		for _, e := range inventory {
			entries = append(entries, listEntry(e))
		}

		if flags.JSON {
			return jsonutil.Write(cmd.OutOrStdout(), entries)
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		_, _ = fmt.Fprintln(tw, "FIXTURE\tCONFIGURED\tON DISK\tRUNS\tSKIPPED")
		for _, e := range entries {
			skipped := e.Skipped
			if skipped == "" {
				skipped = "-"
			}
			_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", e.Name, yesNo(e.Configured), yesNo(e.OnDisk), yesNo(e.Runs), skipped)
		}
		return tw.Flush()
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
