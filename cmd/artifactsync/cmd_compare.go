package main

import (
	"github.com/spf13/cobra"

	"artifactsync/internal/reconcile"
)

var compareFlags struct {
	hash  string
	phash string
}

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Compare report logs already on disk against previous logs",
	Long: `Compare walks the report logs in the current-logs directory, finds the
previous log of the same target in the previous-logs directory and writes a
summary. Targets without a previous log are compared against themselves.
No network access is made.`,
	Args: cobra.NoArgs,
	RunE: runCompare,
}

func init() {
	f := compareCmd.Flags()
	f.StringVar(&compareFlags.hash, "hash", "", "Current commit hash (default: taken from each log name)")
	f.StringVar(&compareFlags.phash, "phash", "", "Previous hash to keep when several previous logs match")
}

func runCompare(cmd *cobra.Command, _ []string) error {
	runner, err := newRunner(nil, nil)
	if err != nil {
		return err
	}
	rep, err := runner.Compare(cmd.Context(), reconcile.CompareOptions{
		CurrentHash:  compareFlags.hash,
		PreviousHash: compareFlags.phash,
	})
	if err != nil {
		return err
	}
	return printReport(cmd.OutOrStdout(), rep)
}
