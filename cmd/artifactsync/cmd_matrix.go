package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"artifactsync/internal/format"
)

var matrixFlags struct {
	hash     string
	excluded bool
}

var matrixCmd = &cobra.Command{
	Use:   "matrix",
	Short: "Print the generated target names",
	Args:  cobra.NoArgs,
	RunE:  runMatrix,
}

func init() {
	f := matrixCmd.Flags()
	f.StringVar(&matrixFlags.hash, "hash", "", "Bind targets to this commit hash")
	f.BoolVar(&matrixFlags.excluded, "excluded", false, "List excluded combinations and the rule that dropped them")
}

func runMatrix(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	if matrixFlags.excluded {
		mode, err := format.ParseMode(rootFlags.report)
		if err != nil {
			return err
		}
		tb := format.NewTable(mode)
		tb.Header("Combination", "Rule")
		for _, ex := range cfg.Matrix.Excluded() {
			tb.Row(ex.Template.String(), ex.Rule)
		}
		fmt.Fprintln(out, tb.String())
		return nil
	}
	for _, id := range cfg.Matrix.Generate() {
		if matrixFlags.hash != "" {
			id = id.WithHash(matrixFlags.hash)
		}
		fmt.Fprintln(out, id.String())
	}
	return nil
}
