package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/maxent-labs/gisstore/internal/infra/sqlite"
)

func init() {
	rootCmd.AddCommand(verifyCmd)
}

var verifyCmd = &cobra.Command{
	Use:   "verify ARTIFACT",
	Short: "Check a persisted artifact's integrity",
	Args:  cobra.ExactArgs(1),
	RunE:  runVerify,
}

func runVerify(cmd *cobra.Command, args []string) error {
	stats, err := sqlite.Verify(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Artifact:             %s\n", stats.Path)
	fmt.Fprintf(out, "Schema version:       %d\n", stats.SchemaVersion)
	fmt.Fprintf(out, "Correction constant:  %d\n", stats.Metadata.CorrectionConstant)
	fmt.Fprintf(out, "Correction parameter: %g\n", stats.Metadata.CorrectionParameter)
	fmt.Fprintf(out, "Outcomes:             %d\n", stats.Rows.Outcomes)
	fmt.Fprintf(out, "Predicates:           %d\n", stats.Rows.Predicates)
	fmt.Fprintf(out, "Parameters:           %d\n", stats.Rows.Parameters)
	fmt.Fprintln(out, "OK")
	return nil
}
