package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/maxent-labs/gisstore/internal/api"
	"github.com/maxent-labs/gisstore/internal/infra/sqlite"
)

func init() {
	rootCmd.AddCommand(rmCmd)
}

var rmCmd = &cobra.Command{
	Use:   "rm NAME",
	Short: "Remove an artifact from the store directory",
	Args:  cobra.ExactArgs(1),
	RunE:  runRm,
}

func runRm(cmd *cobra.Command, args []string) error {
	name := args[0]
	path := filepath.Join(cfg.Store.Dir, name+api.ArtifactExt)

	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("artifact %s: %w", name, err)
	}
	if err := sqlite.RemoveArtifact(path); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", name)
	return nil
}
