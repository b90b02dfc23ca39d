package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/maxent-labs/gisstore/internal/app"
	"github.com/maxent-labs/gisstore/internal/infra/sqlite"
)

func init() {
	persistCmd.Flags().StringVarP(&persistModel, "model", "m", "", "Snapshot document (YAML or JSON)")
	persistCmd.Flags().StringVarP(&persistOutput, "output", "o", "", "Destination artifact (default <store.dir>/<snapshot name>.db)")
	persistCmd.Flags().StringVar(&persistSync, "synchronous", "", "SQLite synchronous mode (overrides config)")
	_ = persistCmd.MarkFlagRequired("model")
	rootCmd.AddCommand(persistCmd)
}

var (
	persistModel  string
	persistOutput string
	persistSync   string
)

var persistCmd = &cobra.Command{
	Use:   "persist -m SNAPSHOT [-o ARTIFACT]",
	Short: "Write a model snapshot to a SQLite artifact",
	Long: `Load a snapshot document and persist it in one transaction.
An existing artifact at the destination is replaced only if the write succeeds.`,
	Args: cobra.NoArgs,
	RunE: runPersist,
}

func runPersist(cmd *cobra.Command, args []string) error {
	snapshot, err := app.LoadSnapshot(persistModel)
	if err != nil {
		return err
	}

	opts := sqlite.Options{Synchronous: cfg.Store.Synchronous}
	if persistSync != "" {
		opts.Synchronous = persistSync
	}
	writer, err := sqlite.NewBackend(cfg.Store.Backend, opts, logger)
	if err != nil {
		return err
	}

	dest := persistOutput
	if dest == "" {
		base := filepath.Base(persistModel)
		dest = filepath.Join(cfg.Store.Dir, strings.TrimSuffix(base, filepath.Ext(base))+".db")
	}

	result, err := writer.Persist(cmd.Context(), snapshot, dest)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Persisted %s\n", result.Destination)
	fmt.Fprintf(out, "  Outcomes:   %d\n", result.Rows.Outcomes)
	fmt.Fprintf(out, "  Predicates: %d\n", result.Rows.Predicates)
	fmt.Fprintf(out, "  Parameters: %d\n", result.Rows.Parameters)
	return nil
}
