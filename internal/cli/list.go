package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/maxent-labs/gisstore/internal/api"
	"github.com/maxent-labs/gisstore/internal/infra/sqlite"
)

func init() {
	rootCmd.AddCommand(listCmd)
}

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List artifacts in the store directory",
	Args:    cobra.NoArgs,
	RunE:    runList,
}

func runList(cmd *cobra.Command, args []string) error {
	entries, err := os.ReadDir(cfg.Store.Dir)
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	out := cmd.OutOrStdout()
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	n := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), api.ArtifactExt) {
			continue
		}
		if n == 0 {
			fmt.Fprintln(w, "NAME\tSIZE\tPREDICATES\tPARAMETERS\tMODIFIED")
		}
		n++

		info, err := e.Info()
		if err != nil {
			continue
		}
		name := strings.TrimSuffix(e.Name(), api.ArtifactExt)
		stats, err := sqlite.Verify(cmd.Context(), filepath.Join(cfg.Store.Dir, e.Name()))
		if err != nil {
			fmt.Fprintf(w, "%s\t%s\tinvalid\t-\t%s\n", name, humanize.Bytes(uint64(info.Size())), humanize.Time(info.ModTime()))
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n",
			name,
			humanize.Bytes(uint64(info.Size())),
			stats.Rows.Predicates,
			stats.Rows.Parameters,
			humanize.Time(info.ModTime()),
		)
	}

	if n == 0 {
		fmt.Fprintf(out, "No artifacts in %s. Run 'gisstore persist -m <snapshot>' to create one.\n", cfg.Store.Dir)
		return nil
	}
	return w.Flush()
}
