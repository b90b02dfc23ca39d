package cli

import (
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/maxent-labs/gisstore/internal/daemon"
)

func init() {
	configCmd.Flags().BoolVar(&configSave, "save", false, "Write the effective config to $GISSTORE_HOME/config.toml")
	rootCmd.AddCommand(configCmd)
}

var configSave bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfig,
}

func runConfig(cmd *cobra.Command, args []string) error {
	if configSave {
		if err := daemon.SaveConfig(cfg); err != nil {
			return fmt.Errorf("save config: %w", err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Saved %s\n", daemon.ConfigPath())
	}
	return toml.NewEncoder(cmd.OutOrStdout()).Encode(cfg)
}
