// Package cli implements the gisstore command-line interface using Cobra.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/maxent-labs/gisstore/internal/daemon"
)

var (
	verbose    bool
	configPath string

	// Populated by PersistentPreRunE for every subcommand.
	cfg    daemon.Config
	logger = zap.NewNop()
)

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default $GISSTORE_HOME/config.toml)")
}

var rootCmd = &cobra.Command{
	Use:   "gisstore",
	Short: "gisstore: durable storage for maximum-entropy models",
	Long: `gisstore persists trained GIS (maximum-entropy) models into a normalized
SQLite schema: one Model row, the outcome and predicate label spaces, and the
expanded sparse parameter matrix. Every write is all-or-nothing.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if path == "" {
			path = daemon.ConfigPath()
		}
		var err error
		cfg, err = daemon.LoadConfigFile(path)
		if err != nil {
			return err
		}

		logger, err = daemon.NewLogger(cfg.Logging.Level, verbose)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

// Execute runs the root command. Called from main.go.
func Execute(version string) {
	rootCmd.Version = version

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
