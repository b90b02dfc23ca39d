package cli

import (
	"github.com/spf13/cobra"

	"github.com/maxent-labs/gisstore/internal/daemon"
)

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to listen on (overrides config)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

var (
	serveHost string
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gisstore API server",
	Long:  `Start the HTTP API that accepts snapshot uploads at localhost:7480.`,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	// Override config from flags
	if serveHost != "" {
		cfg.API.Host = serveHost
	}
	if servePort > 0 {
		cfg.API.Port = servePort
	}

	d, err := daemon.NewWithConfig(cfg, logger)
	if err != nil {
		return err
	}
	defer d.Close()

	return d.Serve(cmd.Context())
}
