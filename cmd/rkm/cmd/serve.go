/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ssargent/riskmap/pkg/api"
	"github.com/ssargent/riskmap/pkg/storage"
)

var errNoAPIKey = errors.New("no API key configured (run 'rkm init' or pass --api-key)")

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long: `Serve the map archive and the stateless decode and inspect operations
over HTTP. Settings come from the configuration file; flags override them.

Examples:
  rkm serve
  rkm serve --port 9000 --bind 0.0.0.0
  rkm serve --api-key mysecretkey --data-dir ./archive`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := configFrom(cmd)
		if cmd.Flags().Changed("port") {
			cfg.Port, _ = cmd.Flags().GetInt("port")
		}
		if cmd.Flags().Changed("bind") {
			cfg.Bind, _ = cmd.Flags().GetString("bind")
		}
		if cmd.Flags().Changed("api-key") {
			cfg.Security.APIKey, _ = cmd.Flags().GetString("api-key")
		}
		if cfg.Security.APIKey == "" || cfg.Security.APIKey == "auto" {
			return errNoAPIKey
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return withArchive(cmd, func(a *storage.Archive) error {
			cmd.Printf("🚀 Starting riskmap server on %s:%d\n", cfg.Bind, cfg.Port)
			cmd.Printf("📁 Data directory: %s\n", cfg.DataDir)

			starter := container.GetServerFactory().CreateServerStarter()
			return starter.StartServer(ctx, a, api.ServerConfig{
				Port:           cfg.Port,
				Bind:           cfg.Bind,
				APIKey:         cfg.Security.APIKey,
				MaxBodyBytes:   cfg.Codec.MaxFetchBytes,
				MaxImagePixels: cfg.Codec.MaxImagePixels,
			})
		})
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on")
	serveCmd.Flags().String("bind", "127.0.0.1", "Address to bind to")
	serveCmd.Flags().String("api-key", "", "API key for authentication")
}
