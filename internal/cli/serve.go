package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/BigPhill11/pilot-program-learn-sub001/internal/daemon"
)

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to listen on (overrides config)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides config)")
	serveCmd.Flags().StringVar(&serveDriver, "storage", "", "Storage driver: sqlite, postgres or memory (overrides config)")
	serveCmd.Flags().StringVar(&serveFeed, "feed-url", "", "Remote JSON deck to serve (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

var (
	serveHost   string
	servePort   int
	serveDriver string
	serveFeed   string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Pilot API server",
	Long: `Start the game API server with the websocket event stream, health checks
and metrics. Deferred writes are retried in the background and flushed on
shutdown.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := daemon.LoadConfig()
	if err != nil {
		return err
	}
	applyServeFlags(&cfg)

	d, err := daemon.NewWithConfig(cfg)
	if err != nil {
		return err
	}
	d.Server.SetVersion(rootCmd.Version)
	return d.Serve(context.Background())
}

func applyServeFlags(cfg *daemon.Config) {
	if serveHost != "" {
		cfg.API.Host = serveHost
	}
	if servePort > 0 {
		cfg.API.Port = servePort
	}
	if serveDriver != "" {
		cfg.Storage.Driver = serveDriver
	}
	if serveFeed != "" {
		cfg.Game.FeedURL = serveFeed
	}
}
