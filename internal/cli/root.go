// Package cli implements the Pilot command-line interface using Cobra.
package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/BigPhill11/pilot-program-learn-sub001/internal/daemon"
	"github.com/BigPhill11/pilot-program-learn-sub001/internal/logger"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "pilot",
	Short: "Pilot: learn investing one swipe at a time",
	Long: `Pilot is a swipe game for learning how investors read companies.
Swipe on company cards, score XP against today's macro scenario, keep a
daily streak and finish daily challenges.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: bootstrap,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config)")
}

// bootstrap loads .env (for PILOT_HOME and friends) before any config is
// read, then initialises logging.
func bootstrap(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()

	cfg, err := daemon.LoadConfig()
	if err != nil {
		return err
	}
	level := cfg.Logging.Level
	if logLevel != "" {
		level = logLevel
	}
	logger.Init(level, cfg.Logging.Format)
	return nil
}

// Execute runs the root command. Called from main.go.
func Execute(version string) {
	rootCmd.Version = version

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
