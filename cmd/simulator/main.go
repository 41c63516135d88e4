package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"site-monitor/simulator/internal/config"
	"site-monitor/simulator/internal/logging"
)

var (
	cfg    *config.Config
	logger *zap.Logger

	sitesFile string
	logLevel  string
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:   "simulator",
	Short: "Construction site air quality compliance simulator",
	Long: `simulator generates synthetic pollutant readings for a network of
construction sites, scores them against legal limits, and escalates
violations through warnings and fines.

Use "serve" for the dashboard API and websocket feed, or "simulate" to run a
fixed number of ticks offline.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// a missing .env is fine
		_ = godotenv.Load()

		cfg = config.Load()
		if sitesFile != "" {
			cfg.SitesFile = sitesFile
		}
		if logLevel != "" {
			cfg.LogLevel = logLevel
		}
		if logFormat != "" {
			cfg.LogFormat = logFormat
		}

		var err error
		logger, err = logging.New(cfg.LogLevel, cfg.LogFormat)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&sitesFile, "sites", "", "YAML catalog of sites, credentials and policy (overrides SITES_FILE)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (overrides LOG_LEVEL)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "json or console (overrides LOG_FORMAT)")

	rootCmd.AddCommand(serveCmd, simulateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
