// Package main provides the yapytr command line interface for the Trade
// Republic private API: document download, portfolio and instrument
// views, price alarms and transaction export.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ExploracuriousAlex/yapytr/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "yapytr",
	Short: "Use Trade Republic in terminal",
	Long:  "yapytr connects to the Trade Republic websocket API to download account documents, show the portfolio and instrument details, manage price alarms and export transactions.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return bootstrap()
	},
	SilenceUsage: true,
}

var (
	verbosity string

	logger   *slog.Logger
	settings *config.Settings
	cfg      config.Config
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&verbosity, "verbosity", "v", "", "set verbosity level (debug, info, warning, error; default: info)")
}

// bootstrap resolves the settings directory, loads the optional config
// file, merges it under the flags and constructs the logger.
func bootstrap() error {
	var err error
	settings, err = config.NewSettings()
	if err != nil {
		return err
	}

	fileCfg, err := config.Load(settings.ConfigPath())
	if err != nil {
		return err
	}
	if err := fileCfg.Validate(); err != nil {
		return err
	}

	flagCfg := config.Config{Verbosity: verbosity}
	cfg = flagCfg.MergeWithDefaults(*fileCfg)
	if cfg.Verbosity == "" {
		cfg.Verbosity = "info"
	}

	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLevel(cfg.Verbosity),
	}))
	logger.Debug("logging is set to debug")
	return nil
}

func parseLevel(verbosity string) slog.Level {
	switch verbosity {
	case "debug":
		return slog.LevelDebug
	case "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
