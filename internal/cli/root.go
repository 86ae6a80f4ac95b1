// Package cli provides the command-line interface for the structure engine.
package cli

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/plife507/TRADE-sub002/internal/config"
	"github.com/plife507/TRADE-sub002/internal/logging"
)

// Version information
const (
	Version = "0.1.0"
)

// App holds the application dependencies.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	rootCmd := &cobra.Command{
		Use:   "structure",
		Short: "Market structure engine - swing, trend, and zone detection over bar series",
		Long: `structure replays OHLCV bar series through a set of incremental
market-structure detectors: swing pivots, trend waves, break-of-structure
events, fibonacci levels, and supply/demand zones, across one execution
timeframe plus optional higher timeframes.

Detector wiring lives in an analysis profile (structure.toml); a template
is written on first run.

Use 'structure help <command>' for more information about a command.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/structure)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(newReplayCmd(app))
	rootCmd.AddCommand(newPathsCmd(app))
	rootCmd.AddCommand(newImportCmd(app))
	rootCmd.AddCommand(newSeriesCmd(app))

	return rootCmd
}
