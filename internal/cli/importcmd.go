package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/plife507/TRADE-sub002/internal/replay"
	"github.com/plife507/TRADE-sub002/internal/store"
)

func newImportCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <csv-file>",
		Short: "Import a CSV bar export into the store",
		Long: `Parse an OHLCV CSV export and save it into the SQLite store under a
symbol and timeframe. Re-importing a series overwrites bars with matching
indexes.`,
		Example: `  structure import bars.csv --symbol BTCUSDT
  structure import bars.csv --symbol ETHUSDT --timeframe 60minute`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			symbol, _ := cmd.Flags().GetString("symbol")
			timeframe, _ := cmd.Flags().GetString("timeframe")
			if symbol == "" {
				symbol = app.Config.Replay.Symbol
			}
			if symbol == "" {
				output.Error("No symbol: pass --symbol or set replay.symbol in the profile")
				return fmt.Errorf("symbol is required")
			}
			if timeframe == "" {
				timeframe = string(app.Config.ExecTimeframe())
			}

			bars, err := replay.LoadCSV(args[0])
			if err != nil {
				output.Error("Failed to parse %s: %v", args[0], err)
				return err
			}

			s, err := store.NewSQLiteStore(app.Config.Store.Path)
			if err != nil {
				output.Error("Failed to open store: %v", err)
				return err
			}
			defer s.Close()

			if err := s.SaveBars(ctx, symbol, timeframe, bars); err != nil {
				output.Error("Failed to save bars: %v", err)
				return err
			}

			app.Logger.Info().Str("symbol", symbol).Str("timeframe", timeframe).
				Int("bars", len(bars)).Msg("Imported bar series")
			output.Success("Imported %d bars into %s/%s", len(bars), symbol, timeframe)
			return nil
		},
	}

	cmd.Flags().StringP("symbol", "s", "", "symbol to store the bars under")
	cmd.Flags().StringP("timeframe", "t", "", "bar timeframe (default: profile exec_timeframe)")

	return cmd
}

func newSeriesCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "series",
		Short: "List stored bar series",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			s, err := store.NewSQLiteStore(app.Config.Store.Path)
			if err != nil {
				output.Error("Failed to open store: %v", err)
				return err
			}
			defer s.Close()

			series, err := s.ListSeries(ctx)
			if err != nil {
				output.Error("Failed to list series: %v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(series)
			}

			output.Println()
			color.Cyan("Stored bar series")
			output.Println(strings.Repeat("─", 45))
			if len(series) == 0 {
				output.Dim("  none - run 'structure import' first")
				return nil
			}
			output.Printf("%-15s %-12s %10s\n", "Symbol", "Timeframe", "Bars")
			for _, sr := range series {
				output.Printf("%-15s %-12s %10d\n", sr.Symbol, sr.Timeframe, sr.Bars)
			}
			return nil
		},
	}
}
