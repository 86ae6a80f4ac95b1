package cli

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/plife507/TRADE-sub002/internal/logging"
	"github.com/plife507/TRADE-sub002/internal/models"
	"github.com/plife507/TRADE-sub002/internal/replay"
	"github.com/plife507/TRADE-sub002/internal/state"
	"github.com/plife507/TRADE-sub002/internal/store"
	"github.com/plife507/TRADE-sub002/internal/structure"
)

// structureEvent is one BOS or CHoCH observed during a replay.
type structureEvent struct {
	Idx   int    `json:"idx"`
	Key   string `json:"key"`
	Event string `json:"event"`
	Bias  string `json:"bias"`
}

// replayResult is the JSON shape of a finished replay.
type replayResult struct {
	Symbol string            `json:"symbol"`
	Bars   int               `json:"bars"`
	Events []structureEvent  `json:"events"`
	Final  map[string]string `json:"final"`
	Error  string            `json:"error,omitempty"`
}

func newReplayCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay a bar series through the configured detectors",
		Long: `Replay bars through the profile's detector graph in bar order,
sampling every value path after each execution bar.

Bars come from the SQLite store by default; --csv replays a CSV export
instead.`,
		Example: `  structure replay --symbol BTCUSDT
  structure replay --csv bars.csv
  structure replay --symbol ETHUSDT --path exec.ms_main.bias --path exec.swing_main.version`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			csvPath, _ := cmd.Flags().GetString("csv")
			symbol, _ := cmd.Flags().GetString("symbol")
			paths, _ := cmd.Flags().GetStringArray("path")
			all, _ := cmd.Flags().GetBool("all")
			workers, _ := cmd.Flags().GetInt("workers")
			if all {
				return runReplayAll(ctx, app, output, paths, workers)
			}
			if symbol == "" {
				symbol = app.Config.Replay.Symbol
			}
			if csvPath == "" && symbol == "" {
				csvPath = app.Config.Replay.CSVPath
			}

			bars, sourceName, err := loadReplayBars(ctx, app, csvPath, symbol)
			if err != nil {
				output.Error("Failed to load bars: %v", err)
				return err
			}

			st, err := buildState(app)
			if err != nil {
				output.Error("Failed to build detector state: %v", err)
				return err
			}
			runner, err := replay.NewRunner(st, app.Config.HighTFConfigs(), replay.Options{
				Paths:     paths,
				ATRPeriod: app.Config.Engine.ATRPeriod,
				EMAPeriod: app.Config.Engine.EMAPeriod,
				Logger:    logging.WithSymbol(app.Logger, sourceName),
			})
			if err != nil {
				output.Error("Failed to build runner: %v", err)
				return err
			}

			start := time.Now()
			samples, err := runner.Run(ctx, bars)
			if err != nil {
				output.Error("Replay failed after %d bars: %v", len(samples), err)
				return err
			}
			logging.LogReplay(app.Logger, sourceName, len(samples), time.Since(start))

			events := collectEvents(samples)
			final := map[string]string{}
			if len(samples) > 0 {
				for p, v := range samples[len(samples)-1].Values {
					final[p] = v.String()
				}
			}

			if output.IsJSON() {
				return output.JSON(replayResult{
					Symbol: sourceName,
					Bars:   len(samples),
					Events: events,
					Final:  final,
				})
			}

			displayReplay(output, sourceName, len(samples), events, final)
			return nil
		},
	}

	cmd.Flags().String("csv", "", "replay bars from a CSV file instead of the store")
	cmd.Flags().StringP("symbol", "s", "", "symbol to replay from the store")
	cmd.Flags().StringArray("path", nil, "value path to sample (repeatable; default: all paths)")
	cmd.Flags().Bool("all", false, "replay every stored series on the exec timeframe")
	cmd.Flags().Int("workers", 0, "concurrent replays with --all (default: number of CPUs)")

	return cmd
}

// runReplayAll replays every stored series on the execution timeframe
// concurrently, one detector graph per symbol.
func runReplayAll(ctx context.Context, app *App, output *Output, paths []string, workers int) error {
	s, err := store.NewSQLiteStore(app.Config.Store.Path)
	if err != nil {
		output.Error("Failed to open store: %v", err)
		return err
	}
	defer s.Close()

	execTF := string(app.Config.ExecTimeframe())
	series, err := s.ListSeries(ctx)
	if err != nil {
		output.Error("Failed to list series: %v", err)
		return err
	}

	var jobs []replay.SeriesJob
	for _, sr := range series {
		if sr.Timeframe != execTF {
			continue
		}
		bars, err := s.LoadBars(ctx, sr.Symbol, execTF)
		if err != nil {
			output.Error("Failed to load %s: %v", sr.Symbol, err)
			return err
		}
		symbol := sr.Symbol
		jobs = append(jobs, replay.SeriesJob{
			Symbol: symbol,
			Bars:   bars,
			NewRunner: func() (*replay.Runner, error) {
				st, err := buildState(app)
				if err != nil {
					return nil, err
				}
				return replay.NewRunner(st, app.Config.HighTFConfigs(), replay.Options{
					Paths:     paths,
					ATRPeriod: app.Config.Engine.ATRPeriod,
					EMAPeriod: app.Config.Engine.EMAPeriod,
					Logger:    logging.WithSymbol(app.Logger, symbol),
				})
			},
		})
	}
	if len(jobs) == 0 {
		output.Warning("No stored series on timeframe %s - run 'structure import' first", execTF)
		return nil
	}

	start := time.Now()
	results := replay.RunBatch(ctx, jobs, workers)

	if output.IsJSON() {
		out := make([]replayResult, 0, len(results))
		for _, r := range results {
			rr := replayResult{Symbol: r.Symbol, Bars: len(r.Samples), Events: collectEvents(r.Samples), Final: map[string]string{}}
			if r.Err != nil {
				rr.Error = r.Err.Error()
			}
			if len(r.Samples) > 0 {
				for p, v := range r.Samples[len(r.Samples)-1].Values {
					rr.Final[p] = v.String()
				}
			}
			out = append(out, rr)
		}
		return output.JSON(out)
	}

	output.Println()
	color.Cyan("Replay - %d series on %s (%s)", len(jobs), execTF, time.Since(start).Round(time.Millisecond))
	output.Println(strings.Repeat("─", 45))
	for _, r := range results {
		if r.Err != nil {
			output.Error("  %-15s failed: %v", r.Symbol, r.Err)
			continue
		}
		output.Printf("  %-15s %6d bars  %4d events\n", r.Symbol, len(r.Samples), len(collectEvents(r.Samples)))
	}
	return nil
}

// loadReplayBars resolves the bar source: an explicit CSV file wins,
// otherwise the store series for the symbol on the execution timeframe.
func loadReplayBars(ctx context.Context, app *App, csvPath, symbol string) ([]models.Bar, string, error) {
	if csvPath != "" {
		bars, err := replay.LoadCSV(csvPath)
		return bars, csvPath, err
	}
	if symbol == "" {
		return nil, "", fmt.Errorf("no bar source: pass --csv or --symbol (or set replay.symbol in the profile)")
	}

	s, err := store.NewSQLiteStore(app.Config.Store.Path)
	if err != nil {
		return nil, "", err
	}
	defer s.Close()

	bars, err := s.LoadBars(ctx, symbol, string(app.Config.ExecTimeframe()))
	return bars, symbol, err
}

func buildState(app *App) (*state.MultiTFState, error) {
	return state.NewMultiTFState(
		structure.NewDefaultRegistry(),
		app.Config.ExecTimeframe(),
		app.Config.ExecSpecs(),
		app.Config.HighTFConfigs(),
	)
}

// collectEvents scans the per-bar samples for structure breaks.
func collectEvents(samples []replay.Sample) []structureEvent {
	events := []structureEvent{}
	for _, s := range samples {
		for path, v := range s.Values {
			var kind string
			switch {
			case strings.HasSuffix(path, ".bos_this_bar"):
				kind = "bos"
			case strings.HasSuffix(path, ".choch_this_bar"):
				kind = "choch"
			default:
				continue
			}
			if !v.Bool() {
				continue
			}
			prefix := strings.TrimSuffix(strings.TrimSuffix(path, ".bos_this_bar"), ".choch_this_bar")
			bias := ""
			if bv, ok := s.Values[prefix+".bias"]; ok {
				bias = bv.Str()
			}
			events = append(events, structureEvent{Idx: s.Idx, Key: prefix, Event: kind, Bias: bias})
		}
	}
	sort.Slice(events, func(i, j int) bool {
		if events[i].Idx != events[j].Idx {
			return events[i].Idx < events[j].Idx
		}
		return events[i].Key < events[j].Key
	})
	return events
}

func displayReplay(output *Output, source string, bars int, events []structureEvent, final map[string]string) {
	output.Println()
	color.Cyan("Replay - %s", source)
	output.Println(strings.Repeat("─", 45))
	output.Printf("Bars replayed: %d\n", bars)
	output.Println()

	color.Cyan("Structure events")
	if len(events) == 0 {
		output.Dim("  none")
	}
	for _, e := range events {
		output.Printf("  bar %-6d %-6s %-25s %s\n", e.Idx, strings.ToUpper(e.Event), e.Key, output.BiasString(e.Bias))
	}
	output.Println()

	color.Cyan("Final values")
	paths := make([]string, 0, len(final))
	for p := range final {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		output.Printf("  %-45s %s\n", p, final[p])
	}
}
