// Package replay drives stored or CSV bar series through a multi-timeframe
// state in bar order, sampling value paths after each execution bar.
package replay

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/plife507/TRADE-sub002/internal/errors"
	"github.com/plife507/TRADE-sub002/internal/indicators"
	"github.com/plife507/TRADE-sub002/internal/logging"
	"github.com/plife507/TRADE-sub002/internal/models"
	"github.com/plife507/TRADE-sub002/internal/state"
)

// Sample holds the values observed after one execution bar closed.
type Sample struct {
	Idx    int
	Values map[string]models.Value
}

// Options configures a Runner.
type Options struct {
	// Paths are the value paths sampled after every execution bar.
	// Empty means every path the state exposes.
	Paths []string

	// ATRPeriod and EMAPeriod size the indicator feeds that stamp bars
	// before they reach the detectors. Periods below 1 are clamped to 1.
	ATRPeriod int
	EMAPeriod int

	Logger zerolog.Logger
}

// Runner replays execution bars through a MultiTFState, aggregating them
// into higher-timeframe bars so each higher state only advances on its own
// closes.
type Runner struct {
	state  *state.MultiTFState
	paths  []string
	logger zerolog.Logger

	execFeed *indicators.Feed
	aggs     []*aggregator

	swingVersions map[string]int
}

// aggregator rolls execution bars up into one higher timeframe.
type aggregator struct {
	name  string
	ratio int
	feed  *indicators.Feed

	open    float64
	high    float64
	low     float64
	close   float64
	volume  float64
	count   int
	nextIdx int
}

// NewRunner builds a runner for the given state. highTFs must be the same
// configs the state was built from; each needs a timeframe that is a whole
// multiple of the execution timeframe.
func NewRunner(st *state.MultiTFState, highTFs []state.HighTFConfig, opts Options) (*Runner, error) {
	execMin := st.Exec().Timeframe().Minutes()
	if execMin <= 0 {
		return nil, errors.NewDataError("replay", "", "execution timeframe has no known interval", nil)
	}

	r := &Runner{
		state:         st,
		paths:         opts.Paths,
		logger:        opts.Logger,
		execFeed:      indicators.NewFeed(opts.ATRPeriod, opts.EMAPeriod),
		swingVersions: make(map[string]int),
	}
	if len(r.paths) == 0 {
		r.paths = st.ListAllPaths()
	}

	for _, cfg := range highTFs {
		highMin := cfg.Timeframe.Minutes()
		if highMin <= 0 || highMin%execMin != 0 || highMin == execMin {
			return nil, errors.NewDataError("replay", cfg.Name,
				"higher timeframe must be a whole multiple of the execution timeframe", nil)
		}
		r.aggs = append(r.aggs, &aggregator{
			name:  cfg.Name,
			ratio: highMin / execMin,
			feed:  indicators.NewFeed(opts.ATRPeriod, opts.EMAPeriod),
		})
	}

	return r, nil
}

// Step advances the runner by one closed execution bar and returns the
// sampled values.
func (r *Runner) Step(bar models.Bar) (Sample, error) {
	stamped := r.execFeed.Stamp(bar)
	if err := r.state.UpdateExec(stamped); err != nil {
		return Sample{}, err
	}

	for _, agg := range r.aggs {
		if high, closed := agg.add(bar); closed {
			if err := r.state.UpdateHighTF(agg.name, agg.feed.Stamp(high)); err != nil {
				return Sample{}, err
			}
		}
	}

	r.logEvents(bar.Idx)

	sample := Sample{Idx: bar.Idx, Values: make(map[string]models.Value, len(r.paths))}
	for _, path := range r.paths {
		v, err := r.state.Value(path)
		if err != nil {
			return Sample{}, err
		}
		sample.Values[path] = v
	}
	return sample, nil
}

// Run replays every bar, returning one sample per bar. The context is
// checked between bars so long replays can be cancelled.
func (r *Runner) Run(ctx context.Context, bars []models.Bar) ([]Sample, error) {
	samples := make([]Sample, 0, len(bars))
	for _, bar := range bars {
		select {
		case <-ctx.Done():
			return samples, ctx.Err()
		default:
		}
		s, err := r.Step(bar)
		if err != nil {
			return samples, errors.Wrapf(err, "replaying bar %d", bar.Idx)
		}
		samples = append(samples, s)
	}
	return samples, nil
}

// add folds one execution bar into the bucket. When the bucket completes it
// returns the closed higher-timeframe bar.
func (a *aggregator) add(bar models.Bar) (models.Bar, bool) {
	if a.count == 0 {
		a.open = bar.Open
		a.high = bar.High
		a.low = bar.Low
		a.volume = 0
	}
	if bar.High > a.high {
		a.high = bar.High
	}
	if bar.Low < a.low {
		a.low = bar.Low
	}
	a.close = bar.Close
	a.volume += bar.Volume
	a.count++

	if a.count < a.ratio {
		return models.Bar{}, false
	}

	closed := models.Bar{
		Idx:    a.nextIdx,
		Open:   a.open,
		High:   a.high,
		Low:    a.low,
		Close:  a.close,
		Volume: a.volume,
	}
	a.nextIdx++
	a.count = 0
	return closed, true
}

// logEvents reports newly confirmed pivots and structure breaks on the
// execution timeframe.
func (r *Runner) logEvents(idx int) {
	exec := r.state.Exec()
	for _, key := range exec.Keys() {
		if v, err := exec.Value(key, "bos_this_bar"); err == nil {
			if v.Bool() {
				bias, _ := exec.Value(key, "bias")
				level := breakLevel(exec, key, bias.Str())
				logging.LogStructureBreak(r.logger, key, "bos", bias.Str(), level, idx)
			}
			if c, err := exec.Value(key, "choch_this_bar"); err == nil && c.Bool() {
				bias, _ := exec.Value(key, "bias")
				level := breakLevel(exec, key, bias.Str())
				logging.LogStructureBreak(r.logger, key, "choch", bias.Str(), level, idx)
			}
			continue
		}

		v, err := exec.Value(key, "last_type")
		if err != nil {
			continue
		}
		ver, err := exec.Value(key, "version")
		if err != nil || ver.Int() <= r.swingVersions[key] {
			continue
		}
		r.swingVersions[key] = ver.Int()

		levelKey, idxKey := "high_level", "high_idx"
		if v.Str() == string(models.PivotLow) {
			levelKey, idxKey = "low_level", "low_idx"
		}
		level, _ := exec.Value(key, levelKey)
		pivotIdx, _ := exec.Value(key, idxKey)
		major, _ := exec.Value(key, "is_major")
		logging.LogPivot(r.logger, key, v.Str(), level.Float(), pivotIdx.Int(), major.Bool())
	}
}

// breakLevel picks the watch level on the side the bias points at.
func breakLevel(exec *state.TFState, key, bias string) float64 {
	out := "break_level_high"
	if bias == "bearish" {
		out = "break_level_low"
	}
	v, _ := exec.Value(key, out)
	return v.Float()
}
