package structure

import (
	"fmt"
	"math"
	"strings"

	"github.com/plife507/TRADE-sub002/internal/models"
)

// Fibonacci derivation modes.
const (
	fibModeRetracement   = "retracement"
	fibModeExtension     = "extension"
	fibModeExtensionUp   = "extension_up"
	fibModeExtensionDown = "extension_down"
)

// Fibonacci derives a fixed list of price levels from the current swing
// anchor. Levels recompute only when the anchor changes (pivot indices, or
// the pair version when paired anchoring is on) and forward-fill between
// recalculations.
//
// The unified formula is level = high - ratio*(high-low): ratios below 0
// project above the high, 0..1 retrace between high and low, above 1
// project below the low.
type Fibonacci struct {
	swing *Swing

	ratios       []float64
	levelKeys    []string
	mode         string
	pairedAnchor bool

	lastHighIdx  int
	lastLowIdx   int
	lastPairVer  int

	levels     []float64
	anchorHigh float64
	anchorLow  float64
	anchorDir  models.PairDirection
	version    int
}

func newFibonacci(key string, params Params, deps Deps) (Detector, error) {
	r := newParamReader(key, params)
	ratios := r.Floats("levels", []float64{0.0, 0.236, 0.382, 0.5, 0.618, 0.786, 1.0})
	mode := r.String("mode", fibModeRetracement)
	paired := r.Bool("use_paired_anchor", true)
	r.checkUnknown()
	if err := r.Err(); err != nil {
		return nil, err
	}

	switch mode {
	case fibModeRetracement, fibModeExtension, fibModeExtensionUp, fibModeExtensionDown:
	default:
		return nil, paramRangeError(key, "mode", mode,
			`must be "retracement", "extension", "extension_up" or "extension_down"`,
			`mode = "retracement"`)
	}
	if mode == fibModeExtension && !paired {
		return nil, paramRangeError(key, "use_paired_anchor", paired,
			`mode "extension" selects its projection side from the pair direction and requires paired anchoring`,
			"use_paired_anchor = true")
	}
	if len(ratios) == 0 {
		return nil, paramRangeError(key, "levels", ratios,
			"at least one ratio is required", "levels = [0.382, 0.5, 0.618]")
	}

	sw, err := swingDep(key, deps)
	if err != nil {
		return nil, err
	}

	f := &Fibonacci{
		swing:        sw,
		ratios:       ratios,
		mode:         mode,
		pairedAnchor: paired,
		lastHighIdx:  -1,
		lastLowIdx:   -1,
		anchorHigh:   math.NaN(),
		anchorLow:    math.NaN(),
		anchorDir:    models.PairNone,
	}
	f.levelKeys = make([]string, len(ratios))
	f.levels = make([]float64, len(ratios))
	for i, ratio := range ratios {
		f.levelKeys[i] = levelKey(ratio)
		f.levels[i] = math.NaN()
	}
	return f, nil
}

// levelKey renders a ratio as a stable output key: 0.382 -> "level_0_382",
// -0.272 -> "level_m0_272", 1.618 -> "level_1_618".
func levelKey(ratio float64) string {
	s := fmt.Sprintf("%g", ratio)
	s = strings.ReplaceAll(s, "-", "m")
	s = strings.ReplaceAll(s, ".", "_")
	return "level_" + s
}

// anchor returns the current anchor pivots and whether the anchor changed
// since the last recalculation.
func (d *Fibonacci) anchorChanged() (high, low models.Pivot, dir models.PairDirection, ok, changed bool) {
	if d.pairedAnchor {
		pair, ver := d.swing.Pair()
		if ver == 0 {
			return models.Pivot{}, models.Pivot{}, models.PairNone, false, false
		}
		return pair.High, pair.Low, pair.Direction, true, ver != d.lastPairVer
	}

	hp, hasHigh := d.swing.HighPivot()
	lp, hasLow := d.swing.LowPivot()
	if !hasHigh || !hasLow {
		return models.Pivot{}, models.Pivot{}, models.PairNone, false, false
	}
	return hp, lp, models.PairNone, true, hp.Idx != d.lastHighIdx || lp.Idx != d.lastLowIdx
}

// Update recomputes the level set when the anchor changed.
func (d *Fibonacci) Update(_ models.Bar) {
	high, low, dir, ok, changed := d.anchorChanged()
	if !ok || !changed {
		return
	}

	if d.pairedAnchor {
		_, ver := d.swing.Pair()
		d.lastPairVer = ver
	} else {
		d.lastHighIdx = high.Idx
		d.lastLowIdx = low.Idx
	}

	d.anchorHigh = high.Level
	d.anchorLow = low.Level
	d.anchorDir = dir
	rng := high.Level - low.Level

	for i, ratio := range d.ratios {
		d.levels[i] = high.Level - d.effectiveRatio(ratio, dir)*rng
	}
	d.version++
}

// effectiveRatio maps the configured ratio into the unified formula for the
// extension modes: projecting above the high negates the ratio, projecting
// below the low shifts it past 1.
func (d *Fibonacci) effectiveRatio(ratio float64, dir models.PairDirection) float64 {
	switch d.mode {
	case fibModeExtensionUp:
		return -ratio
	case fibModeExtensionDown:
		return 1 + ratio
	case fibModeExtension:
		if dir == models.PairBearish {
			return 1 + ratio
		}
		return -ratio
	}
	return ratio
}

// Value returns one of the level outputs or the anchor metadata.
func (d *Fibonacci) Value(key string) (models.Value, error) {
	for i, lk := range d.levelKeys {
		if key == lk {
			return models.FloatValue(d.levels[i]), nil
		}
	}
	switch key {
	case "anchor_high":
		return models.FloatValue(d.anchorHigh), nil
	case "anchor_low":
		return models.FloatValue(d.anchorLow), nil
	case "range":
		if math.IsNaN(d.anchorHigh) || math.IsNaN(d.anchorLow) {
			return models.EmptyFloat(), nil
		}
		return models.FloatValue(d.anchorHigh - d.anchorLow), nil
	case "anchor_direction":
		return models.StringValue(string(d.anchorDir)), nil
	case "version":
		return models.IntValue(d.version), nil
	}
	return models.Value{}, keyError(key, d.OutputKeys())
}

// OutputKeys lists every valid output key.
func (d *Fibonacci) OutputKeys() []string {
	keys := make([]string, 0, len(d.levelKeys)+5)
	keys = append(keys, d.levelKeys...)
	keys = append(keys, "anchor_high", "anchor_low", "range", "anchor_direction", "version")
	return keys
}
