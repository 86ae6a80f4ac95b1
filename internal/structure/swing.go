package structure

import (
	"math"

	"github.com/plife507/TRADE-sub002/internal/models"
	"github.com/plife507/TRADE-sub002/internal/window"
)

// Swing detection modes.
const (
	swingModeFractal = "fractal"
	swingModeZigzag  = "atr_zigzag"
)

// pairState is the pairing state machine position.
type pairState int

const (
	awaitingFirst pairState = iota
	gotHigh
	gotLow
)

func (s pairState) String() string {
	switch s {
	case gotHigh:
		return "got_high"
	case gotLow:
		return "got_low"
	}
	return "awaiting_first"
}

// Swing detects confirmed swing pivots from a bar stream. Raw candidates
// come from either the fractal window or the ATR zigzag; both feed the same
// gates: the significance filter, the optional strict-alternation filter,
// and the always-on pairing state machine.
type Swing struct {
	mode string

	// fractal mode
	left, right int
	highs       *window.RingBuffer
	lows        *window.RingBuffer
	idxs        *window.RingBuffer

	// zigzag mode
	atrMult   float64
	zzDir     int // 0 until established, then +1 (tracking highs) or -1
	zzExtreme models.Pivot
	zzRunHigh models.Pivot // highest high while direction unset
	zzRunLow  models.Pivot // lowest low while direction unset

	// gates
	atrKey      string
	majorThresh float64
	minATRMove  float64
	minPctMove  float64
	strictAlt   bool

	// confirmed state
	high    models.Pivot
	low     models.Pivot
	hasHigh bool
	hasLow  bool

	highVersion int
	lowVersion  int
	version     int

	lastType     models.PivotType
	significance float64
	isMajor      bool

	// pairing
	pairSt      pairState
	pending     models.Pivot
	pendingType models.PivotType
	pair        models.PivotPair
	pairVersion int
}

var swingKeys = []string{
	"high_level", "high_idx", "low_level", "low_idx",
	"version", "high_version", "low_version",
	"last_type", "significance", "is_major",
	"pair_high_level", "pair_high_idx", "pair_low_level", "pair_low_idx",
	"pair_direction", "pair_hash", "pair_version", "pair_state",
}

func newSwing(key string, params Params, _ Deps) (Detector, error) {
	r := newParamReader(key, params)
	mode := r.String("mode", swingModeFractal)
	left := r.Int("left", 2)
	right := r.Int("right", 2)
	atrMult := r.Float("atr_multiplier", 2.0)
	atrKey := r.String("atr_key", "atr")
	majorThresh := r.Float("major_threshold", 1.5)
	minATRMove := r.Float("min_atr_move", 0.0)
	minPctMove := r.Float("min_pct_move", 0.0)
	strictAlt := r.Bool("strict_alternation", false)
	r.checkUnknown()
	if err := r.Err(); err != nil {
		return nil, err
	}

	switch mode {
	case swingModeFractal, swingModeZigzag:
	default:
		return nil, paramRangeError(key, "mode", mode,
			`must be "fractal" or "atr_zigzag"`, `mode = "fractal"`)
	}
	if mode == swingModeFractal && (left < 1 || right < 1) {
		return nil, paramRangeError(key, "left/right", []int{left, right},
			"fractal window sides must be at least 1", "left = 2, right = 2")
	}
	if mode == swingModeZigzag && atrMult <= 0 {
		return nil, paramRangeError(key, "atr_multiplier", atrMult,
			"must be positive", "atr_multiplier = 2.0")
	}
	if majorThresh <= 0 {
		return nil, paramRangeError(key, "major_threshold", majorThresh,
			"must be positive", "major_threshold = 1.5")
	}
	if minATRMove < 0 || minPctMove < 0 {
		return nil, paramRangeError(key, "min_atr_move/min_pct_move",
			[]float64{minATRMove, minPctMove},
			"thresholds must be non-negative", "min_atr_move = 0.5")
	}

	size := left + right + 1
	return &Swing{
		mode:         mode,
		left:         left,
		right:        right,
		highs:        window.NewRingBuffer(size),
		lows:         window.NewRingBuffer(size),
		idxs:         window.NewRingBuffer(size),
		atrMult:      atrMult,
		atrKey:       atrKey,
		majorThresh:  majorThresh,
		minATRMove:   minATRMove,
		minPctMove:   minPctMove,
		strictAlt:    strictAlt,
		high:         models.Pivot{Level: math.NaN(), Idx: -1},
		low:          models.Pivot{Level: math.NaN(), Idx: -1},
		zzExtreme:    models.Pivot{Idx: -1},
		zzRunHigh:    models.Pivot{Idx: -1},
		zzRunLow:     models.Pivot{Idx: -1},
		lastType:     models.PivotNone,
		significance: math.NaN(),
		pendingType:  models.PivotNone,
		pair: models.PivotPair{
			High:      models.Pivot{Level: math.NaN(), Idx: -1},
			Low:       models.Pivot{Level: math.NaN(), Idx: -1},
			Direction: models.PairNone,
		},
	}, nil
}

// Update processes one bar through the configured detection mode.
func (d *Swing) Update(bar models.Bar) {
	atr, atrOK := bar.Indicator(d.atrKey)
	if atrOK && (math.IsNaN(atr) || atr <= 0) {
		atrOK = false
	}

	switch d.mode {
	case swingModeFractal:
		d.updateFractal(bar, atr, atrOK)
	case swingModeZigzag:
		d.updateZigzag(bar, atr, atrOK)
	}
}

// updateFractal slides the left+right+1 window and tests the candidate at
// logical position left for a strict extremum. Confirmation lags the pivot
// bar by exactly right bars.
func (d *Swing) updateFractal(bar models.Bar, atr float64, atrOK bool) {
	d.highs.Push(bar.High)
	d.lows.Push(bar.Low)
	d.idxs.Push(float64(bar.Idx))

	if !d.highs.Full() {
		return
	}

	candHigh := d.highs.At(d.left)
	candLow := d.lows.At(d.left)
	candIdx := int(d.idxs.At(d.left))

	isHigh := true
	isLow := true
	for i := 0; i < d.highs.Len(); i++ {
		if i == d.left {
			continue
		}
		if d.highs.At(i) >= candHigh {
			isHigh = false
		}
		if d.lows.At(i) <= candLow {
			isLow = false
		}
		if !isHigh && !isLow {
			break
		}
	}

	if isHigh {
		d.confirm(models.PivotHigh, models.Pivot{Level: candHigh, Idx: candIdx}, atr, atrOK)
	}
	if isLow {
		d.confirm(models.PivotLow, models.Pivot{Level: candLow, Idx: candIdx}, atr, atrOK)
	}
}

// updateZigzag tracks a running extreme and flips direction once price
// reverses from it by more than atr_multiplier * ATR. The extreme bar
// becomes the confirmed pivot.
func (d *Swing) updateZigzag(bar models.Bar, atr float64, atrOK bool) {
	// Direction not yet established: track running extremes in both
	// directions and wait for the first qualifying reversal.
	if d.zzDir == 0 {
		if d.zzRunHigh.Idx < 0 || bar.High > d.zzRunHigh.Level {
			d.zzRunHigh = models.Pivot{Level: bar.High, Idx: bar.Idx}
		}
		if d.zzRunLow.Idx < 0 || bar.Low < d.zzRunLow.Level {
			d.zzRunLow = models.Pivot{Level: bar.Low, Idx: bar.Idx}
		}
		if !atrOK {
			return
		}
		threshold := d.atrMult * atr
		if d.zzRunHigh.Level-bar.Low > threshold {
			d.confirm(models.PivotHigh, d.zzRunHigh, atr, atrOK)
			d.zzDir = -1
			d.zzExtreme = models.Pivot{Level: bar.Low, Idx: bar.Idx}
			return
		}
		if bar.High-d.zzRunLow.Level > threshold {
			d.confirm(models.PivotLow, d.zzRunLow, atr, atrOK)
			d.zzDir = 1
			d.zzExtreme = models.Pivot{Level: bar.High, Idx: bar.Idx}
		}
		return
	}

	// Extend the current leg.
	if d.zzDir > 0 {
		if bar.High > d.zzExtreme.Level {
			d.zzExtreme = models.Pivot{Level: bar.High, Idx: bar.Idx}
		}
	} else {
		if bar.Low < d.zzExtreme.Level {
			d.zzExtreme = models.Pivot{Level: bar.Low, Idx: bar.Idx}
		}
	}

	// Reversal checks need a finite positive ATR; without one the leg just
	// keeps extending.
	if !atrOK {
		return
	}
	threshold := d.atrMult * atr

	if d.zzDir > 0 && d.zzExtreme.Level-bar.Low > threshold {
		d.confirm(models.PivotHigh, d.zzExtreme, atr, atrOK)
		d.zzDir = -1
		d.zzExtreme = models.Pivot{Level: bar.Low, Idx: bar.Idx}
	} else if d.zzDir < 0 && bar.High-d.zzExtreme.Level > threshold {
		d.confirm(models.PivotLow, d.zzExtreme, atr, atrOK)
		d.zzDir = 1
		d.zzExtreme = models.Pivot{Level: bar.High, Idx: bar.Idx}
	}
}

// confirm runs a raw pivot candidate through the gates and, if accepted,
// commits it and advances the pairing state machine.
func (d *Swing) confirm(pt models.PivotType, pivot models.Pivot, atr float64, atrOK bool) {
	// Gate 1: significance filter. The previous level of the same type is
	// the comparison base; the first pivot of a type always passes.
	prevLevel := math.NaN()
	if pt == models.PivotHigh && d.hasHigh {
		prevLevel = d.high.Level
	} else if pt == models.PivotLow && d.hasLow {
		prevLevel = d.low.Level
	}

	significance := math.NaN()
	major := false
	if !math.IsNaN(prevLevel) {
		move := math.Abs(pivot.Level - prevLevel)
		if atrOK {
			significance = move / atr
			major = significance >= d.majorThresh
			if d.minATRMove > 0 && significance < d.minATRMove {
				return
			}
		}
		// Note: when ATR is unavailable the configured ATR threshold does
		// not reject; the pivot passes through. This mirrors the original
		// filter's observable behavior.
		if d.minPctMove > 0 && prevLevel != 0 {
			pctMove := move / math.Abs(prevLevel) * 100
			if pctMove < d.minPctMove {
				return
			}
		}
	}

	// Gate 2: strict alternation. A same-type pivot may only extend the
	// pending value; anything else is dropped silently.
	if d.strictAlt && d.lastType == pt {
		if pt == models.PivotHigh && pivot.Level <= d.pending.Level {
			return
		}
		if pt == models.PivotLow && pivot.Level >= d.pending.Level {
			return
		}
	}

	// Commit the pivot.
	switch pt {
	case models.PivotHigh:
		d.high = pivot
		d.hasHigh = true
		d.highVersion++
	case models.PivotLow:
		d.low = pivot
		d.hasLow = true
		d.lowVersion++
	}
	d.version++
	d.lastType = pt
	d.significance = significance
	d.isMajor = major

	// Gate 3: pairing state machine.
	d.advancePairing(pt, pivot)
}

// advancePairing handles AWAITING_FIRST -> GOT_HIGH/GOT_LOW transitions. A
// same-type pivot replaces the pending value (continuation); an
// opposite-type pivot completes a pair and itself becomes pending.
func (d *Swing) advancePairing(pt models.PivotType, pivot models.Pivot) {
	if d.pairSt == awaitingFirst || d.pendingType == pt {
		d.pending = pivot
		d.pendingType = pt
		if pt == models.PivotHigh {
			d.pairSt = gotHigh
		} else {
			d.pairSt = gotLow
		}
		return
	}

	// Opposite type: a pair completes. Bullish when the sequence ran
	// low -> high, bearish when high -> low.
	var pair models.PivotPair
	if pt == models.PivotHigh {
		pair = models.PivotPair{High: pivot, Low: d.pending, Direction: models.PairBullish}
	} else {
		pair = models.PivotPair{High: d.pending, Low: pivot, Direction: models.PairBearish}
	}
	pair.Hash = shortHash(pair.High.Idx, pair.High.Level, pair.Low.Idx, pair.Low.Level, string(pair.Direction))
	d.pair = pair
	d.pairVersion++

	d.pending = pivot
	d.pendingType = pt
	if pt == models.PivotHigh {
		d.pairSt = gotHigh
	} else {
		d.pairSt = gotLow
	}
}

// Current pivots, exposed for dependent detectors. These accessors are the
// read-only reference surface promised by the construction contract.

// HighPivot returns the current confirmed swing high.
func (d *Swing) HighPivot() (models.Pivot, bool) { return d.high, d.hasHigh }

// LowPivot returns the current confirmed swing low.
func (d *Swing) LowPivot() (models.Pivot, bool) { return d.low, d.hasLow }

// Versions returns the total, per-high and per-low pivot version counters.
func (d *Swing) Versions() (total, high, low int) {
	return d.version, d.highVersion, d.lowVersion
}

// Pair returns the most recently completed pivot pair and its version.
func (d *Swing) Pair() (models.PivotPair, int) { return d.pair, d.pairVersion }

// Value returns one of the swing outputs.
func (d *Swing) Value(key string) (models.Value, error) {
	switch key {
	case "high_level":
		if !d.hasHigh {
			return models.EmptyFloat(), nil
		}
		return models.FloatValue(d.high.Level), nil
	case "high_idx":
		if !d.hasHigh {
			return models.EmptyInt(), nil
		}
		return models.IntValue(d.high.Idx), nil
	case "low_level":
		if !d.hasLow {
			return models.EmptyFloat(), nil
		}
		return models.FloatValue(d.low.Level), nil
	case "low_idx":
		if !d.hasLow {
			return models.EmptyInt(), nil
		}
		return models.IntValue(d.low.Idx), nil
	case "version":
		return models.IntValue(d.version), nil
	case "high_version":
		return models.IntValue(d.highVersion), nil
	case "low_version":
		return models.IntValue(d.lowVersion), nil
	case "last_type":
		return models.StringValue(string(d.lastType)), nil
	case "significance":
		return models.FloatValue(d.significance), nil
	case "is_major":
		return models.BoolValue(d.isMajor), nil
	case "pair_high_level":
		if d.pairVersion == 0 {
			return models.EmptyFloat(), nil
		}
		return models.FloatValue(d.pair.High.Level), nil
	case "pair_high_idx":
		if d.pairVersion == 0 {
			return models.EmptyInt(), nil
		}
		return models.IntValue(d.pair.High.Idx), nil
	case "pair_low_level":
		if d.pairVersion == 0 {
			return models.EmptyFloat(), nil
		}
		return models.FloatValue(d.pair.Low.Level), nil
	case "pair_low_idx":
		if d.pairVersion == 0 {
			return models.EmptyInt(), nil
		}
		return models.IntValue(d.pair.Low.Idx), nil
	case "pair_direction":
		return models.StringValue(string(d.pair.Direction)), nil
	case "pair_hash":
		if d.pairVersion == 0 {
			return models.EmptyString(), nil
		}
		return models.StringValue(d.pair.Hash), nil
	case "pair_version":
		return models.IntValue(d.pairVersion), nil
	case "pair_state":
		return models.StringValue(d.pairSt.String()), nil
	}
	return models.Value{}, keyError(key, swingKeys)
}

// OutputKeys lists every valid output key.
func (d *Swing) OutputKeys() []string {
	return swingKeys
}
