package structure

import (
	"sort"

	"github.com/plife507/TRADE-sub002/internal/models"
)

// Trend classifies market direction and strength from the waves between
// consecutive opposite-type swing pivots. It keys all work off the swing
// detector's pivot indices: when neither changed on a bar, the only update
// is the bars_in_trend counter.
type Trend struct {
	swing *Swing

	waveHistory int

	lastHighIdx int
	lastLowIdx  int

	// previous pivot of each type, i.e. the comparison base for the next
	// wave ending in that type.
	prevHigh    models.Pivot
	prevLow     models.Pivot
	hasPrevHigh bool
	hasPrevLow  bool

	pending     models.Pivot
	pendingType models.PivotType

	waves []models.Wave

	direction   int
	strength    int
	barsInTrend int
	version     int
}

var trendKeys = []string{
	"direction", "strength", "bars_in_trend", "version",
	"higher_high", "lower_high", "higher_low", "lower_low",
	"wave_count",
}

func newTrend(key string, params Params, deps Deps) (Detector, error) {
	r := newParamReader(key, params)
	hist := r.Int("wave_history", 4)
	r.checkUnknown()
	if err := r.Err(); err != nil {
		return nil, err
	}
	if hist < 2 {
		return nil, paramRangeError(key, "wave_history", hist,
			"must be at least 2 to form a wave pair", "wave_history = 4")
	}
	sw, err := swingDep(key, deps)
	if err != nil {
		return nil, err
	}
	return &Trend{
		swing:       sw,
		waveHistory: hist,
		lastHighIdx: -1,
		lastLowIdx:  -1,
		pendingType: models.PivotNone,
	}, nil
}

// pivotEvent is a newly observed swing pivot, ordered by bar index before
// wave processing.
type pivotEvent struct {
	typ   models.PivotType
	pivot models.Pivot
}

// Update folds one bar: detect pivot changes on the swing dependency,
// complete waves, and reclassify.
func (d *Trend) Update(_ models.Bar) {
	var events []pivotEvent

	if hp, ok := d.swing.HighPivot(); ok && hp.Idx != d.lastHighIdx {
		d.lastHighIdx = hp.Idx
		events = append(events, pivotEvent{typ: models.PivotHigh, pivot: hp})
	}
	if lp, ok := d.swing.LowPivot(); ok && lp.Idx != d.lastLowIdx {
		d.lastLowIdx = lp.Idx
		events = append(events, pivotEvent{typ: models.PivotLow, pivot: lp})
	}

	if len(events) == 0 {
		d.barsInTrend++
		return
	}

	// Both pivots can change on the same bar (e.g. lagged fractal
	// confirmations); process them in pivot-index order.
	sort.Slice(events, func(i, j int) bool {
		return events[i].pivot.Idx < events[j].pivot.Idx
	})
	for _, ev := range events {
		d.processPivot(ev.typ, ev.pivot)
	}

	prevDirection := d.direction
	d.classify()
	if d.direction != prevDirection {
		d.barsInTrend = 0
		d.version++
	} else {
		d.barsInTrend++
	}
}

// processPivot completes a wave when an opposite-type pivot arrives for the
// pending one, then records the pivot as the new pending wave start. The
// wave's comparison flags are computed against the previous pivot of the
// end pivot's type, never against the wave's own start.
func (d *Trend) processPivot(pt models.PivotType, pivot models.Pivot) {
	if d.pendingType != models.PivotNone && d.pendingType != pt {
		wave := models.Wave{
			Start:   d.pending,
			End:     pivot,
			EndType: pt,
		}
		switch pt {
		case models.PivotHigh:
			if d.hasPrevHigh {
				wave.HigherHigh = pivot.Level > d.prevHigh.Level
				wave.LowerHigh = pivot.Level < d.prevHigh.Level
			}
		case models.PivotLow:
			if d.hasPrevLow {
				wave.HigherLow = pivot.Level > d.prevLow.Level
				wave.LowerLow = pivot.Level < d.prevLow.Level
			}
		}
		d.waves = append(d.waves, wave)
		if len(d.waves) > d.waveHistory {
			d.waves = d.waves[len(d.waves)-d.waveHistory:]
		}
	}

	// The just-processed pivot becomes the comparison base for the next
	// same-type wave end, and the pending wave start.
	switch pt {
	case models.PivotHigh:
		d.prevHigh = pivot
		d.hasPrevHigh = true
	case models.PivotLow:
		d.prevLow = pivot
		d.hasPrevLow = true
	}
	d.pending = pivot
	d.pendingType = pt
}

// latestFlags reads the two most recent waves: the more recent wave ending
// in a high supplies the HH/LH flags, the more recent ending in a low
// supplies HL/LL.
func (d *Trend) latestFlags() (hh, lh, hl, ll bool) {
	seenHigh, seenLow := false, false
	for i := len(d.waves) - 1; i >= 0 && (!seenHigh || !seenLow); i-- {
		w := d.waves[i]
		if w.EndType == models.PivotHigh && !seenHigh {
			hh, lh = w.HigherHigh, w.LowerHigh
			seenHigh = true
		}
		if w.EndType == models.PivotLow && !seenLow {
			hl, ll = w.HigherLow, w.LowerLow
			seenLow = true
		}
	}
	return
}

// pairDirection applies the direction rules to one wave pair's flags.
func pairDirection(hh, lh, hl, ll bool) int {
	upVotes := 0
	downVotes := 0
	if hh {
		upVotes++
	}
	if hl {
		upVotes++
	}
	if lh {
		downVotes++
	}
	if ll {
		downVotes++
	}

	switch {
	case upVotes == 2:
		return 1
	case downVotes == 2:
		return -1
	case upVotes > 0 && downVotes == 0:
		return 1
	case downVotes > 0 && upVotes == 0:
		return -1
	}
	return 0
}

// classify recomputes direction and strength from the wave history.
func (d *Trend) classify() {
	hh, lh, hl, ll := d.latestFlags()
	d.direction = pairDirection(hh, lh, hl, ll)

	if d.direction == 0 {
		d.strength = 0
		return
	}

	// Walk back through wave pairs in strides of two, counting consecutive
	// pairs that agree with the current direction (the latest pair counts).
	agreeing := 0
	for i := len(d.waves) - 1; i >= 1; i -= 2 {
		a, b := d.waves[i], d.waves[i-1]
		var phh, plh, phl, pll bool
		for _, w := range []models.Wave{a, b} {
			if w.EndType == models.PivotHigh {
				phh, plh = w.HigherHigh, w.LowerHigh
			} else {
				phl, pll = w.HigherLow, w.LowerLow
			}
		}
		if pairDirection(phh, plh, phl, pll) != d.direction {
			break
		}
		agreeing++
	}

	switch {
	case agreeing >= 2:
		d.strength = 2
	case agreeing == 1:
		d.strength = 1
	default:
		d.strength = 0
	}
}

// Value returns one of the trend outputs.
func (d *Trend) Value(key string) (models.Value, error) {
	hh, lh, hl, ll := d.latestFlags()
	switch key {
	case "direction":
		return models.IntValue(d.direction), nil
	case "strength":
		return models.IntValue(d.strength), nil
	case "bars_in_trend":
		return models.IntValue(d.barsInTrend), nil
	case "version":
		return models.IntValue(d.version), nil
	case "higher_high":
		return models.BoolValue(hh), nil
	case "lower_high":
		return models.BoolValue(lh), nil
	case "higher_low":
		return models.BoolValue(hl), nil
	case "lower_low":
		return models.BoolValue(ll), nil
	case "wave_count":
		return models.IntValue(len(d.waves)), nil
	}
	return models.Value{}, keyError(key, trendKeys)
}

// OutputKeys lists every valid output key.
func (d *Trend) OutputKeys() []string {
	return trendKeys
}
