package structure

import (
	"math"

	"github.com/plife507/TRADE-sub002/internal/models"
)

// Bias values exposed by the market-structure detector.
const (
	BiasBullish = "bullish"
	BiasBearish = "bearish"
	BiasRanging = "ranging"
)

// Event names exposed through the last_event output.
const (
	eventBOS   = "bos"
	eventCHoCH = "choch"
	eventNone  = "none"
)

// MarketStructure tracks break-of-structure and change-of-character events
// against the most recently confirmed swing levels. Watch levels arm from
// the swing dependency; a break through the level in the bias direction is
// a BOS (continuation), against it a CHoCH (reversal).
type MarketStructure struct {
	swing *Swing

	confirmClose bool

	bias string

	breakHigh float64 // watch level above price; NaN = disarmed
	breakLow  float64 // watch level below price; NaN = disarmed

	// previous swing levels, used to roll a broken watch level.
	priorHigh    float64
	priorLow     float64
	hasPriorHigh bool
	hasPriorLow  bool

	lastHighVersion int
	lastLowVersion  int

	bosThisBar   bool
	chochThisBar bool
	lastEvent    string
	lastEventIdx int
	version      int
}

var marketStructureKeys = []string{
	"bias", "bos_this_bar", "choch_this_bar",
	"break_level_high", "break_level_low",
	"last_event", "last_event_idx", "version",
}

func newMarketStructure(key string, params Params, deps Deps) (Detector, error) {
	r := newParamReader(key, params)
	confirmClose := r.Bool("confirmation_close", false)
	r.checkUnknown()
	if err := r.Err(); err != nil {
		return nil, err
	}
	sw, err := swingDep(key, deps)
	if err != nil {
		return nil, err
	}
	return &MarketStructure{
		swing:        sw,
		confirmClose: confirmClose,
		bias:         BiasRanging,
		breakHigh:    math.NaN(),
		breakLow:     math.NaN(),
		lastEvent:    eventNone,
		lastEventIdx: -1,
	}, nil
}

// refreshWatchLevels re-arms the watch levels whenever the swing dependency
// confirmed a new pivot since the last bar, remembering the displaced level
// for the post-BOS roll.
func (d *MarketStructure) refreshWatchLevels() {
	_, highV, lowV := d.swing.Versions()

	if highV != d.lastHighVersion {
		d.lastHighVersion = highV
		if hp, ok := d.swing.HighPivot(); ok {
			if !math.IsNaN(d.breakHigh) {
				d.priorHigh = d.breakHigh
				d.hasPriorHigh = true
			}
			d.breakHigh = hp.Level
		}
	}
	if lowV != d.lastLowVersion {
		d.lastLowVersion = lowV
		if lp, ok := d.swing.LowPivot(); ok {
			if !math.IsNaN(d.breakLow) {
				d.priorLow = d.breakLow
				d.hasPriorLow = true
			}
			d.breakLow = lp.Level
		}
	}
}

// Update evaluates the bar against the watch levels. Event flags reset at
// the start of every call and are only true on the bar the break occurs.
func (d *MarketStructure) Update(bar models.Bar) {
	d.bosThisBar = false
	d.chochThisBar = false

	d.refreshWatchLevels()

	upPrice := bar.High
	downPrice := bar.Low
	if d.confirmClose {
		upPrice = bar.Close
		downPrice = bar.Close
	}

	brokeUp := !math.IsNaN(d.breakHigh) && upPrice > d.breakHigh
	brokeDown := !math.IsNaN(d.breakLow) && downPrice < d.breakLow

	switch d.bias {
	case BiasBullish:
		if brokeUp {
			d.recordBOS(bar.Idx)
			d.rollBrokenHigh()
		} else if brokeDown {
			d.recordCHoCH(bar.Idx, BiasBearish)
			d.rollBrokenLow()
		}
	case BiasBearish:
		if brokeDown {
			d.recordBOS(bar.Idx)
			d.rollBrokenLow()
		} else if brokeUp {
			d.recordCHoCH(bar.Idx, BiasBullish)
			d.rollBrokenHigh()
		}
	default: // ranging: the first directional break establishes the bias
		if brokeUp {
			d.bias = BiasBullish
			d.recordBOS(bar.Idx)
			d.rollBrokenHigh()
		} else if brokeDown {
			d.bias = BiasBearish
			d.recordBOS(bar.Idx)
			d.rollBrokenLow()
		}
	}
}

func (d *MarketStructure) recordBOS(idx int) {
	d.bosThisBar = true
	d.lastEvent = eventBOS
	d.lastEventIdx = idx
	d.version++
}

func (d *MarketStructure) recordCHoCH(idx int, newBias string) {
	d.chochThisBar = true
	d.bias = newBias
	d.lastEvent = eventCHoCH
	d.lastEventIdx = idx
	d.version++
}

// rollBrokenHigh replaces a broken high watch level with the prior high if
// one exists, otherwise disarms it until the next swing high confirms.
func (d *MarketStructure) rollBrokenHigh() {
	if d.hasPriorHigh {
		d.breakHigh = d.priorHigh
		d.hasPriorHigh = false
	} else {
		d.breakHigh = math.NaN()
	}
}

func (d *MarketStructure) rollBrokenLow() {
	if d.hasPriorLow {
		d.breakLow = d.priorLow
		d.hasPriorLow = false
	} else {
		d.breakLow = math.NaN()
	}
}

// Value returns one of the market-structure outputs.
func (d *MarketStructure) Value(key string) (models.Value, error) {
	switch key {
	case "bias":
		return models.StringValue(d.bias), nil
	case "bos_this_bar":
		return models.BoolValue(d.bosThisBar), nil
	case "choch_this_bar":
		return models.BoolValue(d.chochThisBar), nil
	case "break_level_high":
		return models.FloatValue(d.breakHigh), nil
	case "break_level_low":
		return models.FloatValue(d.breakLow), nil
	case "last_event":
		return models.StringValue(d.lastEvent), nil
	case "last_event_idx":
		return models.IntValue(d.lastEventIdx), nil
	case "version":
		return models.IntValue(d.version), nil
	}
	return models.Value{}, keyError(key, marketStructureKeys)
}

// OutputKeys lists every valid output key.
func (d *MarketStructure) OutputKeys() []string {
	return marketStructureKeys
}
