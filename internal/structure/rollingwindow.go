package structure

import (
	"github.com/plife507/TRADE-sub002/internal/models"
	"github.com/plife507/TRADE-sub002/internal/window"
)

// RollingWindow is the leaf detector tracking the highest high and lowest
// low over a trailing window of bars, in O(1) amortized work per bar.
type RollingWindow struct {
	windowSize int

	maxHigh *window.MonoDeque
	minLow  *window.MonoDeque

	barsSeen int
	lastIdx  int
}

var rollingWindowKeys = []string{
	"highest_high", "highest_idx",
	"lowest_low", "lowest_idx",
	"range", "bars_seen", "full",
}

func newRollingWindow(key string, params Params, _ Deps) (Detector, error) {
	r := newParamReader(key, params)
	size := r.Int("window", 0)
	r.checkUnknown()
	if err := r.Err(); err != nil {
		return nil, err
	}
	if size < 1 {
		return nil, paramRangeError(key, "window", size, "must be at least 1", "window = 20")
	}
	return &RollingWindow{
		windowSize: size,
		maxHigh:    window.NewMaxDeque(),
		minLow:     window.NewMinDeque(),
		lastIdx:    -1,
	}, nil
}

// Update folds one bar into the trailing window.
func (d *RollingWindow) Update(bar models.Bar) {
	d.maxHigh.Push(bar.Idx, bar.High)
	d.minLow.Push(bar.Idx, bar.Low)
	d.maxHigh.Expire(bar.Idx - d.windowSize + 1)
	d.minLow.Expire(bar.Idx - d.windowSize + 1)
	d.barsSeen++
	d.lastIdx = bar.Idx
}

// Value returns one of the rolling-window outputs.
func (d *RollingWindow) Value(key string) (models.Value, error) {
	hi, hiIdx, hiOK := d.maxHigh.Best()
	lo, loIdx, loOK := d.minLow.Best()

	switch key {
	case "highest_high":
		if !hiOK {
			return models.EmptyFloat(), nil
		}
		return models.FloatValue(hi), nil
	case "highest_idx":
		if !hiOK {
			return models.EmptyInt(), nil
		}
		return models.IntValue(hiIdx), nil
	case "lowest_low":
		if !loOK {
			return models.EmptyFloat(), nil
		}
		return models.FloatValue(lo), nil
	case "lowest_idx":
		if !loOK {
			return models.EmptyInt(), nil
		}
		return models.IntValue(loIdx), nil
	case "range":
		if !hiOK || !loOK {
			return models.EmptyFloat(), nil
		}
		return models.FloatValue(hi - lo), nil
	case "bars_seen":
		return models.IntValue(d.barsSeen), nil
	case "full":
		return models.BoolValue(d.barsSeen >= d.windowSize), nil
	}
	return models.Value{}, keyError(key, rollingWindowKeys)
}

// OutputKeys lists every valid output key.
func (d *RollingWindow) OutputKeys() []string {
	return rollingWindowKeys
}
