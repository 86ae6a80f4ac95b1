// Package indicators provides the incremental indicator calculations the
// engine stamps onto bars before detection. Unlike batch calculators these
// fold one bar at a time and never revisit history.
package indicators

import (
	"math"

	"github.com/plife507/TRADE-sub002/internal/models"
)

// ATR calculates the Average True Range incrementally: the first value is
// the simple mean of the first period true ranges, subsequent values use
// Wilder smoothing.
type ATR struct {
	period    int
	prevClose float64
	hasPrev   bool
	trSum     float64
	trCount   int
	value     float64
	seeded    bool
}

// NewATR creates a new incremental ATR with the given period.
func NewATR(period int) *ATR {
	if period < 1 {
		period = 1
	}
	return &ATR{period: period}
}

// Period returns the configured period.
func (a *ATR) Period() int { return a.period }

// Update folds one bar and returns the current ATR value. ok is false until
// the first period true ranges have been seen.
func (a *ATR) Update(bar models.Bar) (float64, bool) {
	tr := bar.High - bar.Low
	if a.hasPrev {
		tr = math.Max(tr, math.Max(
			math.Abs(bar.High-a.prevClose),
			math.Abs(bar.Low-a.prevClose)))
	}
	a.prevClose = bar.Close
	a.hasPrev = true

	if !a.seeded {
		a.trSum += tr
		a.trCount++
		if a.trCount < a.period {
			return 0, false
		}
		a.value = a.trSum / float64(a.period)
		a.seeded = true
		return a.value, true
	}

	a.value = (a.value*float64(a.period-1) + tr) / float64(a.period)
	return a.value, true
}

// Value returns the current ATR value. ok is false before the seed completes.
func (a *ATR) Value() (float64, bool) {
	return a.value, a.seeded
}

// EMA calculates an exponential moving average of closes incrementally,
// seeded with the simple mean of the first period closes.
type EMA struct {
	period int
	alpha  float64
	sum    float64
	count  int
	value  float64
	seeded bool
}

// NewEMA creates a new incremental EMA with the given period.
func NewEMA(period int) *EMA {
	if period < 1 {
		period = 1
	}
	return &EMA{period: period, alpha: 2.0 / (float64(period) + 1.0)}
}

// Period returns the configured period.
func (e *EMA) Period() int { return e.period }

// Update folds one close and returns the current EMA value. ok is false
// until the seed window fills.
func (e *EMA) Update(close float64) (float64, bool) {
	if !e.seeded {
		e.sum += close
		e.count++
		if e.count < e.period {
			return 0, false
		}
		e.value = e.sum / float64(e.period)
		e.seeded = true
		return e.value, true
	}

	e.value = e.value + e.alpha*(close-e.value)
	return e.value, true
}

// Value returns the current EMA value. ok is false before the seed completes.
func (e *EMA) Value() (float64, bool) {
	return e.value, e.seeded
}
