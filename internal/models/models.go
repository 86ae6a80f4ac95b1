// Package models provides domain models for the market-structure engine.
package models

// Timeframe identifies a bar interval.
type Timeframe string

const (
	Timeframe1Min  Timeframe = "1minute"
	Timeframe5Min  Timeframe = "5minute"
	Timeframe15Min Timeframe = "15minute"
	Timeframe1Hour Timeframe = "60minute"
	Timeframe1Day  Timeframe = "day"
)

// Minutes returns the interval length in minutes, or 0 for an unknown
// timeframe.
func (tf Timeframe) Minutes() int {
	switch tf {
	case Timeframe1Min:
		return 1
	case Timeframe5Min:
		return 5
	case Timeframe15Min:
		return 15
	case Timeframe1Hour:
		return 60
	case Timeframe1Day:
		return 1440
	}
	return 0
}

// Bar is one closed OHLCV bar plus precomputed indicator values keyed by
// name. Bars are immutable once constructed and must be fed to any state
// container with strictly increasing Idx.
type Bar struct {
	Idx        int
	Open       float64
	High       float64
	Low        float64
	Close      float64
	Volume     float64
	Indicators map[string]float64
}

// Indicator returns the named indicator value and whether it is present.
func (b Bar) Indicator(name string) (float64, bool) {
	if b.Indicators == nil {
		return 0, false
	}
	v, ok := b.Indicators[name]
	return v, ok
}

// PivotType distinguishes swing highs from swing lows.
type PivotType string

const (
	PivotHigh PivotType = "high"
	PivotLow  PivotType = "low"
	PivotNone PivotType = "none"
)

// Opposite returns the other pivot type.
func (t PivotType) Opposite() PivotType {
	switch t {
	case PivotHigh:
		return PivotLow
	case PivotLow:
		return PivotHigh
	}
	return PivotNone
}

// Pivot is a confirmed swing extreme. Once confirmed it is never revised;
// detectors track a mutable "current" pivot per type.
type Pivot struct {
	Level float64
	Idx   int
}

// PairDirection is the direction of a completed pivot pair.
type PairDirection string

const (
	PairBullish PairDirection = "bullish" // low -> high
	PairBearish PairDirection = "bearish" // high -> low
	PairNone    PairDirection = "none"
)

// PivotPair is the most recently completed alternating high/low pivot
// sequence. Hash is a stable short identifier for the anchor instance;
// downstream detectors use it, not object identity, to recognize the same
// swing.
type PivotPair struct {
	High      Pivot
	Low       Pivot
	Direction PairDirection
	Hash      string
}

// Wave is a completed transition between two consecutive opposite-type
// pivots. The comparison flags relate the wave's end pivot to the prior
// pivot of the same type (never to the wave's own start).
type Wave struct {
	Start      Pivot
	End        Pivot
	EndType    PivotType
	HigherHigh bool
	LowerHigh  bool
	HigherLow  bool
	LowerLow   bool
}
