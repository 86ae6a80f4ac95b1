package indicators

import (
	"github.com/plife507/TRADE-sub002/internal/models"
)

// Indicator keys stamped onto bars.
const (
	KeyATR = "atr"
	KeyEMA = "ema"
)

// Feed stamps incremental indicator values onto a bar stream. Detectors
// downstream read them through models.Bar.Indicator; bars seen before the
// warmup completes simply carry no entry for that key.
type Feed struct {
	atr *ATR
	ema *EMA
}

// NewFeed creates a feed with the given ATR and EMA periods.
func NewFeed(atrPeriod, emaPeriod int) *Feed {
	return &Feed{
		atr: NewATR(atrPeriod),
		ema: NewEMA(emaPeriod),
	}
}

// Stamp folds the bar into every indicator and returns a copy with the
// ready values set. The input bar is not mutated.
func (f *Feed) Stamp(bar models.Bar) models.Bar {
	stamped := bar
	stamped.Indicators = make(map[string]float64, 2)
	for k, v := range bar.Indicators {
		stamped.Indicators[k] = v
	}

	if v, ok := f.atr.Update(bar); ok {
		stamped.Indicators[KeyATR] = v
	}
	if v, ok := f.ema.Update(bar.Close); ok {
		stamped.Indicators[KeyEMA] = v
	}
	return stamped
}
