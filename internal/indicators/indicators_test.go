package indicators

import (
	"math"
	"testing"

	"github.com/plife507/TRADE-sub002/internal/models"
)

func tbar(idx int, high, low, close float64) models.Bar {
	return models.Bar{Idx: idx, Open: close, High: high, Low: low, Close: close}
}

func TestATRSeedIsMeanOfTrueRanges(t *testing.T) {
	atr := NewATR(3)

	// First bar: TR = high - low = 2. Later bars include the close gap.
	if _, ok := atr.Update(tbar(0, 12, 10, 11)); ok {
		t.Fatal("ATR reported a value before the seed window filled")
	}
	// TR = max(13-11, |13-11|, |11-11|) = 2
	if _, ok := atr.Update(tbar(1, 13, 11, 12)); ok {
		t.Fatal("ATR reported a value before the seed window filled")
	}
	// TR = max(15-12, |15-12|, |12-12|) = 3
	v, ok := atr.Update(tbar(2, 15, 12, 14))
	if !ok {
		t.Fatal("ATR did not seed after period true ranges")
	}
	want := (2.0 + 2.0 + 3.0) / 3.0
	if math.Abs(v-want) > 1e-9 {
		t.Errorf("seed ATR = %v, want %v", v, want)
	}

	// Wilder smoothing: (prev*(n-1) + tr) / n, with TR = max(16-13, 2, 1) = 3.
	v, _ = atr.Update(tbar(3, 16, 13, 15))
	want = (want*2 + 3.0) / 3.0
	if math.Abs(v-want) > 1e-9 {
		t.Errorf("smoothed ATR = %v, want %v", v, want)
	}
}

func TestATRUsesGapsInTrueRange(t *testing.T) {
	atr := NewATR(1)
	atr.Update(tbar(0, 101, 100, 100))
	// Gap down: the range to the previous close dominates high-low.
	v, ok := atr.Update(tbar(1, 91, 90, 90))
	if !ok {
		t.Fatal("ATR not seeded")
	}
	if math.Abs(v-10.0) > 1e-9 {
		t.Errorf("gap ATR = %v, want 10 (|low - prevClose|)", v)
	}
}

func TestEMASeedAndSmoothing(t *testing.T) {
	ema := NewEMA(3)
	if _, ok := ema.Update(10); ok {
		t.Fatal("EMA reported a value before the seed window filled")
	}
	if _, ok := ema.Update(11); ok {
		t.Fatal("EMA reported a value before the seed window filled")
	}
	v, ok := ema.Update(12)
	if !ok || math.Abs(v-11.0) > 1e-9 {
		t.Fatalf("seed EMA = %v/%v, want 11/true", v, ok)
	}
	// alpha = 0.5 for period 3.
	v, _ = ema.Update(13)
	if math.Abs(v-12.0) > 1e-9 {
		t.Errorf("EMA = %v, want 12", v)
	}
}

func TestFeedStampsWithoutMutating(t *testing.T) {
	feed := NewFeed(2, 2)
	in := tbar(0, 12, 10, 11)

	out := feed.Stamp(in)
	if in.Indicators != nil {
		t.Error("Stamp mutated the input bar")
	}
	if _, ok := out.Indicator(KeyATR); ok {
		t.Error("ATR stamped before warmup")
	}

	out = feed.Stamp(tbar(1, 13, 11, 12))
	if _, ok := out.Indicator(KeyATR); !ok {
		t.Error("ATR missing after warmup")
	}
	if _, ok := out.Indicator(KeyEMA); !ok {
		t.Error("EMA missing after warmup")
	}
}

func TestFeedPreservesExistingIndicators(t *testing.T) {
	feed := NewFeed(1, 1)
	in := tbar(0, 12, 10, 11)
	in.Indicators = map[string]float64{"vwap": 11.2}

	out := feed.Stamp(in)
	if v, ok := out.Indicator("vwap"); !ok || v != 11.2 {
		t.Errorf("existing indicator lost: %v/%v", v, ok)
	}
	if _, ok := out.Indicator(KeyATR); !ok {
		t.Error("ATR not stamped with period 1")
	}
}
