package structure

import (
	"math"
	"testing"

	"github.com/plife507/TRADE-sub002/internal/models"
)

type msRig struct {
	swing *Swing
	ms    Detector
}

func newMSRig(t *testing.T, params Params) *msRig {
	t.Helper()
	sw := mustSwing(t, Params{"left": 1, "right": 1})
	return &msRig{swing: sw, ms: mustDetector(t, TypeMarketStructure, params, sw)}
}

func (r *msRig) feed(bar models.Bar) {
	r.swing.Update(bar)
	r.ms.Update(bar)
}

func TestMarketStructureBOSThenCHoCH(t *testing.T) {
	rig := newMSRig(t, Params{})

	// Narrow candles form swing low 99@1 and swing high 111@2.
	for _, bar := range narrowBars([]float64{105, 100, 110, 104}) {
		rig.feed(bar)
	}
	if got := strOut(t, rig.ms, "bias"); got != BiasRanging {
		t.Fatalf("bias before any break = %q, want %q", got, BiasRanging)
	}
	if got := floatOut(t, rig.ms, "break_level_high"); got != 111 {
		t.Fatalf("break_level_high = %v, want 111", got)
	}
	if got := floatOut(t, rig.ms, "break_level_low"); got != 99 {
		t.Fatalf("break_level_low = %v, want 99", got)
	}

	// Wick through the high watch level: first directional break sets the
	// bias and counts as a BOS.
	rig.feed(mkBarClose(4, 115, 104, 114))
	if got := strOut(t, rig.ms, "bias"); got != BiasBullish {
		t.Fatalf("bias after upside break = %q, want %q", got, BiasBullish)
	}
	if !boolOut(t, rig.ms, "bos_this_bar") {
		t.Error("bos_this_bar = false on the break bar, want true")
	}
	if got := strOut(t, rig.ms, "last_event"); got != "bos" {
		t.Errorf("last_event = %q, want %q", got, "bos")
	}
	if got := intOut(t, rig.ms, "last_event_idx"); got != 4 {
		t.Errorf("last_event_idx = %d, want 4", got)
	}

	// Quiet bar: per-bar flags reset, the event memory stays.
	rig.feed(mkBar(5, 108, 105))
	if boolOut(t, rig.ms, "bos_this_bar") {
		t.Error("bos_this_bar = true one bar after the break, want false")
	}
	if got := strOut(t, rig.ms, "last_event"); got != "bos" {
		t.Errorf("last_event = %q after quiet bar, want %q", got, "bos")
	}

	// Break below the low watch level while bullish: change of character.
	rig.feed(mkBar(6, 106, 95))
	if got := strOut(t, rig.ms, "bias"); got != BiasBearish {
		t.Fatalf("bias after downside break = %q, want %q", got, BiasBearish)
	}
	if !boolOut(t, rig.ms, "choch_this_bar") {
		t.Error("choch_this_bar = false on the reversal bar, want true")
	}
	if got := strOut(t, rig.ms, "last_event"); got != "choch" {
		t.Errorf("last_event = %q, want %q", got, "choch")
	}
	if got := intOut(t, rig.ms, "version"); got != 2 {
		t.Errorf("version = %d, want 2", got)
	}
	// The low watch level was re-armed to 103 when the swing low 103@3
	// confirmed, displacing 99; the break rolls back to the displaced level.
	if got := floatOut(t, rig.ms, "break_level_low"); got != 99 {
		t.Errorf("break_level_low = %v after break, want prior level 99", got)
	}
}

func TestMarketStructureBreakLevelRollsToPrior(t *testing.T) {
	rig := newMSRig(t, Params{})

	// Two swing highs, 111@2 then a lower high 108@4, so the displaced
	// watch level is remembered before the breakout. The second high must
	// sit below the first or price would break 111 on the way up.
	for _, bar := range narrowBars([]float64{105, 100, 110, 104, 107, 105}) {
		rig.feed(bar)
	}
	if got := floatOut(t, rig.ms, "break_level_high"); got != 108 {
		t.Fatalf("break_level_high = %v, want 108", got)
	}

	rig.feed(mkBarClose(6, 112, 106, 111))
	if !boolOut(t, rig.ms, "bos_this_bar") {
		t.Fatal("bos_this_bar = false on the breakout bar, want true")
	}
	if got := floatOut(t, rig.ms, "break_level_high"); got != 111 {
		t.Errorf("break_level_high after roll = %v, want prior level 111", got)
	}
}

func TestMarketStructureConfirmationClose(t *testing.T) {
	rig := newMSRig(t, Params{"confirmation_close": true})

	for _, bar := range narrowBars([]float64{105, 100, 110, 104}) {
		rig.feed(bar)
	}

	// Wick above the level but close below: not a break in close mode.
	rig.feed(mkBarClose(4, 115, 104, 108))
	if boolOut(t, rig.ms, "bos_this_bar") {
		t.Fatal("bos_this_bar = true on a wick-only breach, want false")
	}
	if got := strOut(t, rig.ms, "bias"); got != BiasRanging {
		t.Fatalf("bias = %q after wick-only breach, want %q", got, BiasRanging)
	}

	// Close through the level confirms.
	rig.feed(mkBarClose(5, 116, 110, 113))
	if !boolOut(t, rig.ms, "bos_this_bar") {
		t.Error("bos_this_bar = false on a close through the level, want true")
	}
	if got := strOut(t, rig.ms, "bias"); got != BiasBullish {
		t.Errorf("bias = %q, want %q", got, BiasBullish)
	}
}

func TestMarketStructureNoPivotsNoEvents(t *testing.T) {
	rig := newMSRig(t, Params{})
	for i := 0; i < 20; i++ {
		rig.feed(mkBar(i, 101, 100))
	}
	if got := strOut(t, rig.ms, "bias"); got != BiasRanging {
		t.Errorf("bias = %q, want %q", got, BiasRanging)
	}
	if got := intOut(t, rig.ms, "version"); got != 0 {
		t.Errorf("version = %d, want 0", got)
	}
	if got := intOut(t, rig.ms, "last_event_idx"); got != -1 {
		t.Errorf("last_event_idx = %d, want -1", got)
	}
	if got := floatOut(t, rig.ms, "break_level_high"); !math.IsNaN(got) {
		t.Errorf("break_level_high = %v, want NaN before any pivot", got)
	}
}
