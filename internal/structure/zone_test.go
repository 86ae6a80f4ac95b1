package structure

import (
	"math"
	"testing"

	"github.com/plife507/TRADE-sub002/internal/models"
)

type zoneRig struct {
	swing *Swing
	det   Detector
}

func newZoneRig(t *testing.T, typeName string, params Params) *zoneRig {
	t.Helper()
	sw := mustSwing(t, Params{"left": 1, "right": 1})
	return &zoneRig{swing: sw, det: mustDetector(t, typeName, params, sw)}
}

func (r *zoneRig) feed(bar models.Bar) {
	r.swing.Update(bar)
	r.det.Update(bar)
}

func TestPivotZoneLifecycle(t *testing.T) {
	rig := newZoneRig(t, TypeZone, Params{"width_pct": 1.0})

	// Swing low 99@1 confirms on bar 2 (demand zone), swing high 111@2 on
	// bar 3 (supply zone). width 1% of 99 gives the band [98.505, 99.495].
	for _, bar := range narrowBars([]float64{105, 100, 110, 104}) {
		rig.feed(bar)
	}
	if got := intOut(t, rig.det, "active_count"); got != 2 {
		t.Fatalf("active_count = %d, want 2", got)
	}
	if got := strOut(t, rig.det, "zone0_kind"); got != string(models.ZoneSupply) {
		t.Errorf("zone0_kind = %q, want supply (newest first)", got)
	}
	if got := strOut(t, rig.det, "zone1_kind"); got != string(models.ZoneDemand) {
		t.Errorf("zone1_kind = %q, want demand", got)
	}
	if got := floatOut(t, rig.det, "zone1_lower"); !approx(got, 98.505) {
		t.Errorf("zone1_lower = %v, want 98.505", got)
	}
	if got := floatOut(t, rig.det, "zone1_upper"); !approx(got, 99.495) {
		t.Errorf("zone1_upper = %v, want 99.495", got)
	}
	if got := intOut(t, rig.det, "version"); got != 2 {
		t.Errorf("version = %d, want 2 (two creations)", got)
	}

	// Bar 4 dips into the demand band without closing below it: a touch.
	rig.feed(mkBar(4, 100, 98.9))
	if !boolOut(t, rig.det, "zone1_touched") {
		t.Error("zone1_touched = false on the touch bar, want true")
	}
	if got := intOut(t, rig.det, "zone1_touches"); got != 1 {
		t.Errorf("zone1_touches = %d, want 1", got)
	}
	if !boolOut(t, rig.det, "any_touched") {
		t.Error("any_touched = false, want true")
	}
	if got := strOut(t, rig.det, "zone1_state"); got != string(models.ZoneStateActive) {
		t.Errorf("zone1_state = %q after a touch, want active", got)
	}

	// Bar 5 closes below the demand band: the zone breaks.
	rig.feed(mkBarClose(5, 99, 97, 97.5))
	if got := strOut(t, rig.det, "zone1_state"); got != string(models.ZoneStateBroken) {
		t.Fatalf("zone1_state = %q, want broken", got)
	}
	if got := intOut(t, rig.det, "broken_count"); got != 1 {
		t.Errorf("broken_count = %d, want 1", got)
	}
	if got := intOut(t, rig.det, "active_count"); got != 1 {
		t.Errorf("active_count = %d, want 1", got)
	}
	if got := intOut(t, rig.det, "version"); got != 3 {
		t.Errorf("version = %d, want 3 (break bumps it)", got)
	}
	// The newest active zone is now the supply band around 111.
	if got := floatOut(t, rig.det, "first_active_lower"); !approx(got, 110.445) {
		t.Errorf("first_active_lower = %v, want 110.445", got)
	}

	// A later bar away from the bands: per-bar touch flags reset, broken
	// zones stay broken.
	rig.feed(mkBar(6, 98, 96.5))
	if boolOut(t, rig.det, "zone1_touched") {
		t.Error("zone1_touched = true on a non-touch bar, want false")
	}
	if got := strOut(t, rig.det, "zone1_state"); got != string(models.ZoneStateBroken) {
		t.Errorf("zone1_state = %q, want broken (no reactivation)", got)
	}
	if got := intOut(t, rig.det, "zone1_touches"); got != 2 {
		t.Errorf("zone1_touches = %d, want 2 (touched again on its break bar)", got)
	}
}

func TestPivotZoneKindFilter(t *testing.T) {
	rig := newZoneRig(t, TypeZone, Params{"kind": "demand"})
	for _, bar := range narrowBars([]float64{105, 100, 110, 104}) {
		rig.feed(bar)
	}
	// Only the swing low materialized a zone; the high was filtered out.
	if got := intOut(t, rig.det, "active_count"); got != 1 {
		t.Fatalf("active_count = %d, want 1", got)
	}
	if got := strOut(t, rig.det, "zone0_kind"); got != string(models.ZoneDemand) {
		t.Errorf("zone0_kind = %q, want demand", got)
	}
}

func TestPivotZoneBoundedSlots(t *testing.T) {
	rig := newZoneRig(t, TypeZone, Params{"max_active": 1})
	for _, bar := range narrowBars([]float64{105, 100, 110, 104}) {
		rig.feed(bar)
	}
	// The supply zone displaced the older demand zone.
	if got := strOut(t, rig.det, "zone0_kind"); got != string(models.ZoneSupply) {
		t.Errorf("zone0_kind = %q, want supply", got)
	}
	// Slots past max_active are not valid output keys.
	if _, err := rig.det.Value("zone1_kind"); err == nil {
		t.Error("zone1_kind with max_active=1: expected an unknown-key error")
	}
}

func TestPivotZoneEmptySlots(t *testing.T) {
	rig := newZoneRig(t, TypeZone, Params{})

	if got := floatOut(t, rig.det, "zone0_lower"); !math.IsNaN(got) {
		t.Errorf("zone0_lower = %v, want NaN for an empty slot", got)
	}
	if got := strOut(t, rig.det, "zone0_state"); got != "none" {
		t.Errorf("zone0_state = %q, want %q", got, "none")
	}
	if got := intOut(t, rig.det, "zone0_touches"); got != -1 {
		t.Errorf("zone0_touches = %d, want -1", got)
	}
	if boolOut(t, rig.det, "zone0_touched") {
		t.Error("zone0_touched = true for an empty slot, want false")
	}
	if got := floatOut(t, rig.det, "first_active_lower"); !math.IsNaN(got) {
		t.Errorf("first_active_lower = %v, want NaN with no zones", got)
	}
}

func TestDerivedZoneGeneration(t *testing.T) {
	sw := mustSwing(t, Params{"left": 2, "right": 2})
	dz := mustDetector(t, TypeDerivedZone, Params{"levels": []float64{0.5}, "max_active": 2}, sw)

	bars := fractalScenarioBars()
	for _, bar := range bars {
		sw.Update(bar)
		dz.Update(bar)
	}

	// Pair v1 (15/7) completed on bar 6 and pair v2 (18/7) on bar 8: one
	// zone per regeneration, newest first.
	if got := intOut(t, dz, "last_created_idx"); got != 8 {
		t.Fatalf("last_created_idx = %d, want 8", got)
	}
	if got := floatOut(t, dz, "zone0_level"); !approx(got, 12.5) {
		t.Errorf("zone0_level = %v, want 12.5 (midpoint of 18/7)", got)
	}
	if got := floatOut(t, dz, "zone1_level"); !approx(got, 11.0) {
		t.Errorf("zone1_level = %v, want 11 (midpoint of 15/7)", got)
	}
	if got := strOut(t, dz, "zone0_hash"); len(got) != 12 {
		t.Errorf("zone0_hash = %q, want a 12-character id", got)
	}
	h0, h1 := strOut(t, dz, "zone0_hash"), strOut(t, dz, "zone1_hash")
	if h0 == h1 {
		t.Error("zones from different anchors share a hash")
	}
}

func TestDerivedZoneRegenerationKeepsOldZonesAlive(t *testing.T) {
	sw := mustSwing(t, Params{"left": 2, "right": 2})
	dz := mustDetector(t, TypeDerivedZone,
		Params{"levels": []float64{0.382, 0.618}, "max_active": 4, "width_pct": 1.0}, sw)

	bars := fractalScenarioBars()
	for _, bar := range bars {
		sw.Update(bar)
		dz.Update(bar)
	}

	// Two regenerations of two levels each fill all four slots.
	if got := intOut(t, dz, "active_count") + intOut(t, dz, "broken_count"); got != 4 {
		t.Fatalf("populated slots = %d, want 4", got)
	}
	// Slots 2 and 3 still carry the first pair's levels.
	if got := floatOut(t, dz, "zone2_level"); !approx(got, 15-0.382*8) {
		t.Errorf("zone2_level = %v, want %v", got, 15-0.382*8)
	}
	if got := floatOut(t, dz, "zone3_level"); !approx(got, 15-0.618*8) {
		t.Errorf("zone3_level = %v, want %v", got, 15-0.618*8)
	}
}

func TestDerivedZonePivotSource(t *testing.T) {
	sw := mustSwing(t, Params{"left": 2, "right": 2})
	dz := mustDetector(t, TypeDerivedZone,
		Params{"levels": []float64{0.5}, "source": "pivot", "max_active": 3}, sw)

	bars := fractalScenarioBars()
	// Bar 4 confirms only the high: pivot source needs both pivots.
	for _, bar := range bars[:5] {
		sw.Update(bar)
		dz.Update(bar)
	}
	if got := intOut(t, dz, "last_created_idx"); got != -1 {
		t.Fatalf("last_created_idx = %d with one pivot, want -1", got)
	}

	// Bar 6 confirms the low: both pivots exist, zones generate.
	for _, bar := range bars[5:7] {
		sw.Update(bar)
		dz.Update(bar)
	}
	if got := intOut(t, dz, "last_created_idx"); got != 6 {
		t.Errorf("last_created_idx = %d, want 6", got)
	}
	if got := floatOut(t, dz, "zone0_level"); !approx(got, 11.0) {
		t.Errorf("zone0_level = %v, want 11", got)
	}
}

func TestDerivedZoneBuildValidation(t *testing.T) {
	sw := mustSwing(t, Params{})
	cases := []struct {
		name   string
		params Params
	}{
		{"max_active below level count", Params{"levels": []float64{0.382, 0.5, 0.618}, "max_active": 2}},
		{"extension with pivot source", Params{"mode": "extension", "source": "pivot"}},
		{"bad source", Params{"source": "trend"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := newDerivedZone("dz", tc.params, Deps{RoleSwing: sw}); err == nil {
				t.Error("expected a build error")
			}
		})
	}
}
