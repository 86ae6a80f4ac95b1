package structure

import (
	"math"

	"github.com/plife507/TRADE-sub002/internal/models"
)

// Derived-zone source selection.
const (
	dzSourcePair  = "pair"
	dzSourcePivot = "pivot"
)

var derivedZoneSlotFields = []string{
	"lower", "upper", "level", "state", "hash", "touches", "touched",
	"anchor_idx", "created_idx",
}

// DerivedZone materializes retracement/extension levels from the current
// swing anchor as bounded, most-recent-first zone slots. Zone regeneration
// is driven purely by the chosen source version (the pair version by
// default); touch and break tracking runs on every bar regardless.
type DerivedZone struct {
	swing *Swing

	ratios    []float64
	mode      string
	source    string
	widthPct  float64
	breakTol  float64
	maxActive int

	lastSourceVersion int

	zones          []models.Zone
	version        int
	lastCreatedIdx int
}

func newDerivedZone(key string, params Params, deps Deps) (Detector, error) {
	r := newParamReader(key, params)
	ratios := r.Floats("levels", []float64{0.382, 0.5, 0.618})
	mode := r.String("mode", fibModeRetracement)
	source := r.String("source", dzSourcePair)
	widthPct := r.Float("width_pct", 0.5)
	breakTol := r.Float("break_tolerance_pct", 0.0)
	maxActive := r.Int("max_active", 6)
	r.checkUnknown()
	if err := r.Err(); err != nil {
		return nil, err
	}

	switch mode {
	case fibModeRetracement, fibModeExtension, fibModeExtensionUp, fibModeExtensionDown:
	default:
		return nil, paramRangeError(key, "mode", mode,
			`must be "retracement", "extension", "extension_up" or "extension_down"`,
			`mode = "retracement"`)
	}
	switch source {
	case dzSourcePair, dzSourcePivot:
	default:
		return nil, paramRangeError(key, "source", source,
			`must be "pair" or "pivot"`, `source = "pair"`)
	}
	if mode == fibModeExtension && source != dzSourcePair {
		return nil, paramRangeError(key, "source", source,
			`mode "extension" selects its projection side from the pair direction and requires source = "pair"`,
			`source = "pair"`)
	}
	if len(ratios) == 0 {
		return nil, paramRangeError(key, "levels", ratios,
			"at least one ratio is required", "levels = [0.382, 0.5, 0.618]")
	}
	if widthPct <= 0 {
		return nil, paramRangeError(key, "width_pct", widthPct,
			"must be positive", "width_pct = 0.5")
	}
	if breakTol < 0 {
		return nil, paramRangeError(key, "break_tolerance_pct", breakTol,
			"must be non-negative", "break_tolerance_pct = 0.1")
	}
	if maxActive < len(ratios) {
		return nil, paramRangeError(key, "max_active", maxActive,
			"must hold at least one full level set", "max_active = 6")
	}

	sw, err := swingDep(key, deps)
	if err != nil {
		return nil, err
	}
	return &DerivedZone{
		swing:          sw,
		ratios:         ratios,
		mode:           mode,
		source:         source,
		widthPct:       widthPct,
		breakTol:       breakTol,
		maxActive:      maxActive,
		lastCreatedIdx: -1,
	}, nil
}

// sourceState reads the anchor and its version from the configured source.
func (d *DerivedZone) sourceState() (high, low models.Pivot, dir models.PairDirection, version int, ok bool) {
	if d.source == dzSourcePair {
		pair, ver := d.swing.Pair()
		if ver == 0 {
			return models.Pivot{}, models.Pivot{}, models.PairNone, 0, false
		}
		return pair.High, pair.Low, pair.Direction, ver, true
	}

	hp, hasHigh := d.swing.HighPivot()
	lp, hasLow := d.swing.LowPivot()
	if !hasHigh || !hasLow {
		return models.Pivot{}, models.Pivot{}, models.PairNone, 0, false
	}
	total, _, _ := d.swing.Versions()
	return hp, lp, models.PairNone, total, true
}

// Update regenerates zone slots on a source-version change and advances
// touch/break state for every retained zone.
func (d *DerivedZone) Update(bar models.Bar) {
	high, low, dir, srcVer, ok := d.sourceState()
	if ok && srcVer != d.lastSourceVersion {
		d.lastSourceVersion = srcVer
		d.generate(high, low, dir, srcVer, bar.Idx)
	}

	for i := range d.zones {
		d.zones[i].Touch(bar)
		if d.zones[i].Break(bar, d.breakTol) {
			d.version++
		}
	}
}

// generate prepends one zone per configured ratio and truncates the list to
// maxActive, discarding the oldest.
func (d *DerivedZone) generate(high, low models.Pivot, dir models.PairDirection, srcVer, barIdx int) {
	rng := high.Level - low.Level

	fresh := make([]models.Zone, 0, len(d.ratios))
	for _, ratio := range d.ratios {
		eff := d.effectiveRatio(ratio, dir)
		level := high.Level - eff*rng
		if math.IsNaN(level) {
			continue
		}
		id := shortHash(srcVer, high.Idx, low.Idx, ratio, d.mode)
		fresh = append(fresh, models.NewZone(id, models.ZoneDerived, level, d.widthPct, high.Idx, barIdx))
	}

	d.zones = append(fresh, d.zones...)
	if len(d.zones) > d.maxActive {
		d.zones = d.zones[:d.maxActive]
	}
	d.version += len(fresh)
	d.lastCreatedIdx = barIdx
}

func (d *DerivedZone) effectiveRatio(ratio float64, dir models.PairDirection) float64 {
	switch d.mode {
	case fibModeExtensionUp:
		return -ratio
	case fibModeExtensionDown:
		return 1 + ratio
	case fibModeExtension:
		if dir == models.PairBearish {
			return 1 + ratio
		}
		return -ratio
	}
	return ratio
}

// Value returns one of the per-slot or aggregate outputs.
func (d *DerivedZone) Value(key string) (models.Value, error) {
	if slot, field, ok := parseSlotKey(key); ok && slot < d.maxActive {
		if v, ok := slotValue(d.zones, slot, field); ok {
			return v, nil
		}
	}

	switch key {
	case "active_count":
		active, _, _ := countByState(d.zones)
		return models.IntValue(active), nil
	case "broken_count":
		_, broken, _ := countByState(d.zones)
		return models.IntValue(broken), nil
	case "any_touched":
		_, _, touched := countByState(d.zones)
		return models.BoolValue(touched), nil
	case "first_active_lower":
		if z := firstActive(d.zones); z != nil {
			return models.FloatValue(z.Lower), nil
		}
		return models.EmptyFloat(), nil
	case "first_active_upper":
		if z := firstActive(d.zones); z != nil {
			return models.FloatValue(z.Upper), nil
		}
		return models.EmptyFloat(), nil
	case "last_created_idx":
		return models.IntValue(d.lastCreatedIdx), nil
	case "version":
		return models.IntValue(d.version), nil
	}
	return models.Value{}, keyError(key, d.OutputKeys())
}

// OutputKeys lists every valid output key.
func (d *DerivedZone) OutputKeys() []string {
	keys := slotKeys(d.maxActive, derivedZoneSlotFields)
	return append(keys,
		"active_count", "broken_count", "any_touched",
		"first_active_lower", "first_active_upper",
		"last_created_idx", "version")
}
