package structure

import (
	"github.com/plife507/TRADE-sub002/internal/models"
)

// Pivot-zone kinds.
const (
	zoneKindDemand = "demand"
	zoneKindSupply = "supply"
	zoneKindBoth   = "both"
)

var pivotZoneSlotFields = []string{
	"lower", "upper", "state", "kind", "touches", "touched", "anchor_idx",
}

// PivotZone materializes demand zones under confirmed swing lows and supply
// zones above confirmed swing highs. A bounded, most-recent-first list of
// zones is kept; every zone's touch and break state updates on every bar,
// independent of zone creation.
type PivotZone struct {
	swing *Swing

	kind      string
	widthPct  float64
	breakTol  float64
	maxActive int

	lastHighVersion int
	lastLowVersion  int

	zones   []models.Zone
	version int
}

func newPivotZone(key string, params Params, deps Deps) (Detector, error) {
	r := newParamReader(key, params)
	kind := r.String("kind", zoneKindBoth)
	widthPct := r.Float("width_pct", 0.5)
	breakTol := r.Float("break_tolerance_pct", 0.0)
	maxActive := r.Int("max_active", 3)
	r.checkUnknown()
	if err := r.Err(); err != nil {
		return nil, err
	}

	switch kind {
	case zoneKindDemand, zoneKindSupply, zoneKindBoth:
	default:
		return nil, paramRangeError(key, "kind", kind,
			`must be "demand", "supply" or "both"`, `kind = "demand"`)
	}
	if widthPct <= 0 {
		return nil, paramRangeError(key, "width_pct", widthPct,
			"must be positive", "width_pct = 0.5")
	}
	if breakTol < 0 {
		return nil, paramRangeError(key, "break_tolerance_pct", breakTol,
			"must be non-negative", "break_tolerance_pct = 0.1")
	}
	if maxActive < 1 {
		return nil, paramRangeError(key, "max_active", maxActive,
			"must be at least 1", "max_active = 3")
	}

	sw, err := swingDep(key, deps)
	if err != nil {
		return nil, err
	}
	return &PivotZone{
		swing:     sw,
		kind:      kind,
		widthPct:  widthPct,
		breakTol:  breakTol,
		maxActive: maxActive,
	}, nil
}

// Update creates zones for newly confirmed pivots, then advances every
// retained zone's touch/break state against the bar.
func (d *PivotZone) Update(bar models.Bar) {
	_, highV, lowV := d.swing.Versions()

	if highV != d.lastHighVersion {
		d.lastHighVersion = highV
		if d.kind != zoneKindDemand {
			if hp, ok := d.swing.HighPivot(); ok {
				d.addZone(models.ZoneSupply, hp, bar.Idx)
			}
		}
	}
	if lowV != d.lastLowVersion {
		d.lastLowVersion = lowV
		if d.kind != zoneKindSupply {
			if lp, ok := d.swing.LowPivot(); ok {
				d.addZone(models.ZoneDemand, lp, bar.Idx)
			}
		}
	}

	for i := range d.zones {
		d.zones[i].Touch(bar)
		if d.zones[i].Break(bar, d.breakTol) {
			d.version++
		}
	}
}

// addZone prepends a zone and truncates the list to maxActive, discarding
// the oldest.
func (d *PivotZone) addZone(kind models.ZoneKind, pivot models.Pivot, createdIdx int) {
	id := shortHash(string(kind), pivot.Idx, pivot.Level)
	z := models.NewZone(id, kind, pivot.Level, d.widthPct, pivot.Idx, createdIdx)
	d.zones = append([]models.Zone{z}, d.zones...)
	if len(d.zones) > d.maxActive {
		d.zones = d.zones[:d.maxActive]
	}
	d.version++
}

// Value returns one of the per-slot or aggregate outputs.
func (d *PivotZone) Value(key string) (models.Value, error) {
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
	case "version":
		return models.IntValue(d.version), nil
	}
	return models.Value{}, keyError(key, d.OutputKeys())
}

// OutputKeys lists every valid output key.
func (d *PivotZone) OutputKeys() []string {
	keys := slotKeys(d.maxActive, pivotZoneSlotFields)
	return append(keys,
		"active_count", "broken_count", "any_touched",
		"first_active_lower", "first_active_upper", "version")
}
