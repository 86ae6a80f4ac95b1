package models

// ZoneState is the lifecycle state of a price zone. Transitions only move
// forward: NONE -> ACTIVE -> BROKEN.
type ZoneState string

const (
	ZoneStateNone   ZoneState = "none"
	ZoneStateActive ZoneState = "active"
	ZoneStateBroken ZoneState = "broken"
)

// ZoneKind distinguishes pivot-anchored demand/supply zones from zones
// derived from retracement or extension levels.
type ZoneKind string

const (
	ZoneDemand  ZoneKind = "demand"
	ZoneSupply  ZoneKind = "supply"
	ZoneDerived ZoneKind = "derived"
)

// Zone is a [Lower, Upper] price band with touch and break tracking.
type Zone struct {
	ID         string
	Kind       ZoneKind
	State      ZoneState
	Lower      float64
	Upper      float64
	Level      float64 // anchor price the band was built around
	AnchorIdx  int
	CreatedIdx int
	TouchCount int
	TouchedBar bool // touched on the most recent bar
	BrokenIdx  int
}

// NewZone creates an active zone as a band of width level*widthPct/100
// centered on level.
func NewZone(id string, kind ZoneKind, level float64, widthPct float64, anchorIdx, createdIdx int) Zone {
	half := level * widthPct / 200.0
	if half < 0 {
		half = -half
	}
	return Zone{
		ID:         id,
		Kind:       kind,
		State:      ZoneStateActive,
		Lower:      level - half,
		Upper:      level + half,
		Level:      level,
		AnchorIdx:  anchorIdx,
		CreatedIdx: createdIdx,
		BrokenIdx:  -1,
	}
}

// Contains reports whether the bar's range overlaps the band.
func (z *Zone) Contains(bar Bar) bool {
	return bar.Low <= z.Upper && bar.High >= z.Lower
}

// Touch updates the per-bar touched flag and the cumulative touch counter.
// It must be called once per bar for every live zone.
func (z *Zone) Touch(bar Bar) {
	z.TouchedBar = false
	if z.State != ZoneStateActive {
		return
	}
	if z.Contains(bar) {
		z.TouchedBar = true
		z.TouchCount++
	}
}

// Break transitions the zone to BROKEN when the close exits the band beyond
// tolPct percent of the crossed boundary. Zones never break on their own
// creation bar, and a broken zone never reactivates. The directional kinds
// only break through their defended boundary: demand below Lower, supply
// above Upper. Derived zones break through either boundary.
// Returns true on the bar the break occurs.
func (z *Zone) Break(bar Bar, tolPct float64) bool {
	if z.State != ZoneStateActive || bar.Idx == z.CreatedIdx {
		return false
	}
	tol := tolPct / 100.0
	brokeDown := bar.Close < z.Lower-absf(z.Lower)*tol
	brokeUp := bar.Close > z.Upper+absf(z.Upper)*tol

	broken := false
	switch z.Kind {
	case ZoneDemand:
		broken = brokeDown
	case ZoneSupply:
		broken = brokeUp
	default:
		broken = brokeDown || brokeUp
	}
	if broken {
		z.State = ZoneStateBroken
		z.BrokenIdx = bar.Idx
	}
	return broken
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
