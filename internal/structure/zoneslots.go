package structure

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/plife507/TRADE-sub002/internal/models"
)

// Zone slots are addressed most-recent-first: zone0_* is the newest zone.
// Unpopulated slots return the empty sentinels instead of erroring.

// parseSlotKey splits "zone3_lower" into (3, "lower"). ok is false when the
// key is not slot-shaped.
func parseSlotKey(key string) (slot int, field string, ok bool) {
	if !strings.HasPrefix(key, "zone") {
		return 0, "", false
	}
	rest := key[len("zone"):]
	sep := strings.IndexByte(rest, '_')
	if sep <= 0 {
		return 0, "", false
	}
	n, err := strconv.Atoi(rest[:sep])
	if err != nil || n < 0 {
		return 0, "", false
	}
	return n, rest[sep+1:], true
}

// slotValue resolves one per-slot field against the zone list.
func slotValue(zones []models.Zone, slot int, field string) (models.Value, bool) {
	var z *models.Zone
	if slot < len(zones) {
		z = &zones[slot]
	}

	switch field {
	case "lower":
		if z == nil {
			return models.EmptyFloat(), true
		}
		return models.FloatValue(z.Lower), true
	case "upper":
		if z == nil {
			return models.EmptyFloat(), true
		}
		return models.FloatValue(z.Upper), true
	case "level":
		if z == nil {
			return models.EmptyFloat(), true
		}
		return models.FloatValue(z.Level), true
	case "state":
		if z == nil {
			return models.EmptyString(), true
		}
		return models.StringValue(string(z.State)), true
	case "kind":
		if z == nil {
			return models.EmptyString(), true
		}
		return models.StringValue(string(z.Kind)), true
	case "hash":
		if z == nil {
			return models.EmptyString(), true
		}
		return models.StringValue(z.ID), true
	case "touches":
		if z == nil {
			return models.EmptyInt(), true
		}
		return models.IntValue(z.TouchCount), true
	case "touched":
		if z == nil {
			return models.EmptyBool(), true
		}
		return models.BoolValue(z.TouchedBar), true
	case "anchor_idx":
		if z == nil {
			return models.EmptyInt(), true
		}
		return models.IntValue(z.AnchorIdx), true
	case "created_idx":
		if z == nil {
			return models.EmptyInt(), true
		}
		return models.IntValue(z.CreatedIdx), true
	}
	return models.Value{}, false
}

// slotKeys expands the per-slot output key set for maxActive slots.
func slotKeys(maxActive int, fields []string) []string {
	keys := make([]string, 0, maxActive*len(fields))
	for i := 0; i < maxActive; i++ {
		for _, f := range fields {
			keys = append(keys, fmt.Sprintf("zone%d_%s", i, f))
		}
	}
	return keys
}

// firstActive returns a pointer to the newest zone still in the ACTIVE
// state, or nil.
func firstActive(zones []models.Zone) *models.Zone {
	for i := range zones {
		if zones[i].State == models.ZoneStateActive {
			return &zones[i]
		}
	}
	return nil
}

// countByState tallies active and broken zones plus the any-touched flag.
func countByState(zones []models.Zone) (active, broken int, anyTouched bool) {
	for i := range zones {
		switch zones[i].State {
		case models.ZoneStateActive:
			active++
		case models.ZoneStateBroken:
			broken++
		}
		if zones[i].TouchedBar {
			anyTouched = true
		}
	}
	return
}
