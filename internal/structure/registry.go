package structure

import (
	"github.com/plife507/TRADE-sub002/internal/errors"
)

// Dependency role names.
const (
	RoleSwing = "swing"
)

// Registered detector type names.
const (
	TypeRollingWindow   = "rolling_window"
	TypeSwing           = "swing"
	TypeTrend           = "trend"
	TypeZone            = "zone"
	TypeFibonacci       = "fibonacci"
	TypeMarketStructure = "market_structure"
	TypeDerivedZone     = "derived_zone"
)

// KindInfo describes one registered detector kind: its parameter and
// dependency metadata plus the validating factory.
type KindInfo struct {
	Type           string
	RequiredParams []string
	OptionalParams map[string]interface{}
	DepRoles       []string
	New            func(key string, params Params, deps Deps) (Detector, error)
}

// Registry maps detector type names to their kind info. It is an explicit,
// test-constructible object built once at startup from a static table; there
// is no global mutable registration.
type Registry struct {
	kinds map[string]KindInfo
	order []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{kinds: make(map[string]KindInfo)}
}

// NewDefaultRegistry creates a registry with every built-in detector kind.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	for _, info := range builtinKinds() {
		r.Register(info)
	}
	return r
}

// Register adds a detector kind. Later registrations of the same type name
// replace earlier ones.
func (r *Registry) Register(info KindInfo) {
	if _, exists := r.kinds[info.Type]; !exists {
		r.order = append(r.order, info.Type)
	}
	r.kinds[info.Type] = info
}

// Kinds returns the registered type names in registration order.
func (r *Registry) Kinds() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Info returns the metadata for a registered type.
func (r *Registry) Info(typeName string) (KindInfo, error) {
	info, ok := r.kinds[typeName]
	if !ok {
		return KindInfo{}, &errors.UnknownTypeError{Type: typeName, Registered: r.Kinds()}
	}
	return info, nil
}

// Build validates a spec against the kind's metadata and constructs the
// detector. It checks required parameters and declared dependency roles
// before invoking the kind factory, which performs value-level validation.
func (r *Registry) Build(spec Spec, deps Deps) (Detector, error) {
	info, err := r.Info(spec.Type)
	if err != nil {
		return nil, err
	}

	for _, req := range info.RequiredParams {
		if _, ok := spec.Params[req]; !ok {
			return nil, errors.NewParamError(spec.Key, req, nil,
				"required parameter is missing", req+" = ...")
		}
	}

	for _, role := range info.DepRoles {
		if _, ok := deps[role]; !ok {
			return nil, errors.NewDependencyError(spec.Key, role, spec.DependsOn[role],
				"dependency role not supplied")
		}
	}

	return info.New(spec.Key, spec.Params, deps)
}

// builtinKinds is the static table of every detector kind this package
// ships. Construction order here is arbitrary; execution order is fixed by
// the spec list handed to the state container.
func builtinKinds() []KindInfo {
	return []KindInfo{
		{
			Type:           TypeRollingWindow,
			RequiredParams: []string{"window"},
			OptionalParams: map[string]interface{}{},
			New:            newRollingWindow,
		},
		{
			Type:           TypeSwing,
			RequiredParams: nil,
			OptionalParams: map[string]interface{}{
				"mode":               "fractal",
				"left":               2,
				"right":              2,
				"atr_multiplier":     2.0,
				"atr_key":            "atr",
				"major_threshold":    1.5,
				"min_atr_move":       0.0,
				"min_pct_move":       0.0,
				"strict_alternation": false,
			},
			New: newSwing,
		},
		{
			Type:           TypeTrend,
			RequiredParams: nil,
			OptionalParams: map[string]interface{}{
				"wave_history": 4,
			},
			DepRoles: []string{RoleSwing},
			New:      newTrend,
		},
		{
			Type:           TypeZone,
			RequiredParams: nil,
			OptionalParams: map[string]interface{}{
				"kind":                "both",
				"width_pct":           0.5,
				"break_tolerance_pct": 0.0,
				"max_active":          3,
			},
			DepRoles: []string{RoleSwing},
			New:      newPivotZone,
		},
		{
			Type:           TypeFibonacci,
			RequiredParams: nil,
			OptionalParams: map[string]interface{}{
				"levels":            []float64{0.0, 0.236, 0.382, 0.5, 0.618, 0.786, 1.0},
				"mode":              "retracement",
				"use_paired_anchor": true,
			},
			DepRoles: []string{RoleSwing},
			New:      newFibonacci,
		},
		{
			Type:           TypeMarketStructure,
			RequiredParams: nil,
			OptionalParams: map[string]interface{}{
				"confirmation_close": false,
			},
			DepRoles: []string{RoleSwing},
			New:      newMarketStructure,
		},
		{
			Type:           TypeDerivedZone,
			RequiredParams: nil,
			OptionalParams: map[string]interface{}{
				"levels":              []float64{0.382, 0.5, 0.618},
				"mode":                "retracement",
				"width_pct":           0.5,
				"break_tolerance_pct": 0.0,
				"max_active":          6,
				"source":              "pair",
			},
			DepRoles: []string{RoleSwing},
			New:      newDerivedZone,
		},
	}
}
