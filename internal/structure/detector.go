// Package structure implements the incremental market-structure engine: the
// detector contract, the registry of detector kinds, and the detector
// algorithms (swing pivots, trend, break of structure, Fibonacci levels,
// demand/supply and derived zones).
//
// Detectors are single-threaded state machines. Each one owns its mutable
// state exclusively and reads its dependencies through read-only references
// fixed at construction. Bars must be fed strictly in increasing index
// order; the state containers in internal/state enforce that.
package structure

import (
	"github.com/spf13/cast"

	"github.com/plife507/TRADE-sub002/internal/errors"
	"github.com/plife507/TRADE-sub002/internal/models"
)

// Detector is one incremental structure detector. Update is called exactly
// once per closed bar, in increasing bar-index order. Value exposes the
// detector's outputs by key; unknown keys return an errors.KeyError listing
// OutputKeys().
type Detector interface {
	Update(bar models.Bar)
	Value(key string) (models.Value, error)
	OutputKeys() []string
}

// Params holds raw detector parameters as decoded from configuration.
type Params map[string]interface{}

// Deps maps dependency roles (e.g. "swing") to already-built detector
// instances.
type Deps map[string]Detector

// Spec describes one detector instance to build: its registered type, the
// unique key it is addressed by, its parameters, and the keys of the
// detectors that fill its dependency roles.
type Spec struct {
	Type      string
	Key       string
	Params    Params
	DependsOn map[string]string // role -> detector key
}

// paramReader validates and coerces raw parameters for one detector
// instance. The first failure sticks; constructors check Err() once after
// reading everything.
type paramReader struct {
	detector string
	params   Params
	seen     map[string]bool
	err      error
}

func newParamReader(detector string, params Params) *paramReader {
	return &paramReader{
		detector: detector,
		params:   params,
		seen:     make(map[string]bool, len(params)),
	}
}

func (r *paramReader) fail(name string, value interface{}, message, example string) {
	if r.err == nil {
		r.err = errors.NewParamError(r.detector, name, value, message, example)
	}
}

// Float reads an optional float parameter, falling back to def.
func (r *paramReader) Float(name string, def float64) float64 {
	r.seen[name] = true
	raw, ok := r.params[name]
	if !ok {
		return def
	}
	v, err := cast.ToFloat64E(raw)
	if err != nil {
		r.fail(name, raw, "expected a number", `major_threshold = 1.5`)
		return def
	}
	return v
}

// Int reads an optional int parameter, falling back to def.
func (r *paramReader) Int(name string, def int) int {
	r.seen[name] = true
	raw, ok := r.params[name]
	if !ok {
		return def
	}
	v, err := cast.ToIntE(raw)
	if err != nil {
		r.fail(name, raw, "expected an integer", `left = 2`)
		return def
	}
	return v
}

// Bool reads an optional bool parameter, falling back to def.
func (r *paramReader) Bool(name string, def bool) bool {
	r.seen[name] = true
	raw, ok := r.params[name]
	if !ok {
		return def
	}
	v, err := cast.ToBoolE(raw)
	if err != nil {
		r.fail(name, raw, "expected a boolean", `strict_alternation = true`)
		return def
	}
	return v
}

// String reads an optional string parameter, falling back to def.
func (r *paramReader) String(name string, def string) string {
	r.seen[name] = true
	raw, ok := r.params[name]
	if !ok {
		return def
	}
	v, err := cast.ToStringE(raw)
	if err != nil {
		r.fail(name, raw, "expected a string", `mode = "fractal"`)
		return def
	}
	return v
}

// Floats reads an optional list-of-float parameter, falling back to def.
func (r *paramReader) Floats(name string, def []float64) []float64 {
	r.seen[name] = true
	raw, ok := r.params[name]
	if !ok {
		return def
	}
	if fs, isFloats := raw.([]float64); isFloats {
		out := make([]float64, len(fs))
		copy(out, fs)
		return out
	}
	slice, err := cast.ToSliceE(raw)
	if err != nil {
		r.fail(name, raw, "expected a list of numbers", `levels = [0.382, 0.5, 0.618]`)
		return def
	}
	out := make([]float64, 0, len(slice))
	for _, item := range slice {
		v, err := cast.ToFloat64E(item)
		if err != nil {
			r.fail(name, raw, "expected a list of numbers", `levels = [0.382, 0.5, 0.618]`)
			return def
		}
		out = append(out, v)
	}
	return out
}

// checkUnknown rejects parameters that no accessor consumed, so typos fail
// at build time instead of silently using a default.
func (r *paramReader) checkUnknown() {
	if r.err != nil {
		return
	}
	for name := range r.params {
		if !r.seen[name] {
			valid := make([]string, 0, len(r.seen))
			for k := range r.seen {
				valid = append(valid, k)
			}
			r.err = errors.NewParamError(r.detector, name, r.params[name],
				"unknown parameter", "remove it or use one of: "+joinSorted(valid))
			return
		}
	}
}

// Err returns the first validation failure, if any.
func (r *paramReader) Err() error {
	return r.err
}

// swingDep resolves the "swing" role to a concrete *Swing instance.
func swingDep(detector string, deps Deps) (*Swing, error) {
	d, ok := deps[RoleSwing]
	if !ok {
		return nil, errors.NewDependencyError(detector, RoleSwing, "",
			"missing dependency: declare depends_on = { swing = \"<swing detector key>\" }")
	}
	sw, ok := d.(*Swing)
	if !ok {
		return nil, errors.NewDependencyError(detector, RoleSwing, "",
			"dependency must be a swing detector")
	}
	return sw, nil
}

// paramRangeError reports an out-of-range parameter value.
func paramRangeError(detector, param string, value interface{}, message, example string) error {
	return errors.NewParamError(detector, param, value, message, example)
}

// keyError builds the standard unknown-output-key error for a detector.
func keyError(key string, valid []string) error {
	return errors.NewKeyError("output key", key, valid)
}
