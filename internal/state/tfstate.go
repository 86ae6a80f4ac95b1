// Package state provides the dependency-aware containers that wire
// detectors together: one TFState per timeframe, composed into a MultiTFState
// that exposes every output through dotted value paths.
package state

import (
	"fmt"

	"github.com/plife507/TRADE-sub002/internal/errors"
	"github.com/plife507/TRADE-sub002/internal/models"
	"github.com/plife507/TRADE-sub002/internal/structure"
)

// TFState owns the detectors of one timeframe and drives them in build
// order on every bar. Because a spec may only depend on keys declared
// before it, build order is the dependency order.
type TFState struct {
	timeframe models.Timeframe
	keys      []string
	detectors map[string]structure.Detector
	lastIdx   int
	bars      int
}

// NewTFState resolves the detector specs into built instances. Dependency
// keys referenced in DependsOn must already exist among previously built
// detectors; forward references and duplicate keys are build errors.
func NewTFState(registry *structure.Registry, tf models.Timeframe, specs []structure.Spec) (*TFState, error) {
	s := &TFState{
		timeframe: tf,
		detectors: make(map[string]structure.Detector, len(specs)),
		lastIdx:   -1,
	}

	for _, spec := range specs {
		if spec.Key == "" {
			return nil, errors.NewParamError(spec.Type, "key", nil,
				"every detector spec needs a key", `key = "swing_main"`)
		}
		if _, dup := s.detectors[spec.Key]; dup {
			return nil, &errors.DuplicateKeyError{Key: spec.Key, Timeframe: string(tf)}
		}

		deps := make(structure.Deps, len(spec.DependsOn))
		for role, depKey := range spec.DependsOn {
			dep, ok := s.detectors[depKey]
			if !ok {
				return nil, errors.NewDependencyError(spec.Key, role, depKey,
					fmt.Sprintf("dependency not found among previously built detectors %v: declare it earlier in the spec list", s.keys))
			}
			deps[role] = dep
		}

		det, err := registry.Build(spec, deps)
		if err != nil {
			return nil, err
		}
		s.keys = append(s.keys, spec.Key)
		s.detectors[spec.Key] = det
	}

	return s, nil
}

// Timeframe returns the timeframe this state serves.
func (s *TFState) Timeframe() models.Timeframe {
	return s.timeframe
}

// Update feeds one closed bar through every detector in build order. Bar
// indices must strictly increase.
func (s *TFState) Update(bar models.Bar) error {
	if bar.Idx <= s.lastIdx {
		return &errors.SequenceError{Timeframe: string(s.timeframe), LastIdx: s.lastIdx, GotIdx: bar.Idx}
	}
	s.lastIdx = bar.Idx
	s.bars++

	for _, key := range s.keys {
		s.detectors[key].Update(bar)
	}
	return nil
}

// Value reads one detector output.
func (s *TFState) Value(detectorKey, outputKey string) (models.Value, error) {
	det, ok := s.detectors[detectorKey]
	if !ok {
		return models.Value{}, errors.NewKeyError("detector key", detectorKey, s.Keys())
	}
	return det.Value(outputKey)
}

// Keys returns the detector keys in build order.
func (s *TFState) Keys() []string {
	out := make([]string, len(s.keys))
	copy(out, s.keys)
	return out
}

// OutputKeys returns the output keys of one detector.
func (s *TFState) OutputKeys(detectorKey string) ([]string, error) {
	det, ok := s.detectors[detectorKey]
	if !ok {
		return nil, errors.NewKeyError("detector key", detectorKey, s.Keys())
	}
	return det.OutputKeys(), nil
}

// LastIdx returns the index of the last processed bar, or -1.
func (s *TFState) LastIdx() int {
	return s.lastIdx
}

// BarCount returns the number of bars processed.
func (s *TFState) BarCount() int {
	return s.bars
}
