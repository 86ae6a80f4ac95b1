package state

import (
	"fmt"
	"strings"

	"github.com/plife507/TRADE-sub002/internal/errors"
	"github.com/plife507/TRADE-sub002/internal/models"
	"github.com/plife507/TRADE-sub002/internal/structure"
)

// highTFPrefix prefixes higher-timeframe names in value paths.
const highTFPrefix = "high_tf_"

// HighTFConfig names one higher timeframe and its detector specs.
type HighTFConfig struct {
	Name      string
	Timeframe models.Timeframe
	Specs     []structure.Spec
}

// MultiTFState composes one execution-timeframe state with zero or more
// higher-timeframe states. Higher-timeframe values forward-fill between
// closes simply because their state is only advanced when the caller
// supplies a newly closed bar for that timeframe.
//
// A MultiTFState is not safe for concurrent use; run one instance per
// symbol and they are fully independent.
type MultiTFState struct {
	exec      *TFState
	highTFs   map[string]*TFState
	highOrder []string
}

// NewMultiTFState builds the execution state and every configured higher
// timeframe.
func NewMultiTFState(registry *structure.Registry, execTF models.Timeframe, execSpecs []structure.Spec, highTFs []HighTFConfig) (*MultiTFState, error) {
	exec, err := NewTFState(registry, execTF, execSpecs)
	if err != nil {
		return nil, errors.Wrap(err, "building exec timeframe")
	}

	m := &MultiTFState{
		exec:    exec,
		highTFs: make(map[string]*TFState, len(highTFs)),
	}
	for _, cfg := range highTFs {
		if cfg.Name == "" {
			return nil, errors.NewParamError("multi_tf", "name", nil,
				"every higher timeframe needs a name", `name = "1h"`)
		}
		if _, dup := m.highTFs[cfg.Name]; dup {
			return nil, &errors.DuplicateKeyError{Key: highTFPrefix + cfg.Name, Timeframe: string(cfg.Timeframe)}
		}
		st, err := NewTFState(registry, cfg.Timeframe, cfg.Specs)
		if err != nil {
			return nil, errors.Wrapf(err, "building higher timeframe %q", cfg.Name)
		}
		m.highTFs[cfg.Name] = st
		m.highOrder = append(m.highOrder, cfg.Name)
	}
	return m, nil
}

// UpdateExec advances the execution timeframe; call it on every closed
// execution bar.
func (m *MultiTFState) UpdateExec(bar models.Bar) error {
	return m.exec.Update(bar)
}

// UpdateHighTF advances one higher timeframe; call it only when that
// timeframe's bar closes.
func (m *MultiTFState) UpdateHighTF(name string, bar models.Bar) error {
	st, ok := m.highTFs[name]
	if !ok {
		return errors.NewKeyError("timeframe", name, m.highOrder)
	}
	return st.Update(bar)
}

// Value resolves a three-part dotted path: "exec.<key>.<output>" or
// "high_tf_<name>.<key>.<output>".
func (m *MultiTFState) Value(path string) (models.Value, error) {
	parts := strings.Split(path, ".")
	if len(parts) != 3 {
		return models.Value{}, &errors.PathError{Path: path,
			Message: fmt.Sprintf("expected 3 dot-separated parts, got %d", len(parts))}
	}
	tfPart, detKey, outKey := parts[0], parts[1], parts[2]
	if tfPart == "" || detKey == "" || outKey == "" {
		return models.Value{}, &errors.PathError{Path: path, Message: "empty path segment"}
	}

	st, err := m.resolveTF(tfPart)
	if err != nil {
		return models.Value{}, err
	}
	return st.Value(detKey, outKey)
}

// resolveTF maps the first path segment to a timeframe state.
func (m *MultiTFState) resolveTF(tfPart string) (*TFState, error) {
	if tfPart == "exec" {
		return m.exec, nil
	}
	if strings.HasPrefix(tfPart, highTFPrefix) {
		name := tfPart[len(highTFPrefix):]
		st, ok := m.highTFs[name]
		if !ok {
			return nil, errors.NewKeyError("timeframe", name, m.highOrder)
		}
		return st, nil
	}
	valid := make([]string, 0, 1+len(m.highOrder))
	valid = append(valid, "exec")
	for _, name := range m.highOrder {
		valid = append(valid, highTFPrefix+name)
	}
	return nil, errors.NewKeyError("timeframe", tfPart, valid)
}

// Exec exposes the execution-timeframe state.
func (m *MultiTFState) Exec() *TFState {
	return m.exec
}

// HighTFNames returns the configured higher-timeframe names in build order.
func (m *MultiTFState) HighTFNames() []string {
	out := make([]string, len(m.highOrder))
	copy(out, m.highOrder)
	return out
}

// ListAllPaths enumerates every valid value path, for discovery and
// debugging.
func (m *MultiTFState) ListAllPaths() []string {
	var paths []string
	appendTF := func(prefix string, st *TFState) {
		for _, key := range st.Keys() {
			outs, _ := st.OutputKeys(key)
			for _, out := range outs {
				paths = append(paths, prefix+"."+key+"."+out)
			}
		}
	}

	appendTF("exec", m.exec)
	for _, name := range m.highOrder {
		appendTF(highTFPrefix+name, m.highTFs[name])
	}
	return paths
}
