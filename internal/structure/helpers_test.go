package structure

import (
	"testing"

	"github.com/plife507/TRADE-sub002/internal/models"
)

// mkBar builds a bar whose open/close sit inside the [low, high] range.
func mkBar(idx int, high, low float64) models.Bar {
	mid := (high + low) / 2
	return models.Bar{
		Idx:    idx,
		Open:   mid,
		High:   high,
		Low:    low,
		Close:  mid,
		Volume: 1000,
	}
}

// mkBarClose builds a bar with an explicit close.
func mkBarClose(idx int, high, low, close float64) models.Bar {
	return models.Bar{
		Idx:    idx,
		Open:   (high + low) / 2,
		High:   high,
		Low:    low,
		Close:  close,
		Volume: 1000,
	}
}

// withATR stamps a constant ATR indicator value on the bar.
func withATR(bar models.Bar, atr float64) models.Bar {
	bar.Indicators = map[string]float64{"atr": atr}
	return bar
}

// mustSwing builds a swing detector, failing the test on error.
func mustSwing(t *testing.T, params Params) *Swing {
	t.Helper()
	det, err := newSwing("swing_test", params, nil)
	if err != nil {
		t.Fatalf("building swing detector: %v", err)
	}
	return det.(*Swing)
}

// mustDetector builds any registered detector kind with a swing dependency.
func mustDetector(t *testing.T, typeName string, params Params, sw *Swing) Detector {
	t.Helper()
	reg := NewDefaultRegistry()
	deps := Deps{}
	if sw != nil {
		deps[RoleSwing] = sw
	}
	det, err := reg.Build(Spec{Type: typeName, Key: typeName + "_test", Params: params, DependsOn: map[string]string{}}, deps)
	if err != nil {
		t.Fatalf("building %s detector: %v", typeName, err)
	}
	return det
}

// floatOut reads a float output, failing the test on lookup error.
func floatOut(t *testing.T, d Detector, key string) float64 {
	t.Helper()
	v, err := d.Value(key)
	if err != nil {
		t.Fatalf("reading %q: %v", key, err)
	}
	return v.Float()
}

// intOut reads an int output.
func intOut(t *testing.T, d Detector, key string) int {
	t.Helper()
	v, err := d.Value(key)
	if err != nil {
		t.Fatalf("reading %q: %v", key, err)
	}
	return v.Int()
}

// strOut reads a string output.
func strOut(t *testing.T, d Detector, key string) string {
	t.Helper()
	v, err := d.Value(key)
	if err != nil {
		t.Fatalf("reading %q: %v", key, err)
	}
	return v.Str()
}

// boolOut reads a bool output.
func boolOut(t *testing.T, d Detector, key string) bool {
	t.Helper()
	v, err := d.Value(key)
	if err != nil {
		t.Fatalf("reading %q: %v", key, err)
	}
	return v.Bool()
}
