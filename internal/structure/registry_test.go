package structure

import (
	"testing"

	"github.com/plife507/TRADE-sub002/internal/errors"
)

func TestRegistryKinds(t *testing.T) {
	reg := NewDefaultRegistry()
	want := []string{
		TypeRollingWindow, TypeSwing, TypeTrend, TypeZone,
		TypeFibonacci, TypeMarketStructure, TypeDerivedZone,
	}
	kinds := reg.Kinds()
	if len(kinds) != len(want) {
		t.Fatalf("Kinds() = %v, want %d entries", kinds, len(want))
	}
	seen := make(map[string]bool, len(kinds))
	for _, k := range kinds {
		seen[k] = true
	}
	for _, w := range want {
		if !seen[w] {
			t.Errorf("kind %q not registered", w)
		}
	}
}

func TestRegistryUnknownType(t *testing.T) {
	reg := NewDefaultRegistry()
	_, err := reg.Build(Spec{Type: "swings", Key: "s"}, Deps{})
	if err == nil {
		t.Fatal("expected an error for an unknown type")
	}
	var ute *errors.UnknownTypeError
	if !errors.As(err, &ute) {
		t.Fatalf("error type = %T, want *errors.UnknownTypeError", err)
	}
	if len(ute.Registered) == 0 {
		t.Error("unknown-type error does not list the registered kinds")
	}
}

func TestRegistryMissingRequiredParam(t *testing.T) {
	reg := NewDefaultRegistry()
	_, err := reg.Build(Spec{Type: TypeRollingWindow, Key: "rw", Params: Params{}}, Deps{})
	if err == nil {
		t.Fatal("expected an error for a missing required parameter")
	}
	var pe *errors.ParamError
	if !errors.As(err, &pe) {
		t.Fatalf("error type = %T, want *errors.ParamError", err)
	}
	if pe.Param != "window" {
		t.Errorf("ParamError.Param = %q, want %q", pe.Param, "window")
	}
	if pe.Example == "" {
		t.Error("ParamError carries no example")
	}
}

func TestRegistryMissingDependency(t *testing.T) {
	reg := NewDefaultRegistry()
	_, err := reg.Build(Spec{Type: TypeTrend, Key: "tr", Params: Params{}}, Deps{})
	if err == nil {
		t.Fatal("expected an error for a missing swing dependency")
	}
	var de *errors.DependencyError
	if !errors.As(err, &de) {
		t.Fatalf("error type = %T, want *errors.DependencyError", err)
	}
	if de.Role != RoleSwing {
		t.Errorf("DependencyError.Role = %q, want %q", de.Role, RoleSwing)
	}
}

func TestRegistryBuildsEveryKindWithDefaults(t *testing.T) {
	reg := NewDefaultRegistry()
	sw := mustSwing(t, Params{})

	for _, typeName := range reg.Kinds() {
		params := Params{}
		if typeName == TypeRollingWindow {
			params["window"] = 14
		}
		det, err := reg.Build(Spec{Type: typeName, Key: typeName + "_x", Params: params}, Deps{RoleSwing: sw})
		if err != nil {
			t.Errorf("%s: build with defaults failed: %v", typeName, err)
			continue
		}
		// Every declared output key must resolve without updates, and the
		// key list must be non-empty.
		keys := det.OutputKeys()
		if len(keys) == 0 {
			t.Errorf("%s: no output keys", typeName)
		}
		for _, key := range keys {
			if _, err := det.Value(key); err != nil {
				t.Errorf("%s: Value(%q) before any update: %v", typeName, key, err)
			}
		}
		if _, err := det.Value("definitely_not_a_key"); err == nil {
			t.Errorf("%s: unknown key did not error", typeName)
		}
	}
}
