package preset

import (
	"encoding/json"
	"errors"
	"testing"
)

// =============================================================================
// Registration Tests
// =============================================================================

func TestRegister_Duplicate(t *testing.T) {
	r := NewActionRegistry()

	if err := r.Register("custom.type", buildWhiteSwell, reverseWhiteSwell); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	err := r.Register("custom.type", buildWhiteSwell, reverseWhiteSwell)
	if !errors.Is(err, ErrDuplicateType) {
		t.Errorf("Register() error = %v, want ErrDuplicateType", err)
	}
}

func TestBuild_StampsType(t *testing.T) {
	r := NewDefaultRegistry()

	action, err := r.Build(TypeWhiteSwell, "node-a1", 0, 200, []float64{0, 200})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if action.Type != TypeWhiteSwell {
		t.Errorf("Type = %q, want %q", action.Type, TypeWhiteSwell)
	}
	if action.Module != ModuleWhite {
		t.Errorf("Module = %q, want %q", action.Module, ModuleWhite)
	}
}

func TestBuild_UnknownType(t *testing.T) {
	r := NewDefaultRegistry()

	_, err := r.Build("no.such.type", "node-a1", 0, 200, nil)
	if !errors.Is(err, ErrUnknownType) {
		t.Errorf("Build() error = %v, want ErrUnknownType", err)
	}
}

// =============================================================================
// Reversal Tests
// =============================================================================

func TestReverse_MissingType(t *testing.T) {
	r := NewDefaultRegistry()

	inert := Action{Node: "node-a1", Module: ModuleRGB, Effect: "breathe", Brightness: 128}
	_, err := r.Reverse(inert)
	if !errors.Is(err, ErrMissingType) {
		t.Errorf("Reverse() error = %v, want ErrMissingType", err)
	}
}

func TestReverse_UnknownType(t *testing.T) {
	r := NewDefaultRegistry()

	action := Action{Node: "node-a1", Module: ModuleWS, Effect: "solid", Type: "retired.type"}
	_, err := r.Reverse(action)
	if !errors.Is(err, ErrUnknownType) {
		t.Errorf("Reverse() error = %v, want ErrUnknownType", err)
	}
}

func TestReverseWhiteSwell_RoundTrip(t *testing.T) {
	r := NewDefaultRegistry()

	original, err := r.Build(TypeWhiteSwell, "node-a1", 1, 200, []float64{0, 200})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	reversed, err := r.Reverse(original)
	if err != nil {
		t.Fatalf("Reverse() error = %v", err)
	}
	if reversed.Params[0] != 200 || reversed.Params[1] != 0 {
		t.Errorf("reversed params = %v, want [200 0]", reversed.Params)
	}

	// Reversing twice must restore the original swell direction.
	restored, err := r.Reverse(reversed)
	if err != nil {
		t.Fatalf("second Reverse() error = %v", err)
	}
	if restored.Params[0] != original.Params[0] || restored.Params[1] != original.Params[1] {
		t.Errorf("round-trip params = %v, want %v", restored.Params, original.Params)
	}

	// The input must not be mutated by reversal.
	if original.Params[0] != 0 || original.Params[1] != 200 {
		t.Errorf("original was mutated: %v", original.Params)
	}
}

func TestReverseWSSolid_DefaultsToOff(t *testing.T) {
	r := NewDefaultRegistry()

	warm := []float64{255, 180, 90}
	original, err := r.Build(TypeWSSolid, "node-a1", 0, 220, warm)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	reversed, err := r.Reverse(original)
	if err != nil {
		t.Fatalf("Reverse() error = %v", err)
	}
	if reversed.Brightness != 0 {
		t.Errorf("reversed brightness = %d, want 0", reversed.Brightness)
	}
	for i, v := range reversed.Params {
		if v != 0 {
			t.Errorf("reversed params[%d] = %v, want 0 (black)", i, v)
		}
	}
}

func TestReverseWSSolid_RoundTrip(t *testing.T) {
	r := NewDefaultRegistry()

	warm := []float64{255, 180, 90}
	original, err := r.Build(TypeWSSolid, "node-a1", 0, 220, warm)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	reversed, err := r.Reverse(original)
	if err != nil {
		t.Fatalf("Reverse() error = %v", err)
	}

	restored, err := r.Reverse(reversed)
	if err != nil {
		t.Fatalf("second Reverse() error = %v", err)
	}
	if restored.Brightness != 220 {
		t.Errorf("round-trip brightness = %d, want 220", restored.Brightness)
	}
	for i := range warm {
		if restored.Params[i] != warm[i] {
			t.Errorf("round-trip params[%d] = %v, want %v", i, restored.Params[i], warm[i])
		}
	}
}

func TestReverseWSSolid_MetaSurvivesJSON(t *testing.T) {
	r := NewDefaultRegistry()

	original, err := r.Build(TypeWSSolid, "node-a1", 0, 220, []float64{255, 180, 90})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	reversed, err := r.Reverse(original)
	if err != nil {
		t.Fatalf("Reverse() error = %v", err)
	}

	// Presets are persisted as JSON, which turns typed slices in the
	// reverse metadata into []any. Reversal must still work afterwards.
	data, err := json.Marshal(reversed)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var thawed Action
	if err := json.Unmarshal(data, &thawed); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	restored, err := r.Reverse(thawed)
	if err != nil {
		t.Fatalf("Reverse() after JSON round-trip error = %v", err)
	}
	if restored.Brightness != 220 {
		t.Errorf("brightness = %d, want 220", restored.Brightness)
	}
	if restored.Params[0] != 255 {
		t.Errorf("params[0] = %v, want 255", restored.Params[0])
	}
}

func TestReverseActions_SkipsInert(t *testing.T) {
	r := NewDefaultRegistry()

	swell, err := r.Build(TypeWhiteSwell, "node-a1", 0, 200, []float64{0, 200})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	inert := Action{Node: "node-a1", Module: ModuleRGB, Effect: "breathe", Brightness: 100}

	reversed, err := r.ReverseActions([]Action{swell, inert})
	if err != nil {
		t.Fatalf("ReverseActions() error = %v", err)
	}
	if len(reversed) != 1 {
		t.Fatalf("len(reversed) = %d, want 1 (inert skipped)", len(reversed))
	}
	if reversed[0].Type != TypeWhiteSwell {
		t.Errorf("reversed[0].Type = %q, want %q", reversed[0].Type, TypeWhiteSwell)
	}
}

func TestReverseActions_CollectsUnknownTypes(t *testing.T) {
	r := NewDefaultRegistry()

	swell, err := r.Build(TypeWhiteSwell, "node-a1", 0, 200, []float64{0, 200})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	orphan := Action{Node: "node-a1", Module: ModuleWS, Effect: "solid", Type: "retired.type"}

	reversed, err := r.ReverseActions([]Action{orphan, swell})
	if !errors.Is(err, ErrUnknownType) {
		t.Errorf("ReverseActions() error = %v, want ErrUnknownType", err)
	}
	// The reversible remainder is still returned.
	if len(reversed) != 1 {
		t.Errorf("len(reversed) = %d, want 1", len(reversed))
	}
}
