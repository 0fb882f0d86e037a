package model

import (
	"encoding/json"
	"testing"
)

func TestValue_JSONRoundTrip(t *testing.T) {
	call := Map(map[string]Value{
		"kind":    String("strike_call"),
		"pitch":   Number(3),
		"swing":   Bool(false),
		"corners": List(String("low"), String("outside")),
	})

	data, err := json.Marshal(call)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded Value
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	m, ok := decoded.AsMap()
	if !ok {
		t.Fatalf("want map, got kind %v", decoded.Kind())
	}
	if kind, _ := m["kind"].AsString(); kind != "strike_call" {
		t.Errorf("kind = %q, want strike_call", kind)
	}
	if pitch, _ := m["pitch"].AsNumber(); pitch != 3 {
		t.Errorf("pitch = %v, want 3", pitch)
	}
	if swing, _ := m["swing"].AsBool(); swing != false {
		t.Errorf("swing = %v, want false", swing)
	}
	corners, ok := m["corners"].AsList()
	if !ok || len(corners) != 2 {
		t.Fatalf("corners = %v, want 2 entries", corners)
	}
	if v, _ := corners[1].AsString(); v != "outside" {
		t.Errorf("corners[1] = %q, want outside", v)
	}
}

func TestValue_AccessorsRejectWrongKind(t *testing.T) {
	v := Number(42)
	if _, ok := v.AsString(); ok {
		t.Error("number should not read as string")
	}
	if _, ok := v.AsMap(); ok {
		t.Error("number should not read as map")
	}
	if n, ok := v.AsNumber(); !ok || n != 42 {
		t.Errorf("AsNumber = %v, %v", n, ok)
	}
}

func TestValue_EmptyMapIsNotAbsent(t *testing.T) {
	// An empty payload is still a value; absence is modeled by the
	// session field being removed, not by an empty Value.
	v := Map(map[string]Value{})
	m, ok := v.AsMap()
	if !ok {
		t.Fatal("empty map should still be map kind")
	}
	if len(m) != 0 {
		t.Fatalf("want empty map, got %v", m)
	}
}

func TestFromInterface_Unsupported(t *testing.T) {
	if _, err := FromInterface(struct{}{}); err == nil {
		t.Fatal("expected error for unsupported type")
	}
}

func TestScoreField_Valid(t *testing.T) {
	if !FieldBalls.Valid() {
		t.Error("balls should be a valid field")
	}
	if ScoreField("battingAverage").Valid() {
		t.Error("unknown field should be invalid")
	}
}
