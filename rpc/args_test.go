package rpc

import (
	"encoding/json"
	"strings"
	"testing"
)

func makeArgs(t *testing.T, values ...any) Args {
	t.Helper()
	raw, err := marshalArguments(values)
	if err != nil {
		t.Fatalf("marshalArguments error: %v", err)
	}
	return Args(raw)
}

func TestArgsTypedAccessors(t *testing.T) {
	args := makeArgs(t, "hello", 42, 2.5, true, []string{"a", "b"})

	if got, err := args.String(0); err != nil || got != "hello" {
		t.Errorf("String(0) = (%q, %v)", got, err)
	}
	if got, err := args.Int(1); err != nil || got != 42 {
		t.Errorf("Int(1) = (%d, %v)", got, err)
	}
	if got, err := args.Float(2); err != nil || got != 2.5 {
		t.Errorf("Float(2) = (%v, %v)", got, err)
	}
	if got, err := args.Bool(3); err != nil || got != true {
		t.Errorf("Bool(3) = (%v, %v)", got, err)
	}
	if got, err := args.StringSlice(4); err != nil || len(got) != 2 || got[0] != "a" {
		t.Errorf("StringSlice(4) = (%v, %v)", got, err)
	}
}

func TestArgsIntTruncatesFloat(t *testing.T) {
	args := makeArgs(t, 3.9)
	if got, err := args.Int(0); err != nil || got != 3 {
		t.Errorf("Int(0) = (%d, %v), want 3", got, err)
	}
}

func TestArgsWrongType(t *testing.T) {
	args := makeArgs(t, "not a number")

	if _, err := args.Int(0); err == nil {
		t.Error("Int on a string should fail")
	}
	if _, err := args.Bool(0); err == nil {
		t.Error("Bool on a string should fail")
	}
}

func TestArgsOutOfRange(t *testing.T) {
	args := makeArgs(t, "only one")

	if _, err := args.String(1); err == nil {
		t.Error("String(1) should fail on one-element args")
	}
	if _, err := args.String(-1); err == nil {
		t.Error("String(-1) should fail")
	}
	if args.Has(1) {
		t.Error("Has(1) should be false")
	}
	if args.Raw(1) != nil {
		t.Error("Raw(1) should be nil")
	}
}

func TestArgsDefaults(t *testing.T) {
	args := makeArgs(t, "text")

	if got := args.StringOr(0, "fallback"); got != "text" {
		t.Errorf("StringOr(0) = %q", got)
	}
	if got := args.StringOr(5, "fallback"); got != "fallback" {
		t.Errorf("StringOr(5) = %q, want fallback", got)
	}
	if got := args.IntOr(0, 7); got != 7 {
		t.Errorf("IntOr on string = %d, want default 7", got)
	}
	if got := args.FloatOr(5, 1.5); got != 1.5 {
		t.Errorf("FloatOr(5) = %v, want 1.5", got)
	}
	if got := args.BoolOr(5, true); got != true {
		t.Errorf("BoolOr(5) = %v, want true", got)
	}
}

func TestArgsDecodeStruct(t *testing.T) {
	type point struct {
		X int `json:"x"`
		Y int `json:"y"`
	}
	args := makeArgs(t, point{X: 1, Y: 2})

	var p point
	if err := args.Decode(0, &p); err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if p.X != 1 || p.Y != 2 {
		t.Errorf("decoded = %+v", p)
	}
}

func TestArgsAny(t *testing.T) {
	args := makeArgs(t, map[string]any{"k": "v"}, nil)

	v, err := args.Any(0)
	if err != nil {
		t.Fatalf("Any error: %v", err)
	}
	m, ok := v.(map[string]any)
	if !ok || m["k"] != "v" {
		t.Errorf("Any(0) = %#v", v)
	}

	v, err = args.Any(1)
	if err != nil || v != nil {
		t.Errorf("Any(1) = (%#v, %v), want nil", v, err)
	}
}

func TestMarshalArgumentsRejectsUnserializable(t *testing.T) {
	_, err := marshalArguments([]any{make(chan int)})
	if err == nil {
		t.Fatal("expected error for a channel argument")
	}
}

func TestMarshalArgumentsEmptyIsArray(t *testing.T) {
	raw, err := marshalArguments(nil)
	if err != nil {
		t.Fatalf("marshalArguments error: %v", err)
	}
	if raw == nil {
		t.Fatal("zero arguments should yield an empty slice, not nil")
	}

	// Peers decoding a strict array must see [], never null.
	data, err := json.Marshal(CallMessage{ClientID: "c", Callback: 1, Arguments: raw})
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	if !strings.Contains(string(data), `"arguments":[]`) {
		t.Errorf("wire form = %s, want an empty arguments array", data)
	}
}

func TestArgsLen(t *testing.T) {
	if got := makeArgs(t).Len(); got != 0 {
		t.Errorf("empty Len = %d", got)
	}
	if got := (Args{json.RawMessage(`1`), json.RawMessage(`2`)}).Len(); got != 2 {
		t.Errorf("Len = %d, want 2", got)
	}
}
