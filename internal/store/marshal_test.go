package store

import (
	"math"
	"testing"
)

func TestMarshalArgs_Empty(t *testing.T) {
	for _, args := range [][]any{nil, {}} {
		json, err := marshalArgs(args)
		if err != nil {
			t.Fatalf("marshalArgs() failed: %v", err)
		}
		if json != "[]" {
			t.Errorf("marshalArgs(%v) = %q, want %q", args, json, "[]")
		}
	}
}

func TestMarshalArgs_NormalizesValues(t *testing.T) {
	json, err := marshalArgs([]any{5, int64(6), 1.5, "a<b", true, nil, []byte("raw")})
	if err != nil {
		t.Fatalf("marshalArgs() failed: %v", err)
	}

	// HTML escaping is disabled, so '<' is kept as is.
	expected := `[5,6,1.5,"a<b",true,null,"raw"]`
	if json != expected {
		t.Errorf("marshalArgs() = %q, want %q", json, expected)
	}
}

func TestMarshalArgs_RejectsNaN(t *testing.T) {
	if _, err := marshalArgs([]any{math.NaN()}); err == nil {
		t.Error("expected error for NaN argument")
	}
}

func TestUnmarshalArgs_RoundTrip(t *testing.T) {
	args, err := unmarshalArgs(`[9007199254740993,2.5,"x",false,null]`)
	if err != nil {
		t.Fatalf("unmarshalArgs() failed: %v", err)
	}

	want := []any{int64(9007199254740993), 2.5, "x", false, nil}
	if len(args) != len(want) {
		t.Fatalf("got %d args, want %d", len(args), len(want))
	}
	for i := range want {
		if args[i] != want[i] {
			t.Errorf("arg %d = %#v, want %#v", i, args[i], want[i])
		}
	}
}

func TestUnmarshalArgs_Empty(t *testing.T) {
	args, err := unmarshalArgs("")
	if err != nil {
		t.Fatalf("unmarshalArgs() failed: %v", err)
	}
	if args == nil || len(args) != 0 {
		t.Errorf("unmarshalArgs(\"\") = %#v, want empty slice", args)
	}
}

func TestUnmarshalArgs_Invalid(t *testing.T) {
	if _, err := unmarshalArgs(`{"not":"a list"}`); err == nil {
		t.Error("expected error for non-array JSON")
	}
}
