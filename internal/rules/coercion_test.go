// internal/rules/coercion_test.go
package rules

import (
	"encoding/json"
	"math"
	"testing"
)

func TestToFloat64(t *testing.T) {
	tests := []struct {
		name   string
		input  any
		want   float64
		wantOK bool
	}{
		{"float64", 3.5, 3.5, true},
		{"float32", float32(2), 2, true},
		{"int", 7, 7, true},
		{"int32", int32(-4), -4, true},
		{"int64", int64(1 << 40), float64(1 << 40), true},
		{"json number", json.Number("12.25"), 12.25, true},
		{"invalid json number", json.Number("x"), 0, false},
		{"numeric string", "42", 42, true},
		{"padded numeric string", "  -1.5 ", -1.5, true},
		{"exponent string", "1e3", 1000, true},
		{"empty string", "", 0, false},
		{"blank string", "   ", 0, false},
		{"text", "abc", 0, false},
		{"nan string", "NaN", 0, false},
		{"nan float", math.NaN(), 0, false},
		{"bool", true, 0, false},
		{"nil", nil, 0, false},
		{"slice", []any{1}, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := toFloat64(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("toFloat64(%#v) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("toFloat64(%#v) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestToText(t *testing.T) {
	tests := []struct {
		input any
		want  string
	}{
		{nil, ""},
		{"abc", "abc"},
		{float64(3), "3"},
		{2.5, "2.5"},
		{float32(0.5), "0.5"},
		{7, "7"},
		{int64(-9), "-9"},
		{json.Number("1.10"), "1.10"},
		{true, "true"},
		{false, "false"},
	}

	for _, tt := range tests {
		if got := toText(tt.input); got != tt.want {
			t.Errorf("toText(%#v) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestAsSlice(t *testing.T) {
	tests := []struct {
		name    string
		input   any
		wantLen int
		wantOK  bool
	}{
		{"any slice", []any{"a", 1}, 2, true},
		{"string slice", []string{"a", "b", "c"}, 3, true},
		{"float slice", []float64{1}, 1, true},
		{"int slice", []int{}, 0, true},
		{"string", "abc", 0, false},
		{"map", map[string]any{"a": 1}, 0, false},
		{"nil", nil, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := asSlice(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("asSlice ok = %v, want %v", ok, tt.wantOK)
			}
			if len(got) != tt.wantLen {
				t.Errorf("len = %d, want %d", len(got), tt.wantLen)
			}
		})
	}
}

func TestIsEmpty(t *testing.T) {
	empty := []any{nil, "", " \t\n", []any{}, []string{}, map[string]any{}}
	for _, v := range empty {
		if !isEmpty(v) {
			t.Errorf("isEmpty(%#v) = false, want true", v)
		}
	}

	present := []any{"x", 0, 0.0, false, []any{nil}, map[string]any{"a": nil}}
	for _, v := range present {
		if isEmpty(v) {
			t.Errorf("isEmpty(%#v) = true, want false", v)
		}
	}
}
