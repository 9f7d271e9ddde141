package audiocapture

import (
	"math"
	"testing"
)

func TestConvertIdentity(t *testing.T) {
	for _, v := range []int8{-128, -1, 0, 1, 127} {
		if got := Convert[int8, int8](v); got != v {
			t.Errorf("i8 %d -> %d", v, got)
		}
	}
	for _, v := range []int16{math.MinInt16, 0, math.MaxInt16} {
		if got := Convert[int16, int16](v); got != v {
			t.Errorf("i16 %d -> %d", v, got)
		}
	}
	for _, v := range []int32{math.MinInt32, 0, math.MaxInt32} {
		if got := Convert[int32, int32](v); got != v {
			t.Errorf("i32 %d -> %d", v, got)
		}
	}
	for _, v := range []float32{-1.5, -1, 0, 0.25, 1, 2} {
		if got := Convert[float32, float32](v); got != v {
			t.Errorf("f32 %v -> %v", v, got)
		}
	}
}

func TestConvertIntWidths(t *testing.T) {
	tests := []struct {
		name string
		got  int64
		want int64
	}{
		{"i8 max to i16", int64(Convert[int8, int16](127)), 127 << 8},
		{"i8 min to i32", int64(Convert[int8, int32](-128)), math.MinInt32},
		{"i16 min to i8", int64(Convert[int16, int8](math.MinInt16)), math.MinInt8},
		{"i16 max to i8", int64(Convert[int16, int8](math.MaxInt16)), math.MaxInt8},
		{"i32 max to i16", int64(Convert[int32, int16](math.MaxInt32)), math.MaxInt16},
		{"i16 -1 to i8", int64(Convert[int16, int8](-1)), -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %d, want %d", tt.got, tt.want)
			}
		})
	}
}

func TestConvertIntToFloat(t *testing.T) {
	tests := []struct {
		name string
		got  float32
		want float32
	}{
		{"i16 min", Convert[int16, float32](math.MinInt16), -1},
		{"i16 zero", Convert[int16, float32](0), 0},
		{"i16 half", Convert[int16, float32](16384), 0.5},
		{"i8 min", Convert[int8, float32](-128), -1},
		{"i32 min", Convert[int32, float32](math.MinInt32), -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}

	if got := Convert[int16, float32](math.MaxInt16); got >= 1 || got < 0.9999 {
		t.Errorf("i16 max -> %v, want just below 1", got)
	}
}

func TestConvertFloatToInt(t *testing.T) {
	tests := []struct {
		in   float32
		want int16
	}{
		{0, 0},
		{0.5, 16384},
		{-0.5, -16384},
		{1, math.MaxInt16},
		{-1, math.MinInt16},
		{1.7, math.MaxInt16},
		{-3, math.MinInt16},
		{float32(math.Inf(1)), math.MaxInt16},
		{float32(math.NaN()), 0},
	}

	for _, tt := range tests {
		if got := Convert[float32, int16](tt.in); got != tt.want {
			t.Errorf("Convert(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}

	if got := Convert[float32, int8](1); got != math.MaxInt8 {
		t.Errorf("f32 1 -> i8 %d", got)
	}
	if got := Convert[float32, int32](-1); got != math.MinInt32 {
		t.Errorf("f32 -1 -> i32 %d", got)
	}
}

func TestConvertRoundTrip(t *testing.T) {
	for v := math.MinInt16; v <= math.MaxInt16; v += 97 {
		f := Convert[int16, float32](int16(v))
		if got := Convert[float32, int16](f); got != int16(v) {
			t.Fatalf("round trip %d -> %v -> %d", v, f, got)
		}
	}
}
