package sim

import (
	"math"
	"testing"
)

func TestHalfRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		in   float32
	}{
		{"zero", 0},
		{"negative zero", float32(math.Copysign(0, -1))},
		{"one", 1},
		{"minus one", -1},
		{"half", 0.5},
		{"quarter", 0.25},
		{"max half", 65504},
		{"small normal", 6.1035156e-05},
		{"longitude-ish", 127.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := halfToFloat(halfBits(tt.in))
			if got != tt.in {
				t.Errorf("round trip %v -> %v", tt.in, got)
			}
		})
	}
}

func TestHalfPrecisionLoss(t *testing.T) {
	// Values past 11 significand bits round but must stay within half a ULP.
	in := float32(123.456)
	got := halfToFloat(halfBits(in))
	if math.Abs(float64(got-in)) > 0.0625 {
		t.Errorf("half(%v) = %v, error too large", in, got)
	}
}

func TestHalfRoundsTiesToEven(t *testing.T) {
	tests := []struct {
		name string
		in   float32
		want float32
	}{
		// Exactly between 1.0 and the next half value: the even
		// mantissa (1.0) wins, where round-half-up would pick 1+2^-10.
		{"tie down to even", 1 + 1.0/2048, 1},
		{"negative tie down to even", -(1 + 1.0/2048), -1},
		// Between mantissa 1 and 2: the even neighbor is above.
		{"tie up to even", 1 + 3.0/2048, 1 + 1.0/512},
		// Just past the tie point rounds up regardless.
		{"above tie", 1 + 1.0/2048 + 1.0/4194304, 1 + 1.0/1024},
		// Subnormal ties follow the same rule.
		{"subnormal tie down", 1.0 / (1 << 25), 0},
		{"subnormal tie up", 3.0 / (1 << 25), 1.0 / (1 << 23)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := halfToFloat(halfBits(tt.in)); got != tt.want {
				t.Errorf("half(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestHalfSpecials(t *testing.T) {
	if got := halfToFloat(halfBits(float32(math.Inf(1)))); !math.IsInf(float64(got), 1) {
		t.Errorf("+inf round trip = %v", got)
	}
	if got := halfToFloat(halfBits(float32(math.Inf(-1)))); !math.IsInf(float64(got), -1) {
		t.Errorf("-inf round trip = %v", got)
	}
	if got := halfToFloat(halfBits(float32(math.NaN()))); !math.IsNaN(float64(got)) {
		t.Errorf("NaN round trip = %v", got)
	}
	// Overflow saturates to infinity.
	if got := halfToFloat(halfBits(1e6)); !math.IsInf(float64(got), 1) {
		t.Errorf("overflow = %v, want +inf", got)
	}
	// Underflow flushes to zero, keeping the sign.
	if got := halfToFloat(halfBits(-1e-9)); got != 0 || !math.Signbit(float64(got)) {
		t.Errorf("underflow = %v, want -0", got)
	}
}

func TestPackHalfSlices(t *testing.T) {
	src := []float32{0, 1, -1, 42.5, -180, 85.0625}
	packed := make([]uint16, len(src))
	packHalf(packed, src)

	out := make([]float32, len(src))
	unpackHalf(out, packed)
	for i := range src {
		if out[i] != src[i] {
			t.Errorf("slot %d: %v -> %v", i, src[i], out[i])
		}
	}
}
