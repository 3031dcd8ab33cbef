package sim

import (
	"math"
	"testing"
)

func TestAllocationShape(t *testing.T) {
	tests := []struct {
		name         string
		numParticles int
		maxAge       int
	}{
		{"single slot", 1, 1},
		{"single band", 7, 1},
		{"single particle", 1, 5},
		{"typical", 100, 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf, err := newParticleBuffers(tt.numParticles, tt.maxAge)
			if err != nil {
				t.Fatalf("newParticleBuffers(%d, %d) failed: %v", tt.numParticles, tt.maxAge, err)
			}

			wantInstances := tt.numParticles * tt.maxAge
			if got := buf.numInstances(); got != wantInstances {
				t.Errorf("numInstances = %d, want %d", got, wantInstances)
			}
			if got := buf.numAgedInstances(); got != tt.numParticles*(tt.maxAge-1) {
				t.Errorf("numAgedInstances = %d, want %d", got, tt.numParticles*(tt.maxAge-1))
			}
			for slot := range buf.positions {
				if len(buf.positions[slot]) != wantInstances*floatsPerPosition {
					t.Errorf("positions[%d] length = %d, want %d", slot, len(buf.positions[slot]), wantInstances*floatsPerPosition)
				}
			}
			if len(buf.ages) != wantInstances {
				t.Fatalf("ages length = %d, want %d", len(buf.ages), wantInstances)
			}
			for i, age := range buf.ages {
				if want := float32(i / tt.numParticles); age != want {
					t.Fatalf("ages[%d] = %v, want %v", i, age, want)
				}
			}
		})
	}
}

func TestAllocationRejectsBadShape(t *testing.T) {
	tests := []struct {
		name         string
		numParticles int
		maxAge       int
	}{
		{"zero particles", 0, 10},
		{"zero age", 10, 0},
		{"negative", -1, 10},
		{"beyond capacity", math.MaxInt32, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := newParticleBuffers(tt.numParticles, tt.maxAge); err == nil {
				t.Errorf("newParticleBuffers(%d, %d) succeeded, want error", tt.numParticles, tt.maxAge)
			}
		})
	}
}

func TestShiftAges(t *testing.T) {
	const n, m = 4, 3
	buf, err := newParticleBuffers(n, m)
	if err != nil {
		t.Fatal(err)
	}

	// Distinct values per slot in the target buffer.
	tgt := buf.target()
	for i := range tgt {
		tgt[i] = float32(i) + 1
	}
	src := buf.source()
	for i := range src {
		src[i] = -1
	}

	buf.shiftAges()

	bandFloats := n * floatsPerPosition
	// Band 0 of the source is untouched.
	for i := 0; i < bandFloats; i++ {
		if src[i] != -1 {
			t.Fatalf("source band 0 slot %d = %v, want -1", i, src[i])
		}
	}
	// Source band a+1 mirrors target band a.
	for a := 0; a < m-1; a++ {
		for i := 0; i < bandFloats; i++ {
			got := src[(a+1)*bandFloats+i]
			want := tgt[a*bandFloats+i]
			if got != want {
				t.Fatalf("source band %d slot %d = %v, want %v", a+1, i, got, want)
			}
		}
	}
}

func TestShiftAgesSingleBand(t *testing.T) {
	buf, err := newParticleBuffers(5, 1)
	if err != nil {
		t.Fatal(err)
	}
	src := buf.source()
	for i := range src {
		src[i] = float32(i)
	}

	buf.shiftAges() // nothing to age

	for i := range src {
		if src[i] != float32(i) {
			t.Fatalf("source slot %d changed to %v", i, src[i])
		}
	}
}

func TestSwap(t *testing.T) {
	buf, err := newParticleBuffers(2, 2)
	if err != nil {
		t.Fatal(err)
	}
	a := buf.source()
	b := buf.target()

	buf.swap()
	if &buf.source()[0] != &b[0] || &buf.target()[0] != &a[0] {
		t.Error("swap did not exchange buffer roles")
	}
	buf.swap()
	if &buf.source()[0] != &a[0] {
		t.Error("double swap did not restore buffer roles")
	}
}

func TestClearZeroesPositionsOnly(t *testing.T) {
	const n, m = 3, 4
	buf, err := newParticleBuffers(n, m)
	if err != nil {
		t.Fatal(err)
	}
	for i := range buf.positions[0] {
		buf.positions[0][i] = 1
		buf.positions[1][i] = 2
	}

	buf.clear()

	for slot := range buf.positions {
		for i, v := range buf.positions[slot] {
			if v != 0 {
				t.Fatalf("positions[%d][%d] = %v after clear", slot, i, v)
			}
		}
	}
	for i, age := range buf.ages {
		if want := float32(i / n); age != want {
			t.Fatalf("ages[%d] = %v after clear, want %v", i, age, want)
		}
	}
}

func TestReleaseIdempotent(t *testing.T) {
	buf, err := newParticleBuffers(2, 2)
	if err != nil {
		t.Fatal(err)
	}
	buf.release()
	buf.release()
	if buf.positions[0] != nil || buf.positions[1] != nil || buf.ages != nil {
		t.Error("release left buffers allocated")
	}

	var nilBuf *particleBuffers
	nilBuf.release() // must not panic
}
