package sim

import (
	"math"
	"math/rand"
	"testing"
)

// constField returns the same vector everywhere inside its bounds.
type constField struct {
	u, v   float64
	bounds Bounds
}

func (f constField) Sample(lon, lat float64) (float64, float64, bool) {
	if !f.bounds.Contains(lon, lat) {
		return 0, 0, false
	}
	return f.u, f.v, true
}

func (f constField) Bounds() Bounds {
	return f.bounds
}

func testParams(field VelocityField) *KernelParams {
	return &KernelParams{
		Field:      field,
		Bounds:     GlobalBounds,
		Visible:    GlobalBounds.ClampLat(),
		SpeedScale: 1,
		Rand:       rand.New(rand.NewSource(1)),
		Reseed:     NoReseed,
	}
}

func TestAdvectIntegratesNorthward(t *testing.T) {
	p := testParams(constField{u: 0, v: metersPerDegree, bounds: GlobalBounds})

	src := []float32{10, 20, 0}
	dst := make([]float32, 3)
	CPUKernel{}.Advect(src, dst, 1, p)

	if math.Abs(float64(dst[0])-10) > 1e-4 {
		t.Errorf("lon = %v, want 10", dst[0])
	}
	// v of one metersPerDegree at unit speed scale moves one degree north.
	if math.Abs(float64(dst[1])-21) > 1e-4 {
		t.Errorf("lat = %v, want 21", dst[1])
	}
	if p.Dropped != 0 {
		t.Errorf("dropped = %d, want 0", p.Dropped)
	}
}

func TestAdvectCompensatesLatitudeDistortion(t *testing.T) {
	field := constField{u: metersPerDegree, v: 0, bounds: GlobalBounds}

	// The same eastward ground speed must produce a larger longitude step
	// at high latitude: one degree of longitude is shorter there.
	pEquator := testParams(field)
	pHigh := testParams(field)
	equator := make([]float32, 3)
	high := make([]float32, 3)
	CPUKernel{}.Advect([]float32{0, 0.001, 0}, equator, 1, pEquator)
	CPUKernel{}.Advect([]float32{0, 60, 0}, high, 1, pHigh)

	dEquator := float64(equator[0])
	dHigh := float64(high[0])
	if math.Abs(dEquator-1) > 1e-3 {
		t.Errorf("equator lon step = %v, want ~1", dEquator)
	}
	// cos(60 deg) = 0.5, so the step doubles.
	if math.Abs(dHigh-2) > 1e-3 {
		t.Errorf("lat-60 lon step = %v, want ~2", dHigh)
	}
}

func TestAdvectSpeedScale(t *testing.T) {
	field := constField{u: 0, v: metersPerDegree, bounds: GlobalBounds}
	p := testParams(field)
	p.SpeedScale = 0.25

	dst := make([]float32, 3)
	CPUKernel{}.Advect([]float32{0, 10, 0}, dst, 1, p)
	if math.Abs(float64(dst[1])-10.25) > 1e-4 {
		t.Errorf("lat = %v, want 10.25", dst[1])
	}
}

func TestAdvectDropsSentinelWithoutReseed(t *testing.T) {
	p := testParams(constField{u: 1, v: 1, bounds: GlobalBounds})

	src := []float32{0, 0, 0} // drop sentinel
	dst := []float32{9, 9, 9}
	CPUKernel{}.Advect(src, dst, 1, p)

	if dst[0] != 0 || dst[1] != 0 {
		t.Errorf("dropped particle advected to (%v, %v), want sentinel", dst[0], dst[1])
	}
	if p.Dropped != 1 || p.Reseeded != 0 {
		t.Errorf("dropped = %d, reseeded = %d, want 1, 0", p.Dropped, p.Reseeded)
	}
}

func TestAdvectReseedsDroppedParticles(t *testing.T) {
	b := Bounds{MinLon: 10, MinLat: 10, MaxLon: 20, MaxLat: 20}
	p := testParams(constField{u: 1, v: 1, bounds: GlobalBounds})
	p.Bounds = b
	p.Visible = GlobalBounds.ClampLat()
	p.Reseed = UniformReseed

	const n = 64
	src := make([]float32, n*floatsPerPosition) // all sentinels
	dst := make([]float32, n*floatsPerPosition)
	CPUKernel{}.Advect(src, dst, n, p)

	if p.Reseeded != n {
		t.Fatalf("reseeded = %d, want %d", p.Reseeded, n)
	}
	for i := 0; i < n; i++ {
		lon := float64(dst[i*floatsPerPosition])
		lat := float64(dst[i*floatsPerPosition+1])
		if !b.Contains(lon, lat) {
			t.Fatalf("particle %d reseeded at (%v, %v), outside bounds", i, lon, lat)
		}
	}
}

func TestAdvectDropsOutsideVisibleRegion(t *testing.T) {
	p := testParams(constField{u: 0, v: 0, bounds: GlobalBounds})
	p.Visible = Bounds{MinLon: 0, MinLat: 0, MaxLon: 10, MaxLat: 10}

	src := []float32{50, 50, 0} // outside the visible extent
	dst := make([]float32, 3)
	CPUKernel{}.Advect(src, dst, 1, p)

	if dst[0] != 0 || dst[1] != 0 {
		t.Errorf("off-screen particle kept at (%v, %v)", dst[0], dst[1])
	}
	if p.Dropped != 1 {
		t.Errorf("dropped = %d, want 1", p.Dropped)
	}
}

func TestAdvectSphereModeVisibility(t *testing.T) {
	p := testParams(constField{u: 0, v: 0, bounds: GlobalBounds})
	p.Spherical = true
	p.CenterLon, p.CenterLat = 0, 0
	p.SphereRadius = Haversine(0, 0, 0, 5) // ~5 degrees of arc

	src := []float32{0, 3, 0, 0, 30, 0}
	dst := make([]float32, 6)
	CPUKernel{}.Advect(src, dst, 2, p)

	if dst[0] == 0 && dst[1] == 0 {
		t.Error("particle inside the visible sphere was dropped")
	}
	if dst[3] != 0 || dst[4] != 0 {
		t.Error("particle beyond the visible sphere was kept")
	}
}

func TestAdvectDropsOutsideField(t *testing.T) {
	field := constField{u: 0, v: 0, bounds: Bounds{MinLon: 0, MinLat: 0, MaxLon: 10, MaxLat: 10}}
	p := testParams(field)

	src := []float32{40, 40, 0} // visible but outside the field extent
	dst := []float32{1, 1, 1}
	CPUKernel{}.Advect(src, dst, 1, p)

	if dst[0] != 0 || dst[1] != 0 {
		t.Errorf("particle outside the field kept at (%v, %v)", dst[0], dst[1])
	}
}

func TestAdvectDropRateRecycles(t *testing.T) {
	p := testParams(constField{u: 0, v: 0, bounds: GlobalBounds})
	p.DropRate = 1 // recycle everything
	p.Reseed = UniformReseed

	const n = 16
	src := make([]float32, n*floatsPerPosition)
	for i := 0; i < n; i++ {
		src[i*floatsPerPosition] = 45
		src[i*floatsPerPosition+1] = 45
	}
	dst := make([]float32, n*floatsPerPosition)
	CPUKernel{}.Advect(src, dst, n, p)

	if p.Dropped != n || p.Reseeded != n {
		t.Errorf("dropped = %d, reseeded = %d, want %d each", p.Dropped, p.Reseeded, n)
	}
}

func TestWrapLon(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0, 0},
		{180, 180},
		{-180, -180},
		{181, -179},
		{-181, 179},
		{540, 180},
	}
	for _, tt := range tests {
		if got := wrapLon(tt.in); got != tt.want {
			t.Errorf("wrapLon(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
