package sim

import (
	"math"
	"math/rand"
)

// ReseedPolicy places a recycled particle. Returning (0, 0) leaves the
// drop sentinel in place, so NoReseed keeps dropped particles dropped.
type ReseedPolicy func(rng *rand.Rand, b Bounds) (lon, lat float64)

// UniformReseed scatters recycled particles uniformly inside b.
func UniformReseed(rng *rand.Rand, b Bounds) (lon, lat float64) {
	lon = b.MinLon + rng.Float64()*(b.MaxLon-b.MinLon)
	lat = b.MinLat + rng.Float64()*(b.MaxLat-b.MinLat)
	return lon, lat
}

// NoReseed never replaces dropped particles.
func NoReseed(_ *rand.Rand, _ Bounds) (lon, lat float64) {
	return 0, 0
}

// KernelParams carries the per-frame inputs to an advection kernel.
type KernelParams struct {
	Field  VelocityField
	Bounds Bounds // configured particle extent

	// Viewport-derived descriptors.
	Visible      Bounds // lat-clamped visible extent
	Spherical    bool
	CenterLon    float64
	CenterLat    float64
	SphereRadius float64 // visible sphere radius in meters
	SpeedScale   float64 // zoom-compensated speed factor

	DropRate float64 // per-particle recycle probability this frame
	Time     float64 // simulation time in seconds
	Rand     *rand.Rand
	Reseed   ReseedPolicy

	// Written by the kernel for telemetry.
	Dropped  int
	Reseeded int
}

// Kernel advects one age band: it reads numParticles position records from
// src and writes the integrated records to dst. The simulation treats the
// kernel as an opaque compute capability; CPUKernel is the reference
// implementation, a GPU compute pass is a drop-in replacement.
type Kernel interface {
	Advect(src, dst []float32, numParticles int, p *KernelParams)
}

// CPUKernel integrates particle positions on the CPU.
type CPUKernel struct{}

// Advect moves every band-0 particle one step through the velocity field.
//
// Positions are (lon, lat, z) in degrees; z rides along untouched for
// consumers that project onto a globe. (0, 0) is the drop sentinel.
func (CPUKernel) Advect(src, dst []float32, numParticles int, p *KernelParams) {
	region := p.Visible.Intersect(p.Bounds)
	for i := 0; i < numParticles; i++ {
		lon := float64(src[i*floatsPerPosition])
		lat := float64(src[i*floatsPerPosition+1])
		z := src[i*floatsPerPosition+2]

		dropped := lon == 0 && lat == 0
		if !dropped && p.DropRate > 0 && p.Rand.Float64() < p.DropRate {
			// Recycle a fraction of the population every frame so trails
			// redistribute as the camera moves.
			dropped = true
		}
		if !dropped && !p.visible(lon, lat) {
			dropped = true
		}

		if dropped {
			p.Dropped++
			lon, lat = 0, 0
			if p.Reseed != nil && !region.Empty() {
				lon, lat = p.Reseed(p.Rand, region)
				if lon != 0 || lat != 0 {
					p.Reseeded++
				}
			}
			writePosition(dst, i, lon, lat, z)
			continue
		}

		u, v, ok := p.Field.Sample(lon, lat)
		if !ok {
			p.Dropped++
			writePosition(dst, i, 0, 0, z)
			continue
		}

		// One integration step. Longitude ground distance shrinks with
		// cos(lat), so the eastward step grows to compensate.
		cosLat := math.Cos(lat * math.Pi / 180)
		if cosLat < 1e-6 {
			cosLat = 1e-6
		}
		lat += v * p.SpeedScale / metersPerDegree
		lon += u * p.SpeedScale / (metersPerDegree * cosLat)

		lon = wrapLon(lon)
		if lat > MaxLatitude {
			lat = MaxLatitude
		} else if lat < -MaxLatitude {
			lat = -MaxLatitude
		}
		if lon == 0 && lat == 0 {
			// Keep a live particle off the drop sentinel.
			lon = math.SmallestNonzeroFloat32
		}
		writePosition(dst, i, lon, lat, z)
	}
}

// visible reports whether (lon, lat) is inside the rendered region.
func (p *KernelParams) visible(lon, lat float64) bool {
	if p.Spherical {
		return Haversine(p.CenterLon, p.CenterLat, lon, lat) <= p.SphereRadius
	}
	return p.Visible.Contains(lon, lat)
}

func writePosition(dst []float32, i int, lon, lat float64, z float32) {
	dst[i*floatsPerPosition] = float32(lon)
	dst[i*floatsPerPosition+1] = float32(lat)
	dst[i*floatsPerPosition+2] = z
}

// wrapLon wraps a longitude to [-180, 180].
func wrapLon(lon float64) float64 {
	for lon > 180 {
		lon -= 360
	}
	for lon < -180 {
		lon += 360
	}
	return lon
}
