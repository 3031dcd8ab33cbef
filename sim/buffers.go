// Package sim implements the flow-trail particle simulation core: a
// double-buffered, age-major particle grid advected through a sampled
// velocity field, with viewport-aware geodesy for map and globe views.
package sim

import (
	"fmt"
	"math"
)

// floatsPerPosition is the stride of one position record (x, y, z).
const floatsPerPosition = 3

// particleBuffers owns the particle cohort grid: two position buffers that
// alternate source/target roles each frame, plus a parallel age buffer.
// Slot index = age*numParticles + particleIndex, so each age band is a
// contiguous run of numParticles records.
type particleBuffers struct {
	numParticles int
	maxAge       int

	// positions[current] is the source, positions[1-current] the target.
	// Modeling the ping-pong as an explicit two-slot array avoids hidden
	// aliasing between the roles.
	positions [2][]float32
	current   int

	// ages[i] = floor(i/numParticles). Filled once at allocation,
	// never written again.
	ages []float32
}

// newParticleBuffers allocates the full cohort grid. All three buffers are
// built before any state is committed, so a failed allocation leaves the
// caller's previous buffers untouched.
func newParticleBuffers(numParticles, maxAge int) (*particleBuffers, error) {
	instances := numParticles * maxAge
	if numParticles < 1 || maxAge < 1 || instances/maxAge != numParticles {
		return nil, fmt.Errorf("sim: invalid buffer shape %dx%d", numParticles, maxAge)
	}
	if instances > math.MaxInt32/floatsPerPosition {
		return nil, fmt.Errorf("sim: buffer shape %dx%d exceeds addressable capacity", numParticles, maxAge)
	}

	src := make([]float32, instances*floatsPerPosition)
	dst := make([]float32, instances*floatsPerPosition)
	ages := make([]float32, instances)
	for i := range ages {
		ages[i] = float32(i / numParticles)
	}

	return &particleBuffers{
		numParticles: numParticles,
		maxAge:       maxAge,
		positions:    [2][]float32{src, dst},
		ages:         ages,
	}, nil
}

// numInstances returns the total slot count numParticles*maxAge.
func (b *particleBuffers) numInstances() int {
	return b.numParticles * b.maxAge
}

// numAgedInstances returns the slot count of all bands past band 0.
func (b *particleBuffers) numAgedInstances() int {
	return b.numParticles * (b.maxAge - 1)
}

// source returns the position buffer currently in the source role.
func (b *particleBuffers) source() []float32 {
	return b.positions[b.current]
}

// target returns the position buffer currently in the target role.
func (b *particleBuffers) target() []float32 {
	return b.positions[1-b.current]
}

// band returns the contiguous slice of one age band within buf.
func (b *particleBuffers) band(buf []float32, age int) []float32 {
	stride := b.numParticles * floatsPerPosition
	return buf[age*stride : (age+1)*stride]
}

// shiftAges copies the target buffer's bands [0, maxAge-2] into the source
// buffer's bands [1, maxAge-1]: every particle's latest record moves one
// cohort older and the oldest band's prior content is discarded. One bulk
// copy, never per-particle. No-op when maxAge is 1.
func (b *particleBuffers) shiftAges() {
	if b.maxAge <= 1 {
		return
	}
	bandFloats := b.numParticles * floatsPerPosition
	aged := b.numAgedInstances() * floatsPerPosition
	copy(b.source()[bandFloats:bandFloats+aged], b.target()[:aged])
}

// swap exchanges the source and target roles.
func (b *particleBuffers) swap() {
	b.current = 1 - b.current
}

// clear zeroes both position buffers in place. Ages and shape are untouched.
func (b *particleBuffers) clear() {
	for i := range b.positions {
		p := b.positions[i]
		for j := range p {
			p[j] = 0
		}
	}
}

// release drops all buffer memory. Idempotent; safe on an empty receiver.
func (b *particleBuffers) release() {
	if b == nil {
		return
	}
	b.positions[0] = nil
	b.positions[1] = nil
	b.ages = nil
}
