// Package renderer is the reference downstream consumer of the simulation
// buffers: it projects particle trails onto the screen and hosts the
// control panel. It only ever reads the buffers.
package renderer

import (
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/drift/sim"
)

// TrailRenderer draws the particle cohort grid as fading line segments.
type TrailRenderer struct {
	width  int32
	height int32
	bounds sim.Bounds
	color  rl.Color
}

// NewTrailRenderer creates a renderer projecting bounds onto a
// width x height canvas with a plate carree mapping.
func NewTrailRenderer(width, height int32, bounds sim.Bounds) *TrailRenderer {
	return &TrailRenderer{
		width:  width,
		height: height,
		bounds: bounds,
		color:  rl.Color{R: 70, G: 130, B: 180},
	}
}

// project maps a geographic position to screen coordinates.
func (r *TrailRenderer) project(lon, lat float32) rl.Vector2 {
	b := r.bounds
	x := (float64(lon) - b.MinLon) / (b.MaxLon - b.MinLon) * float64(r.width)
	y := (b.MaxLat - float64(lat)) / (b.MaxLat - b.MinLat) * float64(r.height)
	return rl.Vector2{X: float32(x), Y: float32(y)}
}

// Draw renders one line segment per slot, fading with cohort age. source
// and target are the simulation's two position buffers: after a buffer
// swap, slot i holds consecutive records of the same particle in the two
// buffers, so every segment connects positions one tick apart. Bands of a
// single buffer interleave stale frames and must not be paired directly.
func (r *TrailRenderer) Draw(source, target []float32, numParticles, maxAge int) {
	if numParticles == 0 || maxAge < 1 {
		return
	}

	rl.BeginBlendMode(rl.BlendAdditive)

	forEachSegment(source, target, numParticles, maxAge, func(age int, x0, y0, x1, y1 float32) {
		// Quadratic falloff keeps the head of the trail bright.
		fade := 1 - float32(age)/float32(maxAge)
		fade *= fade
		alpha := fade * 160
		if alpha < 2 {
			return
		}
		color := r.color
		color.A = uint8(alpha)
		rl.DrawLineEx(r.project(x0, y0), r.project(x1, y1), 1.5, color)
	})

	rl.EndBlendMode()
}

// forEachSegment walks the cross-buffer slot pairs and invokes fn for each
// drawable segment. Slots where either endpoint sits at the (0,0) drop
// sentinel are skipped, as are segments jumping across the antimeridian.
func forEachSegment(source, target []float32, numParticles, maxAge int, fn func(age int, x0, y0, x1, y1 float32)) {
	stride := numParticles * 3
	for age := 0; age < maxAge; age++ {
		newer := source[age*stride:]
		older := target[age*stride:]
		for i := 0; i < numParticles; i++ {
			x0, y0 := newer[i*3], newer[i*3+1]
			x1, y1 := older[i*3], older[i*3+1]
			if (x0 == 0 && y0 == 0) || (x1 == 0 && y1 == 0) {
				continue
			}
			// A wrapped particle would smear a segment across the map.
			if dx := x0 - x1; dx > 180 || dx < -180 {
				continue
			}
			fn(age, x0, y0, x1, y1)
		}
	}
}

// Unproject maps screen coordinates back to geographic coordinates,
// supplying the viewport snapshot's unprojection hook.
func (r *TrailRenderer) Unproject(x, y float64) (lon, lat float64, ok bool) {
	b := r.bounds
	lon = b.MinLon + x/float64(r.width)*(b.MaxLon-b.MinLon)
	lat = b.MaxLat - y/float64(r.height)*(b.MaxLat-b.MinLat)
	ok = lon >= b.MinLon && lon <= b.MaxLon && lat >= b.MinLat && lat <= b.MaxLat
	return lon, lat, ok
}

// Bounds returns the geographic extent the renderer covers.
func (r *TrailRenderer) Bounds() sim.Bounds {
	return r.bounds
}
