package sim

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/pthm-cable/drift/telemetry"
)

// State is the lifecycle state of a Simulation.
type State uint8

const (
	StateUninitialized State = iota
	StateInitialized
	StateTornDown
)

// String returns the state name for logging.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitialized:
		return "initialized"
	case StateTornDown:
		return "torn_down"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

var (
	// ErrNotInitialized is returned when Step or Clear runs before Initialize.
	ErrNotInitialized = errors.New("sim: not initialized")
	// ErrAlreadyInitialized is returned by Initialize on a live simulation.
	ErrAlreadyInitialized = errors.New("sim: already initialized")
	// ErrTornDown is returned for any operation but Teardown or a fresh
	// Initialize after teardown.
	ErrTornDown = errors.New("sim: torn down")
)

// Config is the pre-validated simulation configuration. The config package
// is the validation boundary; values here are assumed in range.
type Config struct {
	NumParticles int     // 1..1,000,000
	MaxAge       int     // 1..255
	SpeedFactor  float64 // 0..1
	Animate      bool
	DropRate     float64 // per-frame recycle probability per particle
	Bounds       Bounds
	Field        VelocityField // nil disables advection
}

// Options configures a Simulation's collaborators. Zero value gives the
// CPU kernel, uniform reseeding, and no telemetry.
type Options struct {
	Kernel    Kernel
	Reseed    ReseedPolicy
	Perf      *telemetry.PerfCollector
	Collector *telemetry.Collector
}

// Simulation is the lifecycle controller: it owns the particle buffers and
// orchestrates the per-frame shift, advect, and swap. It is single-threaded
// and not reentrant; the caller must not overlap Step invocations.
type Simulation struct {
	state State
	cfg   Config
	buf   *particleBuffers

	kernel    Kernel
	reseed    ReseedPolicy
	perf      *telemetry.PerfCollector
	collector *telemetry.Collector

	tick  int64
	dirty bool
}

// New creates an uninitialized simulation.
func New(opts Options) *Simulation {
	if opts.Kernel == nil {
		opts.Kernel = CPUKernel{}
	}
	if opts.Reseed == nil {
		opts.Reseed = UniformReseed
	}
	return &Simulation{
		kernel:    opts.Kernel,
		reseed:    opts.Reseed,
		perf:      opts.Perf,
		collector: opts.Collector,
	}
}

// Initialize allocates buffers for cfg and activates the simulation.
// Valid from Uninitialized and from TornDown (fresh activation).
func (s *Simulation) Initialize(cfg Config) error {
	if s.state == StateInitialized {
		return ErrAlreadyInitialized
	}
	buf, err := newParticleBuffers(cfg.NumParticles, cfg.MaxAge)
	if err != nil {
		return err
	}
	s.buf = buf
	s.cfg = cfg
	s.state = StateInitialized
	s.tick = 0
	s.dirty = true
	if s.collector != nil {
		s.collector.SetNumParticles(cfg.NumParticles)
	}
	return nil
}

// Reconfigure applies a new configuration. Changing NumParticles or MaxAge
// reallocates the buffers and discards all particle history; any other
// change is applied in place. On allocation failure the previous buffers
// and configuration stay intact.
func (s *Simulation) Reconfigure(cfg Config) error {
	switch s.state {
	case StateUninitialized:
		return ErrNotInitialized
	case StateTornDown:
		return ErrTornDown
	}

	if cfg.NumParticles != s.cfg.NumParticles || cfg.MaxAge != s.cfg.MaxAge {
		buf, err := newParticleBuffers(cfg.NumParticles, cfg.MaxAge)
		if err != nil {
			return err
		}
		s.buf.release()
		s.buf = buf
		s.dirty = true
		if s.collector != nil {
			s.collector.SetNumParticles(cfg.NumParticles)
		}
	}
	s.cfg = cfg
	return nil
}

// Step advances the simulation one tick: shift cohorts one band older,
// advect band 0 through the velocity field, swap buffer roles. now is the
// simulation time in seconds; seed drives this frame's random stream so a
// run replays deterministically.
//
// With Animate false the step is skipped and prior buffers stay current
// (freeze). With no velocity field bound the step is a no-op and every
// buffer byte stays as it was.
func (s *Simulation) Step(vp *Viewport, now float64, seed int64) error {
	switch s.state {
	case StateUninitialized:
		return ErrNotInitialized
	case StateTornDown:
		return ErrTornDown
	}

	if !s.cfg.Animate || s.cfg.Field == nil {
		return nil
	}

	var stepStart time.Time
	if s.collector != nil {
		stepStart = time.Now()
	}
	if s.perf != nil {
		s.perf.StartStep()
		s.perf.StartPhase(telemetry.PhaseSample)
	}

	params := KernelParams{
		Field:      s.cfg.Field,
		Bounds:     s.cfg.Bounds,
		Visible:    vp.Bounds.ClampLat(),
		Spherical:  vp.Spherical,
		CenterLon:  vp.Lon,
		CenterLat:  vp.Lat,
		SpeedScale: SpeedScale(s.cfg.SpeedFactor, vp.DevicePixelRatio, vp.Zoom),
		DropRate:   s.cfg.DropRate,
		Time:       now,
		Rand:       rand.New(rand.NewSource(seed)),
		Reseed:     s.reseed,
	}
	if vp.Spherical {
		params.SphereRadius = vp.SphereRadius()
	}

	if s.perf != nil {
		s.perf.StartPhase(telemetry.PhaseShift)
	}
	s.buf.shiftAges()

	if s.perf != nil {
		s.perf.StartPhase(telemetry.PhaseAdvect)
	}
	s.kernel.Advect(s.buf.band(s.buf.source(), 0), s.buf.band(s.buf.target(), 0), s.cfg.NumParticles, &params)

	if s.perf != nil {
		s.perf.StartPhase(telemetry.PhaseSwap)
	}
	s.buf.swap()
	s.tick++
	s.dirty = true

	if s.perf != nil {
		s.perf.EndStep()
	}
	if s.collector != nil {
		s.collector.RecordStep(time.Since(stepStart), params.Dropped, params.Reseeded)
	}
	return nil
}

// Clear zeroes both position buffers in place, hiding every trail without
// touching ages or configuration. The next Step runs normally.
func (s *Simulation) Clear() error {
	switch s.state {
	case StateUninitialized:
		return ErrNotInitialized
	case StateTornDown:
		return ErrTornDown
	}
	s.buf.clear()
	s.dirty = true
	return nil
}

// Teardown releases all buffers. Idempotent: calling it on a torn down or
// never-initialized simulation is a no-op.
func (s *Simulation) Teardown() {
	s.buf.release()
	s.buf = nil
	s.state = StateTornDown
}

// State returns the current lifecycle state.
func (s *Simulation) State() State {
	return s.state
}

// Tick returns the number of completed steps since activation.
func (s *Simulation) Tick() int64 {
	return s.tick
}

// Dirty reports whether buffer contents changed since ClearDirty.
func (s *Simulation) Dirty() bool {
	return s.dirty
}

// ClearDirty acknowledges the current buffer contents, typically after the
// downstream renderer consumed them.
func (s *Simulation) ClearDirty() {
	s.dirty = false
}

// NumParticles returns the configured particle count, 0 when unallocated.
func (s *Simulation) NumParticles() int {
	if s.buf == nil {
		return 0
	}
	return s.buf.numParticles
}

// MaxAge returns the configured cohort count, 0 when unallocated.
func (s *Simulation) MaxAge() int {
	if s.buf == nil {
		return 0
	}
	return s.buf.maxAge
}

// SourcePositions exposes the current source position buffer. Read-only by
// contract: the memory is owned by the simulation.
func (s *Simulation) SourcePositions() []float32 {
	if s.buf == nil {
		return nil
	}
	return s.buf.source()
}

// TargetPositions exposes the current target position buffer. Read-only by
// contract.
func (s *Simulation) TargetPositions() []float32 {
	if s.buf == nil {
		return nil
	}
	return s.buf.target()
}

// Ages exposes the age buffer: ages[i] = floor(i/numParticles). Read-only
// by contract.
func (s *Simulation) Ages() []float32 {
	if s.buf == nil {
		return nil
	}
	return s.buf.ages
}

// PackedPositions packs the current source positions into binary16 for GPU
// upload, reusing dst when it has capacity.
func (s *Simulation) PackedPositions(dst []uint16) []uint16 {
	if s.buf == nil {
		return nil
	}
	src := s.buf.source()
	if cap(dst) < len(src) {
		dst = make([]uint16, len(src))
	}
	dst = dst[:len(src)]
	packHalf(dst, src)
	return dst
}
