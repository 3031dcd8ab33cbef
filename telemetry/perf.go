// Package telemetry collects step timing and particle churn statistics
// for the simulation and writes them out as CSV.
package telemetry

import (
	"log/slog"
	"time"
)

// Phase names for one simulation step, in execution order.
const (
	PhaseSample = "sample" // viewport geodesy + speed scale
	PhaseShift  = "shift"  // cohort aging copy
	PhaseAdvect = "advect" // kernel integration
	PhaseSwap   = "swap"   // buffer role flip
)

// phaseOrder indexes the fixed phase set.
var phaseOrder = []string{PhaseSample, PhaseShift, PhaseAdvect, PhaseSwap}

const numPhases = 4

func phaseIndex(phase string) int {
	for i, p := range phaseOrder {
		if p == phase {
			return i
		}
	}
	return -1
}

// PerfSample holds timing data for a single step.
type PerfSample struct {
	StepDuration time.Duration
	Phases       [numPhases]time.Duration
}

// PerfCollector tracks step timing over a rolling window.
type PerfCollector struct {
	windowSize  int
	samples     []PerfSample
	writeIndex  int
	sampleCount int

	current    [numPhases]time.Duration
	stepStart  time.Time
	phaseStart time.Time
	lastPhase  int

	// Frame timing for the graphical driver.
	lastFrameTime time.Time
	frameDuration time.Duration
}

// NewPerfCollector creates a collector averaging over windowSize steps
// (e.g. 60 for one second at 60fps).
func NewPerfCollector(windowSize int) *PerfCollector {
	if windowSize < 1 {
		windowSize = 60
	}
	return &PerfCollector{
		windowSize: windowSize,
		samples:    make([]PerfSample, windowSize),
		lastPhase:  -1,
	}
}

// StartStep begins timing a new simulation step.
func (p *PerfCollector) StartStep() {
	p.stepStart = time.Now()
	p.current = [numPhases]time.Duration{}
	p.lastPhase = -1
}

// StartPhase begins timing a phase, closing the previous one.
func (p *PerfCollector) StartPhase(phase string) {
	now := time.Now()
	if p.lastPhase >= 0 {
		p.current[p.lastPhase] += now.Sub(p.phaseStart)
	}
	p.phaseStart = now
	p.lastPhase = phaseIndex(phase)
}

// EndStep closes the open phase and records the sample.
func (p *PerfCollector) EndStep() {
	now := time.Now()
	if p.lastPhase >= 0 {
		p.current[p.lastPhase] += now.Sub(p.phaseStart)
		p.lastPhase = -1
	}

	p.samples[p.writeIndex] = PerfSample{
		StepDuration: now.Sub(p.stepStart),
		Phases:       p.current,
	}
	p.writeIndex = (p.writeIndex + 1) % p.windowSize
	if p.sampleCount < p.windowSize {
		p.sampleCount++
	}
}

// RecordFrame records wall-clock frame spacing for the graphical driver.
func (p *PerfCollector) RecordFrame() {
	now := time.Now()
	if !p.lastFrameTime.IsZero() {
		p.frameDuration = now.Sub(p.lastFrameTime)
	}
	p.lastFrameTime = now
}

// PerfStats holds aggregated timing over the current window.
type PerfStats struct {
	AvgStepDuration time.Duration
	MinStepDuration time.Duration
	MaxStepDuration time.Duration
	PhaseAvg        map[string]time.Duration
	StepsPerSecond  float64
	FPS             float64
}

// Stats aggregates the current window.
func (p *PerfCollector) Stats() PerfStats {
	var fps float64
	if p.frameDuration > 0 {
		fps = float64(time.Second) / float64(p.frameDuration)
	}

	stats := PerfStats{PhaseAvg: make(map[string]time.Duration), FPS: fps}
	if p.sampleCount == 0 {
		return stats
	}

	var total time.Duration
	var phaseSum [numPhases]time.Duration
	for i := 0; i < p.sampleCount; i++ {
		s := p.samples[i]
		total += s.StepDuration
		if i == 0 || s.StepDuration < stats.MinStepDuration {
			stats.MinStepDuration = s.StepDuration
		}
		if s.StepDuration > stats.MaxStepDuration {
			stats.MaxStepDuration = s.StepDuration
		}
		for j, d := range s.Phases {
			phaseSum[j] += d
		}
	}

	stats.AvgStepDuration = total / time.Duration(p.sampleCount)
	for j, name := range phaseOrder {
		stats.PhaseAvg[name] = phaseSum[j] / time.Duration(p.sampleCount)
	}
	if stats.AvgStepDuration > 0 {
		stats.StepsPerSecond = float64(time.Second) / float64(stats.AvgStepDuration)
	}
	return stats
}

// LogStats logs aggregated timing through slog.
func (s PerfStats) LogStats() {
	attrs := []any{
		"avg_step_us", s.AvgStepDuration.Microseconds(),
		"min_step_us", s.MinStepDuration.Microseconds(),
		"max_step_us", s.MaxStepDuration.Microseconds(),
		"steps_per_sec", int(s.StepsPerSecond),
	}
	for _, name := range phaseOrder {
		attrs = append(attrs, name+"_us", s.PhaseAvg[name].Microseconds())
	}
	if s.FPS > 0 {
		attrs = append(attrs, "fps", int(s.FPS))
	}
	slog.Info("perf", attrs...)
}
