package telemetry

import (
	"log/slog"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
)

// WindowStats holds aggregated simulation statistics for one stats window.
type WindowStats struct {
	WindowStartTick int64   `csv:"-"`
	WindowEndTick   int64   `csv:"window_end"`
	SimTimeSec      float64 `csv:"sim_time"`

	Steps int `csv:"steps"`

	// Step duration distribution in microseconds.
	StepMeanUs float64 `csv:"step_mean_us"`
	StepP10Us  float64 `csv:"step_p10_us"`
	StepP50Us  float64 `csv:"step_p50_us"`
	StepP90Us  float64 `csv:"step_p90_us"`

	// Particle churn during the window.
	Dropped  int     `csv:"dropped"`
	Reseeded int     `csv:"reseeded"`
	ChurnPct float64 `csv:"churn_pct"` // dropped per step as % of band-0 population
}

// Collector accumulates per-step measurements into window aggregates.
type Collector struct {
	windowStart  int64
	simStart     float64
	stepUs       []float64
	dropped      int
	reseeded     int
	numParticles int
}

// NewCollector creates a collector for a simulation of numParticles
// band-0 particles.
func NewCollector(numParticles int) *Collector {
	return &Collector{numParticles: numParticles}
}

// SetNumParticles updates the population after a reconfiguration.
func (c *Collector) SetNumParticles(n int) {
	c.numParticles = n
}

// RecordStep adds one step's measurements to the current window.
func (c *Collector) RecordStep(dur time.Duration, dropped, reseeded int) {
	c.stepUs = append(c.stepUs, float64(dur.Microseconds()))
	c.dropped += dropped
	c.reseeded += reseeded
}

// Flush aggregates the current window and resets the accumulators.
func (c *Collector) Flush(endTick int64, simTime float64) WindowStats {
	ws := WindowStats{
		WindowStartTick: c.windowStart,
		WindowEndTick:   endTick,
		SimTimeSec:      simTime - c.simStart,
		Steps:           len(c.stepUs),
		Dropped:         c.dropped,
		Reseeded:        c.reseeded,
	}

	if len(c.stepUs) > 0 {
		sort.Float64s(c.stepUs)
		ws.StepMeanUs = stat.Mean(c.stepUs, nil)
		ws.StepP10Us = stat.Quantile(0.1, stat.Empirical, c.stepUs, nil)
		ws.StepP50Us = stat.Quantile(0.5, stat.Empirical, c.stepUs, nil)
		ws.StepP90Us = stat.Quantile(0.9, stat.Empirical, c.stepUs, nil)
		if c.numParticles > 0 {
			ws.ChurnPct = float64(c.dropped) / float64(len(c.stepUs)) / float64(c.numParticles) * 100
		}
	}

	c.windowStart = endTick
	c.simStart = simTime
	c.stepUs = c.stepUs[:0]
	c.dropped = 0
	c.reseeded = 0
	return ws
}

// LogStats logs the window through slog.
func (ws WindowStats) LogStats() {
	slog.Info("stats",
		"window_end", ws.WindowEndTick,
		"steps", ws.Steps,
		"step_mean_us", ws.StepMeanUs,
		"step_p90_us", ws.StepP90Us,
		"dropped", ws.Dropped,
		"reseeded", ws.Reseeded,
		"churn_pct", ws.ChurnPct,
	)
}
