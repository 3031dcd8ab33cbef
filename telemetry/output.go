package telemetry

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/drift/config"
)

// PerfRecord is the CSV row shape for one perf window.
type PerfRecord struct {
	WindowEnd int64 `csv:"window_end"`
	AvgStepUs int64 `csv:"avg_step_us"`
	MinStepUs int64 `csv:"min_step_us"`
	MaxStepUs int64 `csv:"max_step_us"`
	SampleUs  int64 `csv:"sample_us"`
	ShiftUs   int64 `csv:"shift_us"`
	AdvectUs  int64 `csv:"advect_us"`
	SwapUs    int64 `csv:"swap_us"`
}

// OutputManager handles structured run output with CSV logging.
type OutputManager struct {
	dir       string
	statsFile *os.File
	perfFile  *os.File

	statsHeaderWritten bool
	perfHeaderWritten  bool
}

// NewOutputManager creates the output directory and its CSV files.
// Returns nil if dir is empty (output disabled).
func NewOutputManager(dir string) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	om := &OutputManager{dir: dir}

	f, err := os.Create(filepath.Join(dir, "stats.csv"))
	if err != nil {
		return nil, fmt.Errorf("creating stats.csv: %w", err)
	}
	om.statsFile = f

	f, err = os.Create(filepath.Join(dir, "perf.csv"))
	if err != nil {
		om.statsFile.Close()
		return nil, fmt.Errorf("creating perf.csv: %w", err)
	}
	om.perfFile = f

	return om, nil
}

// WriteConfig saves the effective configuration as YAML alongside the CSVs,
// so a run is reproducible from its output directory alone.
func (om *OutputManager) WriteConfig(cfg *config.Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	path := filepath.Join(om.dir, "config.yaml")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config snapshot: %w", err)
	}
	return nil
}

// WriteStats appends one window stats row.
func (om *OutputManager) WriteStats(ws WindowStats) error {
	records := []WindowStats{ws}
	if !om.statsHeaderWritten {
		if err := gocsv.Marshal(records, om.statsFile); err != nil {
			return fmt.Errorf("writing stats header: %w", err)
		}
		om.statsHeaderWritten = true
		return nil
	}
	if err := gocsv.MarshalWithoutHeaders(records, om.statsFile); err != nil {
		return fmt.Errorf("writing stats row: %w", err)
	}
	return nil
}

// WritePerf appends one perf window row.
func (om *OutputManager) WritePerf(stats PerfStats, windowEnd int64) error {
	records := []PerfRecord{{
		WindowEnd: windowEnd,
		AvgStepUs: stats.AvgStepDuration.Microseconds(),
		MinStepUs: stats.MinStepDuration.Microseconds(),
		MaxStepUs: stats.MaxStepDuration.Microseconds(),
		SampleUs:  stats.PhaseAvg[PhaseSample].Microseconds(),
		ShiftUs:   stats.PhaseAvg[PhaseShift].Microseconds(),
		AdvectUs:  stats.PhaseAvg[PhaseAdvect].Microseconds(),
		SwapUs:    stats.PhaseAvg[PhaseSwap].Microseconds(),
	}}
	if !om.perfHeaderWritten {
		if err := gocsv.Marshal(records, om.perfFile); err != nil {
			return fmt.Errorf("writing perf header: %w", err)
		}
		om.perfHeaderWritten = true
		return nil
	}
	if err := gocsv.MarshalWithoutHeaders(records, om.perfFile); err != nil {
		return fmt.Errorf("writing perf row: %w", err)
	}
	return nil
}

// Dir returns the output directory path.
func (om *OutputManager) Dir() string {
	return om.dir
}

// Close flushes and closes all output files.
func (om *OutputManager) Close() error {
	var firstErr error
	if err := om.statsFile.Close(); err != nil {
		firstErr = err
	}
	if err := om.perfFile.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
