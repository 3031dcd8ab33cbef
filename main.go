package main

import (
	"flag"
	"log/slog"
	"os"
	"time"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/drift/config"
	"github.com/pthm-cable/drift/renderer"
	"github.com/pthm-cable/drift/sim"
	"github.com/pthm-cable/drift/telemetry"
)

const stepDT = 1.0 / 60.0 // seconds of simulation time per tick

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	headless := flag.Bool("headless", false, "Run without graphics")
	logStats := flag.Bool("log-stats", false, "Output stats via slog")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	maxTicks := flag.Int("max-ticks", 0, "Stop after N ticks (0 = unlimited)")
	fieldPath := flag.String("field", "", "Velocity raster PNG (overrides config)")

	flag.Parse()

	// Initialize config before anything else
	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	// Set up seed
	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	bounds := sim.Bounds{
		MinLon: cfg.Simulation.Bounds.MinLon,
		MinLat: cfg.Simulation.Bounds.MinLat,
		MaxLon: cfg.Simulation.Bounds.MaxLon,
		MaxLat: cfg.Simulation.Bounds.MaxLat,
	}

	// Optional velocity field; absence disables advection, not an error.
	path := cfg.Field.Path
	if *fieldPath != "" {
		path = *fieldPath
	}
	var field sim.VelocityField
	if path != "" {
		tf, err := sim.LoadTextureFieldFile(path, bounds, cfg.Field.MaxSpeed)
		if err != nil {
			slog.Error("failed to load velocity field", "path", path, "error", err)
			os.Exit(1)
		}
		field = tf
	} else {
		slog.Warn("no velocity field bound, advection disabled")
	}

	simCfg := sim.Config{
		NumParticles: cfg.Simulation.NumParticles,
		MaxAge:       cfg.Simulation.MaxAge,
		SpeedFactor:  cfg.Simulation.SpeedFactor,
		Animate:      cfg.Simulation.Animate,
		DropRate:     cfg.Simulation.DropRate,
		Bounds:       bounds,
		Field:        field,
	}

	perf := telemetry.NewPerfCollector(60)
	collector := telemetry.NewCollector(simCfg.NumParticles)

	output, err := telemetry.NewOutputManager(*outputDir)
	if err != nil {
		slog.Error("failed to create output directory", "error", err)
		os.Exit(1)
	}
	if output != nil {
		defer output.Close()
		if err := output.WriteConfig(cfg); err != nil {
			slog.Error("failed to write config snapshot", "error", err)
		}
	}

	s := sim.New(sim.Options{Perf: perf, Collector: collector})
	if err := s.Initialize(simCfg); err != nil {
		slog.Error("failed to initialize simulation", "error", err)
		os.Exit(1)
	}
	defer s.Teardown()

	slog.Info("simulation initialized",
		"particles", simCfg.NumParticles,
		"max_age", simCfg.MaxAge,
		"seed", rngSeed,
		"headless", *headless,
	)

	windowTicks := int64(cfg.Telemetry.StatsWindow / stepDT)
	if windowTicks < 1 {
		windowTicks = 1
	}

	flush := func() {
		ws := collector.Flush(s.Tick(), float64(s.Tick())*stepDT)
		ps := perf.Stats()
		if *logStats || cfg.Telemetry.LogStats {
			ws.LogStats()
			ps.LogStats()
		}
		if output != nil {
			if err := output.WriteStats(ws); err != nil {
				slog.Error("failed to write stats", "error", err)
			}
			if err := output.WritePerf(ps, s.Tick()); err != nil {
				slog.Error("failed to write perf", "error", err)
			}
		}
	}

	if *headless {
		runHeadless(s, simCfg, cfg, rngSeed, *maxTicks, windowTicks, flush)
	} else {
		runGraphical(s, simCfg, cfg, rngSeed, *maxTicks, windowTicks, flush, perf)
	}
}

// runHeadless steps the simulation against a synthetic full-extent viewport.
func runHeadless(s *sim.Simulation, simCfg sim.Config, cfg *config.Config, rngSeed int64, maxTicks int, windowTicks int64, flush func()) {
	w := float64(cfg.Screen.Width)
	h := float64(cfg.Screen.Height)
	vp := flatViewport(simCfg.Bounds, w, h)

	for {
		tick := s.Tick()
		if err := s.Step(vp, float64(tick)*stepDT, rngSeed+tick); err != nil {
			slog.Error("step failed", "error", err)
			return
		}
		if s.Tick() == tick {
			// Frozen or no field bound: stepping again cannot advance,
			// so the loop would spin without ever reaching max-ticks.
			slog.Info("simulation idle, stopping", "tick", s.Tick())
			flush()
			return
		}
		if s.Tick()%windowTicks == 0 {
			flush()
		}
		if maxTicks > 0 && int(s.Tick()) >= maxTicks {
			slog.Info("max ticks reached", "tick", s.Tick())
			if s.Tick()%windowTicks != 0 {
				flush() // final partial window
			}
			return
		}
	}
}

// runGraphical opens a raylib window and renders the trails each frame.
func runGraphical(s *sim.Simulation, simCfg sim.Config, cfg *config.Config, rngSeed int64, maxTicks int, windowTicks int64, flush func(), perf *telemetry.PerfCollector) {
	rl.InitWindow(int32(cfg.Screen.Width), int32(cfg.Screen.Height), "Drift")
	defer rl.CloseWindow()
	rl.SetTargetFPS(int32(cfg.Screen.TargetFPS))
	gui.LoadStyleDefault()

	trails := renderer.NewTrailRenderer(int32(cfg.Screen.Width), int32(cfg.Screen.Height), simCfg.Bounds)
	panel := renderer.NewControlsPanel(12, 12, 220)
	ctl := renderer.Controls{
		SpeedFactor: float32(simCfg.SpeedFactor),
		Animate:     simCfg.Animate,
	}

	vp := flatViewport(simCfg.Bounds, float64(cfg.Screen.Width), float64(cfg.Screen.Height))
	vp.Unproject = trails.Unproject

	for !rl.WindowShouldClose() {
		tick := s.Tick()
		if err := s.Step(vp, float64(tick)*stepDT, rngSeed+tick); err != nil {
			slog.Error("step failed", "error", err)
			return
		}
		perf.RecordFrame()
		// Flush only on the frame that crossed the window boundary, so
		// pausing on a boundary tick does not repeat the flush.
		if s.Tick() > tick && s.Tick()%windowTicks == 0 {
			flush()
		}

		rl.BeginDrawing()
		rl.ClearBackground(rl.Color{R: 12, G: 16, B: 24, A: 255})
		if s.Dirty() {
			s.ClearDirty()
		}
		trails.Draw(s.SourcePositions(), s.TargetPositions(), s.NumParticles(), s.MaxAge())

		if rl.IsKeyPressed(rl.KeyTab) {
			panel.Toggle()
		}
		panel.Draw(&ctl)
		if ctl.Clear {
			ctl.Clear = false
			if err := s.Clear(); err != nil {
				slog.Error("clear failed", "error", err)
			}
		}
		if ctl.Changed {
			ctl.Changed = false
			simCfg.SpeedFactor = float64(ctl.SpeedFactor)
			simCfg.Animate = ctl.Animate
			if err := s.Reconfigure(simCfg); err != nil {
				slog.Error("reconfigure failed", "error", err)
			}
		}
		rl.EndDrawing()

		if maxTicks > 0 && int(s.Tick()) >= maxTicks {
			break
		}
	}
}

// flatViewport builds a plate carree viewport snapshot covering bounds.
func flatViewport(b sim.Bounds, width, height float64) *sim.Viewport {
	return &sim.Viewport{
		Lon:              (b.MinLon + b.MaxLon) / 2,
		Lat:              (b.MinLat + b.MaxLat) / 2,
		Zoom:             0,
		Width:            width,
		Height:           height,
		DevicePixelRatio: 1,
		Spherical:        false,
		Bounds:           b,
		Unproject: func(x, y float64) (lon, lat float64, ok bool) {
			lon = b.MinLon + x/width*(b.MaxLon-b.MinLon)
			lat = b.MaxLat - y/height*(b.MaxLat-b.MinLat)
			return lon, lat, true
		},
	}
}
