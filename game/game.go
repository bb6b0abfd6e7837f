// Package game drives a simulation run, headless or in a raylib window.
package game

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/pthm-cable/collagen/camera"
	"github.com/pthm-cable/collagen/config"
	"github.com/pthm-cable/collagen/renderer"
	"github.com/pthm-cable/collagen/simulation"
	"github.com/pthm-cable/collagen/telemetry"
	"github.com/pthm-cable/collagen/ui"
)

// Options configures a game instance.
type Options struct {
	Seed           int64
	LogStats       bool      // log step stats via slog
	OutputDir      string    // CSV and config snapshot directory (empty = off)
	Headless       bool      // skip every raylib resource
	StepsPerUpdate int       // simulation steps per update call (0 = config)
	TensorOut      io.Writer // tensor text stream (nil = off)

	// StatsCallback is called with every flushed step record.
	StatsCallback func(telemetry.StepRecord)
}

// Game holds the complete run state.
type Game struct {
	cfg    *config.Config
	params simulation.Params
	sim    *simulation.Simulation

	// Telemetry
	perfCollector *telemetry.PerfCollector
	outputManager *telemetry.OutputManager
	logStats      bool
	statsCallback func(telemetry.StepRecord)
	lastStats     simulation.StepStats
	lastRecord    telemetry.StepRecord
	distances     []float64

	// State
	paused         bool
	stepOnce       bool
	stepsPerUpdate int
	headless       bool

	// Rendering (nil when headless)
	camera           *camera.Camera
	background       *renderer.BackgroundRenderer
	network          *renderer.NetworkRenderer
	particleRenderer *renderer.ParticleRenderer
	views            []simulation.ParticleView

	// UI
	hud        *ui.HUD
	statsPanel *ui.StatsPanel
	perfPanel  *ui.PerfPanel
	controls   *ui.ControlsPanel
	uiOverlays *ui.OverlayRegistry

	screenWidth, screenHeight float32
}

// NewGameWithOptions creates a game from the global config.
func NewGameWithOptions(opts Options) (*Game, error) {
	cfg := config.Cfg()

	params := simulation.ParamsFromConfig(cfg, opts.Seed)

	perf := telemetry.NewPerfCollector(cfg.Telemetry.PerfCollectorWindow)
	simOpts := []simulation.Option{simulation.WithPhaseTimer(perf)}
	if opts.TensorOut != nil && cfg.Tensor.Emit {
		simOpts = append(simOpts, simulation.WithTensorWriter(opts.TensorOut))
	}

	sim, err := simulation.New(params, simOpts...)
	if err != nil {
		return nil, fmt.Errorf("creating simulation: %w", err)
	}

	om, err := telemetry.NewOutputManager(opts.OutputDir)
	if err != nil {
		sim.Close()
		return nil, fmt.Errorf("creating output manager: %w", err)
	}
	if err := om.WriteConfig(cfg); err != nil {
		slog.Error("failed to write config", "error", err)
	}

	stepsPerUpdate := opts.StepsPerUpdate
	if stepsPerUpdate < 1 {
		stepsPerUpdate = cfg.Render.StepsPerFrame
	}

	g := &Game{
		cfg:            cfg,
		params:         params,
		sim:            sim,
		perfCollector:  perf,
		outputManager:  om,
		logStats:       opts.LogStats,
		statsCallback:  opts.StatsCallback,
		stepsPerUpdate: stepsPerUpdate,
		headless:       opts.Headless,
		distances:      make([]float64, 0, params.Particles),
		screenWidth:    cfg.Derived.ScreenW32,
		screenHeight:   cfg.Derived.ScreenH32,
	}

	if !opts.Headless {
		g.initGraphics()
	}

	g.logRunStart()
	return g, nil
}

// initGraphics creates the camera, renderers and UI panels.
func (g *Game) initGraphics() {
	cfg := g.cfg
	g.camera = camera.New(g.screenWidth, g.screenHeight, float32(cfg.World.Width), float32(cfg.World.Height))
	g.background = renderer.NewBackgroundRenderer(14, 18, 24)
	g.network = renderer.NewNetworkRenderer(g.params.Field, g.params.ParticleRadius)
	g.particleRenderer = renderer.NewParticleRenderer(cfg.Render.MaxParticles, cfg.Render.ParticleDrawMin)
	g.views = make([]simulation.ParticleView, 0, g.params.Particles)

	g.hud = ui.NewHUD()
	g.controls = ui.NewControlsPanel(10, 10, 220)
	g.statsPanel = ui.NewStatsPanel(int32(g.screenWidth)-290, 10, 280)
	g.perfPanel = ui.NewPerfPanel(int32(g.screenWidth)-290, 300)
	g.uiOverlays = ui.NewOverlayRegistry()
}

// Step returns the number of completed simulation steps.
func (g *Game) Step() int {
	return g.sim.StepIndex()
}

// Simulation returns the underlying simulation.
func (g *Game) Simulation() *simulation.Simulation {
	return g.sim
}

// LastRecord returns the most recently flushed step record.
func (g *Game) LastRecord() telemetry.StepRecord {
	return g.lastRecord
}

// Restart returns every particle to the start point.
func (g *Game) Restart() {
	if err := g.sim.Reset(); err != nil {
		slog.Error("failed to restart", "error", err)
		return
	}
	g.lastStats = simulation.StepStats{}
	g.lastRecord = telemetry.StepRecord{}
	slog.Info("simulation restarted")
}

// Unload releases resources and flushes output files.
func (g *Game) Unload() error {
	g.sim.Close()
	if err := g.outputManager.Close(); err != nil {
		return fmt.Errorf("closing output files: %w", err)
	}
	return nil
}
