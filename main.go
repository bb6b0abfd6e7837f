package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/collagen/config"
	"github.com/pthm-cable/collagen/game"
	"github.com/pthm-cable/collagen/telemetry"
)

func main() {
	if err := run(); err != nil {
		slog.Error("run failed", "error", err)
		os.Exit(1)
	}
}

// run parses flags and drives the simulation. Deferred cleanup runs before
// main decides the exit status.
func run() (err error) {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	headless := flag.Bool("headless", false, "Run without graphics")
	logStats := flag.Bool("log-stats", false, "Output step stats via slog")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	seed := flag.Int64("seed", 0, "RNG seed (0 = config, then time-based)")
	maxSteps := flag.Int("max-steps", 0, "Stop after N steps (0 = unlimited)")
	stepsPerUpdate := flag.Int("steps-per-update", 0, "Simulation steps per update call (0 = config)")
	tensorOut := flag.String("tensor-out", "-", "Tensor stream destination (- = stdout, empty = off)")
	workers := flag.Int("workers", -1, "Walk worker count (-1 = config)")

	flag.Parse()

	// Set up slog (JSON to stderr; stdout carries the tensor stream)
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	// Initialize config before anything else
	if err := config.Init(*configPath); err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg := config.Cfg()
	if *workers >= 0 {
		cfg.Simulation.Workers = *workers
	}

	// Set up seed
	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = cfg.Simulation.Seed
	}
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}

	tensorWriter, closeTensor, err := telemetry.OpenStream(*tensorOut)
	if err != nil {
		return fmt.Errorf("opening tensor output: %w", err)
	}
	defer func() {
		if cerr := closeTensor(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("tensor output: %w", cerr))
		}
	}()

	opts := game.Options{
		Seed:           rngSeed,
		LogStats:       *logStats,
		OutputDir:      *outputDir,
		Headless:       *headless,
		StepsPerUpdate: *stepsPerUpdate,
		TensorOut:      tensorWriter,
	}

	if *headless {
		// Headless mode - pure CPU simulation, no raylib needed
		g, gerr := game.NewGameWithOptions(opts)
		if gerr != nil {
			return fmt.Errorf("starting simulation: %w", gerr)
		}
		defer func() {
			if uerr := g.Unload(); uerr != nil {
				err = errors.Join(err, uerr)
			}
		}()

		slog.Info("starting headless simulation",
			"seed", rngSeed,
			"max_steps", *maxSteps,
			"steps_per_update", *stepsPerUpdate,
		)

		for {
			if err := g.UpdateHeadless(); err != nil {
				return err
			}

			if *maxSteps > 0 && g.Step() >= *maxSteps {
				slog.Info("max steps reached", "step", g.Step())
				return nil
			}
		}
	}

	// Graphical mode
	rl.SetConfigFlags(rl.FlagWindowResizable)
	rl.InitWindow(int32(cfg.Screen.Width), int32(cfg.Screen.Height), "Collagen Diffusion")
	defer rl.CloseWindow()

	rl.SetTargetFPS(int32(cfg.Screen.TargetFPS))

	g, err := game.NewGameWithOptions(opts)
	if err != nil {
		return fmt.Errorf("starting simulation: %w", err)
	}
	defer func() {
		if uerr := g.Unload(); uerr != nil {
			err = errors.Join(err, uerr)
		}
	}()

	for !rl.WindowShouldClose() {
		g.Update()
		g.Draw()

		if *maxSteps > 0 && g.Step() >= *maxSteps {
			break
		}
	}
	return nil
}
