package game

import (
	"fmt"
	"log/slog"

	"github.com/pthm-cable/collagen/telemetry"
)

// Update runs one frame of the graphical loop: input, then up to
// stepsPerUpdate simulation steps.
func (g *Game) Update() {
	g.handleInput()

	if g.paused && !g.stepOnce {
		return
	}
	n := g.stepsPerUpdate
	if g.stepOnce {
		n = 1
		g.stepOnce = false
	}
	for i := 0; i < n; i++ {
		if err := g.runStep(); err != nil {
			slog.Error("step failed, pausing", "step", g.Step(), "error", err)
			g.paused = true
			return
		}
	}
}

// UpdateHeadless runs stepsPerUpdate steps without touching raylib.
func (g *Game) UpdateHeadless() error {
	for i := 0; i < g.stepsPerUpdate; i++ {
		if err := g.runStep(); err != nil {
			return fmt.Errorf("step %d: %w", g.Step()+1, err)
		}
	}
	return nil
}

// runStep advances the simulation once and feeds telemetry.
func (g *Game) runStep() error {
	g.perfCollector.StartStep()

	stats, err := g.sim.Step()
	if err != nil {
		g.perfCollector.EndStep()
		return err
	}
	g.lastStats = stats

	g.perfCollector.StartPhase(telemetry.PhaseTelemetry)
	g.flushTelemetry()
	g.perfCollector.EndStep()
	return nil
}
