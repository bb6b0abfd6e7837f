package game

import (
	"log/slog"
	"math"
)

// flushTelemetry builds a step record every log interval and fans it out to
// the callback, the log and the CSV files.
func (g *Game) flushTelemetry() {
	interval := g.cfg.Telemetry.LogInterval
	if interval < 1 {
		interval = 1
	}
	step := g.sim.StepIndex()
	if step%interval != 0 {
		return
	}

	rec := g.lastStats.Record(g.params.Dimensions)
	rec.SetDistances(g.sampleDistances())
	g.lastRecord = rec
	perfStats := g.perfCollector.Stats()

	if g.statsCallback != nil {
		g.statsCallback(rec)
	}

	if g.logStats {
		rec.LogStats()
		slog.Info("perf", "stats", perfStats)
	}

	if g.outputManager != nil {
		if err := g.outputManager.WriteStep(rec); err != nil {
			slog.Error("failed to write step", "error", err)
		}
		if err := g.outputManager.WritePerf(perfStats, step); err != nil {
			slog.Error("failed to write perf", "error", err)
		}
	}
}

// sampleDistances collects each particle's distance from the start point.
func (g *Game) sampleDistances() []float64 {
	start := g.params.Start
	g.views = g.sim.ParticlesInto(g.views[:0])
	g.distances = g.distances[:0]
	for i := range g.views {
		g.distances = append(g.distances, math.Sqrt(g.views[i].Position.Sub(start).Len2()))
	}
	return g.distances
}
