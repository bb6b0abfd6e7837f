package game

import (
	"log/slog"

	"github.com/pthm-cable/collagen/sampling"
)

// logRunStart logs the run parameters once.
func (g *Game) logRunStart() {
	p := g.params
	slog.Info("simulation created",
		"particles", p.Particles,
		"dimensions", p.Dimensions,
		"diffusion", p.Diffusion,
		"dt", p.DT,
		"step_length", g.stepLength(),
		"particle_radius", p.ParticleRadius,
		"fiber_radius", p.Field.Radius,
		"spacing", p.Field.Spacing,
		"porosity", p.Field.Porosity(),
		"start_x", p.Start.X,
		"start_y", p.Start.Y,
		"tensor", p.TensorEnabled,
		"tensor_mode", p.TensorMode.String(),
		"direction_2d", p.Direction.String(),
		"seed", p.Seed,
		"workers", p.Workers,
		"output_dir", g.outputManager.Dir(),
	)
}

// stepLength is the fixed displacement length per trial move.
func (g *Game) stepLength() float64 {
	return sampling.DisplacementMagnitude(g.params.Diffusion, g.params.DT, g.params.Dimensions)
}
