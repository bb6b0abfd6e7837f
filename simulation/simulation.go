// Package simulation runs the obstructed random walk and accumulates the
// diffusion tensor.
package simulation

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/collagen/components"
	"github.com/pthm-cable/collagen/config"
	"github.com/pthm-cable/collagen/obstacle"
	"github.com/pthm-cable/collagen/sampling"
	"github.com/pthm-cable/collagen/tensor"
	"github.com/pthm-cable/collagen/vmath"
)

// ErrNilSimulation is returned when a method is called on a nil *Simulation.
var ErrNilSimulation = errors.New("simulation: nil simulation")

// Params fixes a run. Build it with ParamsFromConfig or by hand in tests.
type Params struct {
	Particles      int
	Diffusion      float64 // D0
	DT             float64
	Dimensions     int
	ParticleRadius float64
	Start          vmath.Vec3
	Field          obstacle.Field
	Direction      sampling.Method

	TensorEnabled bool
	TensorMode    tensor.Mode

	Seed    int64
	Workers int
}

// ParamsFromConfig maps a loaded config onto Params. seed overrides the
// configured seed when non-zero.
func ParamsFromConfig(cfg *config.Config, seed int64) Params {
	if seed == 0 {
		seed = cfg.Simulation.Seed
	}
	return Params{
		Particles:      cfg.Simulation.Particles,
		Diffusion:      cfg.Simulation.Diffusion,
		DT:             cfg.Simulation.DT,
		Dimensions:     cfg.Simulation.Dimensions,
		ParticleRadius: cfg.Simulation.ParticleRadius,
		Start:          cfg.Derived.Start,
		Field:          cfg.Derived.Field,
		Direction:      cfg.Derived.DirectionMethod,
		TensorEnabled:  cfg.Tensor.Enabled,
		TensorMode:     cfg.Derived.TensorMode,
		Seed:           seed,
		Workers:        cfg.Simulation.Workers,
	}
}

// Option configures a Simulation.
type Option func(*Simulation)

// WithTensorWriter writes the tensor rows to w after every step.
func WithTensorWriter(w io.Writer) Option {
	return func(s *Simulation) {
		s.tensorOut = w
	}
}

// WithPhaseTimer reports the start of each step phase to t.
func WithPhaseTimer(t PhaseTimer) Option {
	return func(s *Simulation) {
		s.timer = t
	}
}

// PhaseTimer receives phase boundaries within Step.
type PhaseTimer interface {
	StartPhase(phase string)
}

// ParticleView is a particle as seen by renderers, in domain coordinates.
type ParticleView struct {
	Position vmath.Vec3
	Radius   float64

	// RejectedShare is the fraction of this particle's moves that were
	// rejected, 0 before the first step.
	RejectedShare float64
}

// Simulation owns the particle population, the obstacle field, the random
// streams and the tensor accumulator.
type Simulation struct {
	params Params

	world  *ecs.World
	mapper *ecs.Map3[components.Position, components.Body, components.Walk]
	filter *ecs.Filter3[components.Position, components.Body, components.Walk]

	posMap  *ecs.Map1[components.Position]
	walkMap *ecs.Map1[components.Walk]

	sampler  *sampling.Sampler
	acc      *tensor.Accumulator
	tensor   tensor.Tensor
	parallel *parallelState

	snapshots []particleSnapshot
	proposals []proposal

	step      int
	tensorOut io.Writer
	timer     PhaseTimer
}

// New creates a simulation with every particle at p.Start.
func New(p Params, opts ...Option) (*Simulation, error) {
	if p.Particles < 1 {
		return nil, fmt.Errorf("simulation: need at least one particle, got %d", p.Particles)
	}
	if p.Dimensions != 2 && p.Dimensions != 3 {
		return nil, fmt.Errorf("simulation: dimensions must be 2 or 3, got %d", p.Dimensions)
	}
	if p.DT <= 0 {
		return nil, fmt.Errorf("simulation: dt must be positive, got %v", p.DT)
	}
	if p.Dimensions == 2 {
		p.Start.Z = 0
	}

	if p.Field.Overlapping() {
		slog.Warn("obstacles overlap", "radius", p.Field.Radius, "spacing", p.Field.Spacing)
	}
	if p.Field.Contains(p.Start, p.ParticleRadius) {
		slog.Warn("start point lies inside an obstacle; particles will never move",
			"x", p.Start.X, "y", p.Start.Y)
	}

	world := ecs.NewWorld()
	s := &Simulation{
		params:  p,
		world:   world,
		mapper:  ecs.NewMap3[components.Position, components.Body, components.Walk](world),
		filter:  ecs.NewFilter3[components.Position, components.Body, components.Walk](world),
		posMap:  ecs.NewMap1[components.Position](world),
		walkMap: ecs.NewMap1[components.Walk](world),
		sampler: sampling.NewSampler(p.Seed, p.Direction),
		acc:     tensor.NewAccumulator(p.TensorMode, p.Start),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.spawnParticles()

	if p.Workers > 1 {
		s.parallel = newParallelState(p.Workers, p.Seed, p.Direction)
	}

	return s, nil
}

// spawnParticles creates the fixed population at the start point.
func (s *Simulation) spawnParticles() {
	for i := 0; i < s.params.Particles; i++ {
		pos := components.Position{Vec3: s.params.Start}
		body := components.Body{Radius: s.params.ParticleRadius}
		walk := components.Walk{}
		s.mapper.NewEntity(&pos, &body, &walk)
	}
	s.snapshots = make([]particleSnapshot, 0, s.params.Particles)
	s.proposals = make([]proposal, 0, s.params.Particles)
}

// Close stops any walker goroutines.
func (s *Simulation) Close() {
	if s != nil && s.parallel != nil {
		s.parallel.stopWorkers()
	}
}

// Params returns the run parameters.
func (s *Simulation) Params() Params {
	if s == nil {
		return Params{}
	}
	return s.params
}

// Field returns the obstacle lattice.
func (s *Simulation) Field() obstacle.Field {
	if s == nil {
		return obstacle.Field{}
	}
	return s.params.Field
}

// StepIndex returns the number of completed steps, 0 for a nil simulation.
func (s *Simulation) StepIndex() int {
	if s == nil {
		return 0
	}
	return s.step
}

// Time returns the simulated time step·dt.
func (s *Simulation) Time() float64 {
	if s == nil {
		return 0
	}
	return float64(s.step) * s.params.DT
}

// Len returns the population size.
func (s *Simulation) Len() int {
	if s == nil {
		return 0
	}
	return s.params.Particles
}

// Tensor returns the latest tensor estimate. ok is false when accumulation is
// disabled, no step has run or s is nil.
func (s *Simulation) Tensor() (t tensor.Tensor, ok bool) {
	if s == nil || !s.params.TensorEnabled || s.step == 0 {
		return tensor.Tensor{}, false
	}
	return s.tensor, true
}

// ParticlesInto appends every particle in population order to dst. A nil
// simulation appends nothing.
func (s *Simulation) ParticlesInto(dst []ParticleView) []ParticleView {
	if s == nil {
		return dst
	}
	query := s.filter.Query()
	for query.Next() {
		pos, body, walk := query.Get()
		view := ParticleView{Position: pos.Vec3, Radius: body.Radius}
		if walk.Accepted+walk.Rejected > 0 {
			view.RejectedShare = 1 - walk.AcceptanceRatio()
		}
		dst = append(dst, view)
	}
	return dst
}

// Particles returns every particle in population order.
func (s *Simulation) Particles() []ParticleView {
	if s == nil {
		return nil
	}
	return s.ParticlesInto(make([]ParticleView, 0, s.params.Particles))
}

// Reset returns every particle to the start point and the step counter to
// zero. Random streams continue where they were.
func (s *Simulation) Reset() error {
	if s == nil {
		return ErrNilSimulation
	}
	query := s.filter.Query()
	for query.Next() {
		pos, _, walk := query.Get()
		pos.Vec3 = s.params.Start
		*walk = components.Walk{}
	}
	s.step = 0
	s.tensor = tensor.Tensor{}
	return nil
}
