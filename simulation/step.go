package simulation

import (
	"fmt"
	"log/slog"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/collagen/sampling"
	"github.com/pthm-cable/collagen/telemetry"
	"github.com/pthm-cable/collagen/tensor"
	"github.com/pthm-cable/collagen/vmath"
)

// particleSnapshot captures read-only particle state for the walk phase.
type particleSnapshot struct {
	Entity ecs.Entity
	Pos    vmath.Vec3
	Radius float64
}

// proposal is the outcome of one particle's trial move.
type proposal struct {
	NewPos   vmath.Vec3
	Accepted bool
}

// StepStats summarises one completed step.
type StepStats struct {
	Step     int
	Time     float64
	Accepted int
	Rejected int

	// MSD is the mean squared displacement from the start point after the step.
	MSD float64
	// EffectiveDiffusivity is MSD/(2·d·t).
	EffectiveDiffusivity float64

	// Tensor is valid only when TensorValid is set.
	Tensor      tensor.Tensor
	TensorValid bool
}

// AcceptanceRatio returns the fraction of committed moves this step.
func (st StepStats) AcceptanceRatio() float64 {
	total := st.Accepted + st.Rejected
	if total == 0 {
		return 0
	}
	return float64(st.Accepted) / float64(total)
}

// LogValue implements slog.LogValuer for structured logging.
func (st StepStats) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int("step", st.Step),
		slog.Float64("time", st.Time),
		slog.Int("accepted", st.Accepted),
		slog.Int("rejected", st.Rejected),
		slog.Float64("msd", st.MSD),
		slog.Float64("d_eff", st.EffectiveDiffusivity),
	}
	if st.TensorValid {
		attrs = append(attrs, slog.Any("tensor", st.Tensor))
	}
	return slog.GroupValue(attrs...)
}

// Record flattens the stats into a steps.csv row. Distance columns are left
// for the caller.
func (st StepStats) Record(dim int) telemetry.StepRecord {
	rec := telemetry.StepRecord{
		Step:       st.Step,
		Time:       st.Time,
		Accepted:   st.Accepted,
		Rejected:   st.Rejected,
		Acceptance: st.AcceptanceRatio(),
		MSD:        st.MSD,
		DEff:       st.EffectiveDiffusivity,
	}
	if st.TensorValid {
		t := st.Tensor
		rec.DXX, rec.DXY, rec.DXZ = t[tensor.XX], t[tensor.XY], t[tensor.XZ]
		rec.DYY, rec.DYZ, rec.DZZ = t[tensor.YY], t[tensor.YZ], t[tensor.ZZ]
		if a, err := t.Analyze(dim); err == nil {
			rec.MD = a.MeanDiffusivity
			rec.FA = a.FractionalAnisotropy
		}
	}
	return rec
}

// Step advances the simulation by dt. Every particle proposes one move;
// moves landing inside an obstacle are discarded.
func (s *Simulation) Step() (StepStats, error) {
	if s == nil {
		return StepStats{}, ErrNilSimulation
	}

	s.step++

	// Phase A: snapshot in population order
	s.startPhase(telemetry.PhaseSnapshot)
	s.takeSnapshots()

	// Phase B: tensor of pre-move positions. Moves never read other
	// particles, so accumulating before the walk equals interleaving it.
	if s.params.TensorEnabled {
		s.startPhase(telemetry.PhaseTensor)
		s.accumulateTensor()
	}

	// Phase C: propose and test moves
	s.startPhase(telemetry.PhaseWalk)
	n := len(s.snapshots)
	if cap(s.proposals) < n {
		s.proposals = make([]proposal, n)
	}
	s.proposals = s.proposals[:n]

	if s.parallel != nil {
		s.parallel.compute(s, n)
	} else {
		s.computeChunk(0, n, s.sampler)
	}

	// Phase D: commit (single-threaded, preserves determinism)
	s.startPhase(telemetry.PhaseApply)
	stats := s.applyProposals()

	if stats.TensorValid && s.tensorOut != nil {
		s.startPhase(telemetry.PhaseEmit)
		if err := stats.Tensor.WriteRows(s.tensorOut); err != nil {
			return stats, fmt.Errorf("writing tensor: %w", err)
		}
	}

	return stats, nil
}

func (s *Simulation) startPhase(phase string) {
	if s.timer != nil {
		s.timer.StartPhase(phase)
	}
}

// takeSnapshots copies particle state into s.snapshots.
func (s *Simulation) takeSnapshots() {
	s.snapshots = s.snapshots[:0]
	query := s.filter.Query()
	for query.Next() {
		pos, body, _ := query.Get()
		s.snapshots = append(s.snapshots, particleSnapshot{
			Entity: query.Entity(),
			Pos:    pos.Vec3,
			Radius: body.Radius,
		})
	}
}

// accumulateTensor rebuilds the tensor from the current snapshot.
func (s *Simulation) accumulateTensor() {
	s.acc.Reset(s.step, s.params.DT, s.params.Particles)
	for i := range s.snapshots {
		s.acc.Add(s.snapshots[i].Pos)
	}
	s.tensor = s.acc.Tensor()
}

// computeChunk proposes moves for snapshots [i0, i1) using the given sampler.
func (s *Simulation) computeChunk(i0, i1 int, sampler *sampling.Sampler) {
	p := &s.params
	for i := i0; i < i1; i++ {
		snap := &s.snapshots[i]
		step := sampler.Displacement(p.Diffusion, p.DT, p.Dimensions)
		candidate := snap.Pos.Add(step)

		if p.Field.Contains(candidate, snap.Radius) {
			s.proposals[i] = proposal{NewPos: snap.Pos, Accepted: false}
			continue
		}
		s.proposals[i] = proposal{NewPos: candidate, Accepted: true}
	}
}

// applyProposals writes committed moves back to the ECS and gathers stats.
func (s *Simulation) applyProposals() StepStats {
	stats := StepStats{
		Step: s.step,
		Time: s.Time(),
	}

	var sumSq float64
	for i := range s.snapshots {
		snap := &s.snapshots[i]
		prop := &s.proposals[i]

		pos := s.posMap.Get(snap.Entity)
		walk := s.walkMap.Get(snap.Entity)

		if prop.Accepted {
			pos.Vec3 = prop.NewPos
			walk.Accepted++
			stats.Accepted++
		} else {
			walk.Rejected++
			stats.Rejected++
		}
		sumSq += pos.Vec3.Sub(s.params.Start).Len2()
	}

	n := len(s.snapshots)
	if n > 0 {
		stats.MSD = sumSq / float64(n)
		stats.EffectiveDiffusivity = stats.MSD / (2 * float64(s.params.Dimensions) * stats.Time)
	}
	if s.params.TensorEnabled {
		stats.Tensor = s.tensor
		stats.TensorValid = true
	}
	return stats
}
