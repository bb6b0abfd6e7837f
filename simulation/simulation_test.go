package simulation

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/pthm-cable/collagen/config"
	"github.com/pthm-cable/collagen/obstacle"
	"github.com/pthm-cable/collagen/telemetry"
	"github.com/pthm-cable/collagen/tensor"
	"github.com/pthm-cable/collagen/vmath"
)

// testParams uses the default network at a smaller population.
func testParams() Params {
	return Params{
		Particles:      200,
		Diffusion:      5,
		DT:             0.5,
		Dimensions:     3,
		ParticleRadius: 5,
		Field:          obstacle.New(15, 80, 320, 240),
		TensorEnabled:  true,
		TensorMode:     tensor.ModeCorrected,
		Seed:           42,
	}
}

func newSim(t *testing.T, p Params, opts ...Option) *Simulation {
	t.Helper()
	s, err := New(p, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func runSteps(t *testing.T, s *Simulation, n int) StepStats {
	t.Helper()
	var st StepStats
	for i := 0; i < n; i++ {
		var err error
		st, err = s.Step()
		if err != nil {
			t.Fatalf("Step %d: %v", i+1, err)
		}
	}
	return st
}

func TestNewRejectsBadParams(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *Params)
	}{
		{"no particles", func(p *Params) { p.Particles = 0 }},
		{"one dimension", func(p *Params) { p.Dimensions = 1 }},
		{"zero dt", func(p *Params) { p.DT = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testParams()
			tt.mutate(&p)
			if _, err := New(p); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestNilSimulationStep(t *testing.T) {
	var s *Simulation
	if _, err := s.Step(); !errors.Is(err, ErrNilSimulation) {
		t.Errorf("Step on nil = %v, want ErrNilSimulation", err)
	}
	s.Close() // must not panic
}

func TestNilSimulationAccessors(t *testing.T) {
	var s *Simulation
	if err := s.Reset(); !errors.Is(err, ErrNilSimulation) {
		t.Errorf("Reset on nil = %v, want ErrNilSimulation", err)
	}
	if s.StepIndex() != 0 || s.Time() != 0 || s.Len() != 0 {
		t.Errorf("nil accessors = %d, %v, %d", s.StepIndex(), s.Time(), s.Len())
	}
	if _, ok := s.Tensor(); ok {
		t.Error("Tensor on nil reported ok")
	}
	if got := s.Particles(); len(got) != 0 {
		t.Errorf("Particles on nil = %v", got)
	}
	dst := []ParticleView{{Radius: 1}}
	if got := s.ParticlesInto(dst); len(got) != 1 {
		t.Errorf("ParticlesInto on nil changed dst: %v", got)
	}
}

func TestInitialPlacement(t *testing.T) {
	p := testParams()
	p.Start = vmath.Vec3{X: 320, Y: 240, Z: 7}
	p.Dimensions = 2
	s := newSim(t, p)

	particles := s.Particles()
	if len(particles) != p.Particles {
		t.Fatalf("got %d particles, want %d", len(particles), p.Particles)
	}
	want := vmath.Vec3{X: 320, Y: 240}
	for i, pv := range particles {
		if pv.Position != want {
			t.Fatalf("particle %d at %+v, want %+v", i, pv.Position, want)
		}
		if pv.Radius != p.ParticleRadius {
			t.Fatalf("particle %d radius %v, want %v", i, pv.Radius, p.ParticleRadius)
		}
	}
	if s.StepIndex() != 0 {
		t.Errorf("StepIndex() = %d, want 0", s.StepIndex())
	}
	if _, ok := s.Tensor(); ok {
		t.Error("tensor reported valid before the first step")
	}
}

func TestZeroDiffusionNeverMoves(t *testing.T) {
	p := testParams()
	p.Particles = 1
	p.Diffusion = 0
	s := newSim(t, p)

	for i := 0; i < 100; i++ {
		st, err := s.Step()
		if err != nil {
			t.Fatal(err)
		}
		if st.MSD != 0 {
			t.Fatalf("step %d: MSD = %v, want 0", st.Step, st.MSD)
		}
	}
	if got := s.Particles()[0].Position; got != (vmath.Vec3{}) {
		t.Errorf("particle moved to %+v", got)
	}
	if s.StepIndex() != 100 {
		t.Errorf("StepIndex() = %d, want 100", s.StepIndex())
	}
}

func TestAcceptedMovesNeverEnterObstacles(t *testing.T) {
	for _, dim := range []int{2, 3} {
		for _, workers := range []int{0, 4} {
			p := testParams()
			p.Dimensions = dim
			p.Workers = workers
			// Large steps make collisions frequent.
			p.Diffusion = 40
			s := newSim(t, p)

			rejected := 0
			for step := 0; step < 200; step++ {
				st, err := s.Step()
				if err != nil {
					t.Fatal(err)
				}
				rejected += st.Rejected
				if st.Accepted+st.Rejected != p.Particles {
					t.Fatalf("step %d: %d accepted + %d rejected != %d", st.Step, st.Accepted, st.Rejected, p.Particles)
				}
				for i, pv := range s.Particles() {
					if p.Field.Contains(pv.Position, pv.Radius) {
						t.Fatalf("dim=%d workers=%d step %d: particle %d inside obstacle at %+v",
							dim, workers, st.Step, i, pv.Position)
					}
					if dim == 2 && pv.Position.Z != 0 {
						t.Fatalf("planar particle %d has z = %v", i, pv.Position.Z)
					}
				}
			}
			if rejected == 0 {
				t.Errorf("dim=%d workers=%d: no move was ever rejected", dim, workers)
			}
		}
	}
}

func TestSeedReproducible(t *testing.T) {
	for _, workers := range []int{0, 3} {
		p := testParams()
		p.Workers = workers
		a := newSim(t, p)
		b := newSim(t, p)
		runSteps(t, a, 50)
		runSteps(t, b, 50)

		pa, pb := a.Particles(), b.Particles()
		for i := range pa {
			if pa[i] != pb[i] {
				t.Fatalf("workers=%d: particle %d differs: %+v vs %+v", workers, i, pa[i], pb[i])
			}
		}
		ta, _ := a.Tensor()
		tb, _ := b.Tensor()
		if ta != tb {
			t.Errorf("workers=%d: tensors differ: %v vs %v", workers, ta, tb)
		}
	}
}

func TestDifferentSeedsDiverge(t *testing.T) {
	p := testParams()
	a := newSim(t, p)
	p.Seed = 43
	b := newSim(t, p)
	runSteps(t, a, 5)
	runSteps(t, b, 5)
	if a.Particles()[0] == b.Particles()[0] {
		t.Error("different seeds produced the same first particle")
	}
}

func TestTensorUsesPreMovePositions(t *testing.T) {
	p := testParams()
	p.Particles = 50
	s := newSim(t, p)
	runSteps(t, s, 10)

	before := s.Particles()
	st := runSteps(t, s, 1)

	var raw tensor.Tensor
	for _, pv := range before {
		o := pv.Position.Outer()
		for i := range raw {
			raw[i] += o[i]
		}
	}
	coef := tensor.Coefficient(st.Step, p.DT, p.Particles)
	for i := range raw {
		want := raw[i] * coef
		if math.Abs(st.Tensor[i]-want) > 1e-9*math.Max(1, math.Abs(want)) {
			t.Errorf("component %d = %v, want %v", i, st.Tensor[i], want)
		}
	}
	if !st.TensorValid {
		t.Error("TensorValid not set")
	}
}

func TestFirstStepTensorIsZero(t *testing.T) {
	s := newSim(t, testParams())
	st := runSteps(t, s, 1)
	if st.Tensor != (tensor.Tensor{}) {
		t.Errorf("first step tensor = %v, want zero (all particles at start)", st.Tensor)
	}
}

func TestLegacyModeSameWalkDifferentTensor(t *testing.T) {
	p := testParams()
	corrected := newSim(t, p)
	p.TensorMode = tensor.ModeLegacy
	legacy := newSim(t, p)

	runSteps(t, corrected, 20)
	runSteps(t, legacy, 20)

	pc, pl := corrected.Particles(), legacy.Particles()
	for i := range pc {
		if pc[i] != pl[i] {
			t.Fatalf("tensor mode changed the walk at particle %d", i)
		}
	}

	tc, _ := corrected.Tensor()
	tl, _ := legacy.Tensor()
	if math.Abs(tc[tensor.XX]-tl[tensor.XX]) < 1e-9 {
		t.Errorf("legacy tensor matches corrected for N=%d: %v", p.Particles, tc)
	}
}

func TestTensorDisabled(t *testing.T) {
	p := testParams()
	p.TensorEnabled = false
	var buf bytes.Buffer
	s := newSim(t, p, WithTensorWriter(&buf))
	st := runSteps(t, s, 3)
	if st.TensorValid {
		t.Error("TensorValid set with accumulation disabled")
	}
	if _, ok := s.Tensor(); ok {
		t.Error("Tensor() ok with accumulation disabled")
	}
	if buf.Len() != 0 {
		t.Errorf("tensor writer received %q", buf.String())
	}
}

func TestTensorWriterFormat(t *testing.T) {
	var buf bytes.Buffer
	s := newSim(t, testParams(), WithTensorWriter(&buf))
	runSteps(t, s, 2)

	blocks := strings.Split(strings.TrimSuffix(buf.String(), "\n\n"), "\n\n")
	if len(blocks) != 2 {
		t.Fatalf("got %d tensor blocks, want 2:\n%s", len(blocks), buf.String())
	}
	for _, block := range blocks {
		rows := strings.Split(block, "\n")
		if len(rows) != 3 {
			t.Fatalf("block has %d rows, want 3: %q", len(rows), block)
		}
		for _, row := range rows {
			if n := len(strings.Split(row, ", ")); n != 3 {
				t.Errorf("row %q has %d values, want 3", row, n)
			}
		}
	}
}

func TestFreeDiffusionMSD(t *testing.T) {
	for _, dim := range []int{2, 3} {
		p := testParams()
		p.Dimensions = dim
		p.Particles = 2000
		p.Diffusion = 1
		p.DT = 1
		p.ParticleRadius = 0
		p.Field = obstacle.New(0, 80, 0, 0)
		s := newSim(t, p)

		st := runSteps(t, s, 50)
		if st.Rejected != 0 {
			t.Errorf("dim=%d: %d rejections in an empty field", dim, st.Rejected)
		}

		want := 2 * float64(dim) * p.Diffusion * st.Time
		if math.Abs(st.MSD-want)/want > 0.1 {
			t.Errorf("dim=%d: MSD = %v, want ~%v", dim, st.MSD, want)
		}
		if math.Abs(st.EffectiveDiffusivity-p.Diffusion) > 0.1 {
			t.Errorf("dim=%d: D_eff = %v, want ~%v", dim, st.EffectiveDiffusivity, p.Diffusion)
		}
	}
}

func TestObstaclesSlowDiffusion(t *testing.T) {
	p := testParams()
	p.Dimensions = 2
	p.Particles = 1000
	p.TensorEnabled = false
	// Exclusion discs of radius 30 leave 20-unit channels between fibres.
	p.Field = obstacle.New(25, 80, 320, 240)
	s := newSim(t, p)

	st := runSteps(t, s, 2000)
	ratio := st.EffectiveDiffusivity / p.Diffusion
	if ratio >= 0.93 || ratio <= 0.3 {
		t.Errorf("D_eff/D0 = %v, want hindered diffusion in (0.3, 0.93)", ratio)
	}
}

func TestReset(t *testing.T) {
	p := testParams()
	s := newSim(t, p)
	runSteps(t, s, 10)
	if err := s.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	if s.StepIndex() != 0 {
		t.Errorf("StepIndex() after Reset = %d", s.StepIndex())
	}
	for i, pv := range s.Particles() {
		if pv.Position != p.Start {
			t.Fatalf("particle %d at %+v after Reset", i, pv.Position)
		}
	}
	st := runSteps(t, s, 1)
	if st.Step != 1 {
		t.Errorf("first step after Reset has index %d", st.Step)
	}
}

func TestParamsFromConfig(t *testing.T) {
	cfg, err := config.Defaults()
	if err != nil {
		t.Fatal(err)
	}
	p := ParamsFromConfig(cfg, 0)
	if p.Seed != cfg.Simulation.Seed {
		t.Errorf("seed = %d, want config seed %d", p.Seed, cfg.Simulation.Seed)
	}
	if p.Particles != cfg.Simulation.Particles || p.Field != cfg.Derived.Field {
		t.Errorf("params %+v do not match config", p)
	}

	if p := ParamsFromConfig(cfg, 77); p.Seed != 77 {
		t.Errorf("seed override = %d, want 77", p.Seed)
	}
}

func TestChunkSeedsDistinct(t *testing.T) {
	seen := make(map[int64]bool)
	for i := 0; i < 64; i++ {
		s := chunkSeed(42, i)
		if seen[s] {
			t.Fatalf("chunk %d reuses seed %d", i, s)
		}
		seen[s] = true
	}
}

func TestStepStatsAcceptanceRatio(t *testing.T) {
	if got := (StepStats{Accepted: 3, Rejected: 1}).AcceptanceRatio(); got != 0.75 {
		t.Errorf("AcceptanceRatio = %v, want 0.75", got)
	}
	if got := (StepStats{}).AcceptanceRatio(); got != 0 {
		t.Errorf("empty AcceptanceRatio = %v, want 0", got)
	}
}

type phaseRecorder struct {
	phases []string
}

func (r *phaseRecorder) StartPhase(phase string) {
	r.phases = append(r.phases, phase)
}

func TestPhaseTimerOrder(t *testing.T) {
	rec := &phaseRecorder{}
	var buf bytes.Buffer
	s := newSim(t, testParams(), WithPhaseTimer(rec), WithTensorWriter(&buf))
	runSteps(t, s, 1)

	want := []string{"snapshot", "tensor", "walk", "apply", "emit"}
	if strings.Join(rec.phases, ",") != strings.Join(want, ",") {
		t.Errorf("phases = %v, want %v", rec.phases, want)
	}
}

func TestPerfCollectorTimesEveryPhase(t *testing.T) {
	perf := telemetry.NewPerfCollector(10)
	var buf bytes.Buffer
	s := newSim(t, testParams(), WithPhaseTimer(perf), WithTensorWriter(&buf))

	for i := 0; i < 3; i++ {
		perf.StartStep()
		if _, err := s.Step(); err != nil {
			t.Fatalf("Step: %v", err)
		}
		perf.StartPhase(telemetry.PhaseTelemetry)
		perf.EndStep()
	}

	stats := perf.Stats()
	if stats.AvgStepDuration <= 0 {
		t.Errorf("AvgStepDuration = %v, want > 0", stats.AvgStepDuration)
	}
	for _, phase := range []string{
		telemetry.PhaseSnapshot, telemetry.PhaseTensor, telemetry.PhaseWalk,
		telemetry.PhaseApply, telemetry.PhaseEmit, telemetry.PhaseTelemetry,
	} {
		if _, ok := stats.PhaseAvg[phase]; !ok {
			t.Errorf("phase %q not recorded; got %v", phase, stats.PhaseAvg)
		}
	}
	if len(stats.PhaseAvg) != 6 {
		t.Errorf("recorded %d phases, want 6: %v", len(stats.PhaseAvg), stats.PhaseAvg)
	}
}

func TestStepStatsRecord(t *testing.T) {
	st := StepStats{
		Step:        3,
		Time:        1.5,
		Accepted:    3,
		Rejected:    1,
		MSD:         12,
		Tensor:      tensor.Tensor{2, 0, 0, 4, 0, 6},
		TensorValid: true,
	}
	rec := st.Record(3)
	if rec.Step != 3 || rec.Acceptance != 0.75 || rec.MSD != 12 {
		t.Errorf("unexpected record %+v", rec)
	}
	if rec.DXX != 2 || rec.DYY != 4 || rec.DZZ != 6 {
		t.Errorf("tensor columns = %v %v %v", rec.DXX, rec.DYY, rec.DZZ)
	}
	if math.Abs(rec.MD-4) > 1e-12 {
		t.Errorf("md = %v, want 4", rec.MD)
	}
	if rec.FA <= 0 || rec.FA >= 1 {
		t.Errorf("fa = %v, want in (0,1)", rec.FA)
	}

	st.TensorValid = false
	if rec := st.Record(3); rec.DXX != 0 || rec.MD != 0 {
		t.Errorf("record without tensor has tensor columns: %+v", rec)
	}
}
