// Package main runs headless forward simulations over a list of fibre radii
// and writes the effective diffusivity of each to CSV.
//
// Usage: go run ./cmd/sweep -radii 0,5,10,15,20,25 -steps 400 -out sweep.csv
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gocarina/gocsv"
	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/collagen/config"
	"github.com/pthm-cable/collagen/simulation"
)

// SweepRow is one row of the sweep CSV: a radius averaged over seeds.
type SweepRow struct {
	Radius     float64 `csv:"radius"`
	Porosity   float64 `csv:"porosity"`
	Seeds      int     `csv:"seeds"`
	Steps      int     `csv:"steps"`
	Acceptance float64 `csv:"acceptance"`
	MSD        float64 `csv:"msd"`
	DEff       float64 `csv:"d_eff"`
	DEffStd    float64 `csv:"d_eff_std"`
	DEffRatio  float64 `csv:"d_eff_ratio"` // D_eff / D0
	MD         float64 `csv:"md"`
	FA         float64 `csv:"fa"`
}

// runResult is the final step of one (radius, seed) run.
type runResult struct {
	radiusIdx int
	final     simulation.StepStats
	accepted  int
	rejected  int
	md, fa    float64
}

// formatDuration formats a duration as MM:SS or HH:MM:SS.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	return fmt.Sprintf("%dm%02ds", m, s)
}

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Base config YAML file (empty = use defaults)")
	radiiFlag := flag.String("radii", "0,5,10,15,20,25,30", "Comma-separated fibre radii")
	steps := flag.Int("steps", 400, "Steps per run")
	seeds := flag.Int("seeds", 3, "Number of seeds per radius")
	particles := flag.Int("particles", 0, "Override particle count (0 = config)")
	jobs := flag.Int("jobs", runtime.NumCPU(), "Concurrent runs")
	outPath := flag.String("out", "sweep.csv", "Output CSV path")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, nil)))

	radii, err := parseRadii(*radiiFlag)
	if err != nil {
		slog.Error("invalid -radii", "error", err)
		os.Exit(1)
	}
	if *steps < 1 || *seeds < 1 {
		slog.Error("-steps and -seeds must be positive")
		os.Exit(1)
	}

	baseCfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if *particles > 0 {
		baseCfg.Simulation.Particles = *particles
	}
	// Runs already execute concurrently; keep each one serial.
	baseCfg.Simulation.Workers = 0
	// Only the last step's tensor is reported.
	baseCfg.Tensor.Emit = false

	cfgs := make([]*config.Config, len(radii))
	for i, r := range radii {
		c := *baseCfg
		c.Network.Radius = r
		if err := c.Finalize(); err != nil {
			slog.Error("invalid config for radius", "radius", r, "error", err)
			os.Exit(1)
		}
		cfgs[i] = &c
	}

	type job struct {
		radiusIdx int
		seed      int64
	}
	jobCh := make(chan job)
	resCh := make(chan runResult)
	errCh := make(chan error, 1)

	var wg sync.WaitGroup
	for w := 0; w < max(1, *jobs); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobCh {
				res, err := runOne(cfgs[j.radiusIdx], j.seed, *steps)
				if err != nil {
					select {
					case errCh <- fmt.Errorf("radius %v seed %d: %w", radii[j.radiusIdx], j.seed, err):
					default:
					}
					continue
				}
				res.radiusIdx = j.radiusIdx
				resCh <- res
			}
		}()
	}

	go func() {
		for i := range radii {
			for s := 0; s < *seeds; s++ {
				jobCh <- job{radiusIdx: i, seed: int64(s*1000 + 42)}
			}
		}
		close(jobCh)
		wg.Wait()
		close(resCh)
	}()

	total := len(radii) * *seeds
	byRadius := make([][]runResult, len(radii))
	done := 0
	startTime := time.Now()
	for res := range resCh {
		byRadius[res.radiusIdx] = append(byRadius[res.radiusIdx], res)
		done++

		elapsed := time.Since(startTime)
		remaining := time.Duration(total-done) * (elapsed / time.Duration(done))
		slog.Info("run complete",
			"radius", radii[res.radiusIdx],
			"d_eff", res.final.EffectiveDiffusivity,
			"progress", fmt.Sprintf("%d/%d", done, total),
			"elapsed", formatDuration(elapsed),
			"eta", formatDuration(remaining),
		)
	}

	select {
	case err := <-errCh:
		slog.Error("sweep failed", "error", err)
		os.Exit(1)
	default:
	}

	rows := make([]SweepRow, len(radii))
	for i, runs := range byRadius {
		rows[i] = summarize(cfgs[i], runs, *steps)
	}

	f, err := os.Create(*outPath)
	if err != nil {
		slog.Error("failed to create output", "path", *outPath, "error", err)
		os.Exit(1)
	}
	defer f.Close()
	if err := gocsv.Marshal(rows, f); err != nil {
		slog.Error("failed to write sweep", "error", err)
		os.Exit(1)
	}

	slog.Info("sweep complete",
		"radii", len(radii),
		"seeds", *seeds,
		"out", *outPath,
		"duration", formatDuration(time.Since(startTime)),
	)
}

// runOne runs a single headless simulation and returns its final step.
func runOne(cfg *config.Config, seed int64, steps int) (runResult, error) {
	sim, err := simulation.New(simulation.ParamsFromConfig(cfg, seed))
	if err != nil {
		return runResult{}, err
	}
	defer sim.Close()

	var res runResult
	for i := 0; i < steps; i++ {
		st, err := sim.Step()
		if err != nil {
			return runResult{}, err
		}
		res.accepted += st.Accepted
		res.rejected += st.Rejected
		res.final = st
	}

	if res.final.TensorValid {
		if a, err := res.final.Tensor.Analyze(cfg.Simulation.Dimensions); err == nil {
			res.md = a.MeanDiffusivity
			res.fa = a.FractionalAnisotropy
		}
	}
	return res, nil
}

// summarize averages the runs of one radius.
func summarize(cfg *config.Config, runs []runResult, steps int) SweepRow {
	row := SweepRow{
		Radius:   cfg.Network.Radius,
		Porosity: cfg.Derived.Field.Porosity(),
		Seeds:    len(runs),
		Steps:    steps,
	}
	if len(runs) == 0 {
		return row
	}

	deff := make([]float64, len(runs))
	msd := make([]float64, len(runs))
	md := make([]float64, len(runs))
	fa := make([]float64, len(runs))
	var accepted, rejected int
	for i, r := range runs {
		deff[i] = r.final.EffectiveDiffusivity
		msd[i] = r.final.MSD
		md[i] = r.md
		fa[i] = r.fa
		accepted += r.accepted
		rejected += r.rejected
	}

	row.DEff = stat.Mean(deff, nil)
	if len(deff) > 1 {
		row.DEffStd = stat.StdDev(deff, nil)
	}
	row.MSD = stat.Mean(msd, nil)
	row.MD = stat.Mean(md, nil)
	row.FA = stat.Mean(fa, nil)
	if accepted+rejected > 0 {
		row.Acceptance = float64(accepted) / float64(accepted+rejected)
	}
	if d0 := cfg.Simulation.Diffusion; d0 > 0 {
		row.DEffRatio = row.DEff / d0
	}
	return row
}

// parseRadii parses a comma-separated list of non-negative radii.
func parseRadii(s string) ([]float64, error) {
	var radii []float64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		r, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing %q: %w", part, err)
		}
		if r < 0 {
			return nil, fmt.Errorf("radius %v is negative", r)
		}
		radii = append(radii, r)
	}
	if len(radii) == 0 {
		return nil, fmt.Errorf("no radii given")
	}
	return radii, nil
}
