package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// StepRecord is one row of steps.csv.
type StepRecord struct {
	Step       int     `csv:"step"`
	Time       float64 `csv:"time"`
	Accepted   int     `csv:"accepted"`
	Rejected   int     `csv:"rejected"`
	Acceptance float64 `csv:"acceptance"`

	// Spread from the start point
	MSD  float64 `csv:"msd"`
	DEff float64 `csv:"d_eff"`

	// Radial distance distribution (sampled at step end)
	DistMean float64 `csv:"dist_mean"`
	DistStd  float64 `csv:"dist_std"`
	DistP10  float64 `csv:"dist_p10"`
	DistP50  float64 `csv:"dist_p50"`
	DistP90  float64 `csv:"dist_p90"`

	// Diffusion tensor, zero when accumulation is off
	DXX float64 `csv:"dxx"`
	DXY float64 `csv:"dxy"`
	DXZ float64 `csv:"dxz"`
	DYY float64 `csv:"dyy"`
	DYZ float64 `csv:"dyz"`
	DZZ float64 `csv:"dzz"`
	MD  float64 `csv:"md"`
	FA  float64 `csv:"fa"`
}

// Percentile calculates the p-th percentile of a sorted slice.
// p should be in [0, 1]. Returns 0 if slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	// Linear interpolation
	idx := p * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// ComputeDistanceStats calculates mean, std, and percentiles of distances.
// values is sorted in place.
func ComputeDistanceStats(values []float64) (mean, std, p10, p50, p90 float64) {
	n := len(values)
	if n == 0 {
		return 0, 0, 0, 0, 0
	}
	if n == 1 {
		return values[0], 0, values[0], values[0], values[0]
	}

	mean, std = stat.MeanStdDev(values, nil)

	sort.Float64s(values)
	p10 = Percentile(values, 0.10)
	p50 = Percentile(values, 0.50)
	p90 = Percentile(values, 0.90)

	return mean, std, p10, p50, p90
}

// SetDistances fills the distance columns from raw radial distances.
func (r *StepRecord) SetDistances(values []float64) {
	r.DistMean, r.DistStd, r.DistP10, r.DistP50, r.DistP90 = ComputeDistanceStats(values)
}

// LogValue implements slog.LogValuer for structured logging.
func (r StepRecord) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("step", r.Step),
		slog.Float64("time", r.Time),
		slog.Int("accepted", r.Accepted),
		slog.Int("rejected", r.Rejected),
		slog.Float64("acceptance", r.Acceptance),
		slog.Float64("msd", r.MSD),
		slog.Float64("d_eff", r.DEff),
		slog.Float64("dist_p50", r.DistP50),
		slog.Float64("dist_p90", r.DistP90),
		slog.Float64("md", r.MD),
		slog.Float64("fa", r.FA),
	)
}

// LogStats logs the record using slog.
func (r StepRecord) LogStats() {
	slog.Info("stats",
		"step", r.Step,
		"time", r.Time,
		"accepted", r.Accepted,
		"rejected", r.Rejected,
		"acceptance", r.Acceptance,
		"msd", r.MSD,
		"d_eff", r.DEff,
		"dist_mean", r.DistMean,
		"dist_p10", r.DistP10,
		"dist_p50", r.DistP50,
		"dist_p90", r.DistP90,
		"md", r.MD,
		"fa", r.FA,
	)
}
