// Package tensor estimates the diffusion tensor from particle displacements.
package tensor

import (
	"fmt"
	"io"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/pthm-cable/collagen/vmath"
)

// Component indices into Tensor.
const (
	XX = iota
	XY
	XZ
	YY
	YZ
	ZZ
)

// Tensor holds the six distinct entries of a symmetric 3x3 tensor in the
// order Dxx, Dxy, Dxz, Dyy, Dyz, Dzz. Planar runs leave the z entries at zero.
type Tensor [6]float64

// At returns entry (i, j) for i, j in 0..2.
func (t Tensor) At(i, j int) float64 {
	if i > j {
		i, j = j, i
	}
	switch {
	case i == 0:
		return t[j]
	case i == 1:
		return t[2+j]
	default:
		return t[ZZ]
	}
}

// Matrix returns the leading dim x dim block as a gonum symmetric matrix.
func (t Tensor) Matrix(dim int) *mat.SymDense {
	m := mat.NewSymDense(dim, nil)
	for i := 0; i < dim; i++ {
		for j := i; j < dim; j++ {
			m.SetSym(i, j, t.At(i, j))
		}
	}
	return m
}

// Trace returns the sum of the first dim diagonal entries.
func (t Tensor) Trace(dim int) float64 {
	tr := t[XX] + t[YY]
	if dim == 3 {
		tr += t[ZZ]
	}
	return tr
}

// WriteRows writes the tensor as three rows of three comma-separated values
// followed by a blank line.
func (t Tensor) WriteRows(w io.Writer) error {
	_, err := fmt.Fprintf(w, "%g, %g, %g\n%g, %g, %g\n%g, %g, %g\n\n",
		t[XX], t[XY], t[XZ],
		t[XY], t[YY], t[YZ],
		t[XZ], t[YZ], t[ZZ],
	)
	return err
}

// LogValue implements slog.LogValuer for structured logging.
func (t Tensor) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Float64("xx", t[XX]),
		slog.Float64("xy", t[XY]),
		slog.Float64("xz", t[XZ]),
		slog.Float64("yy", t[YY]),
		slog.Float64("yz", t[YZ]),
		slog.Float64("zz", t[ZZ]),
	)
}

// Analysis summarises a tensor by its eigen decomposition.
type Analysis struct {
	// Principal diffusivities in ascending order.
	Eigenvalues []float64
	// MeanDiffusivity is trace/dim.
	MeanDiffusivity float64
	// FractionalAnisotropy is 0 for isotropic spread and approaches 1 when
	// spread is confined to one axis.
	FractionalAnisotropy float64
}

// Analyze computes principal diffusivities, mean diffusivity and fractional
// anisotropy of the leading dim x dim block.
func (t Tensor) Analyze(dim int) (Analysis, error) {
	var es mat.EigenSym
	if ok := es.Factorize(t.Matrix(dim), false); !ok {
		return Analysis{}, fmt.Errorf("eigen decomposition failed for %v", t)
	}
	vals := es.Values(nil)

	md := t.Trace(dim) / float64(dim)

	var num, den float64
	for _, v := range vals {
		num += (v - md) * (v - md)
		den += v * v
	}
	fa := 0.0
	if den > 0 {
		fa = math.Sqrt(float64(dim) / float64(dim-1) * num / den)
	}

	return Analysis{
		Eigenvalues:          vals,
		MeanDiffusivity:      md,
		FractionalAnisotropy: fa,
	}, nil
}

// Mode selects where the per-step normalisation is applied.
type Mode uint8

const (
	// ModeCorrected sums all raw second moments and normalises once.
	ModeCorrected Mode = iota
	// ModeLegacy rescales the running sum after every particle, so the
	// coefficient compounds across the population. Kept for comparison with
	// earlier runs.
	ModeLegacy
)

// ParseMode maps a config string to a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "corrected":
		return ModeCorrected, nil
	case "legacy":
		return ModeLegacy, nil
	default:
		return 0, fmt.Errorf("unknown tensor mode %q", s)
	}
}

// String returns the config name of the mode.
func (m Mode) String() string {
	if m == ModeLegacy {
		return "legacy"
	}
	return "corrected"
}

// Accumulator builds one tensor estimate per step. Positions are measured
// from Origin, so the estimate is of displacement since the start.
type Accumulator struct {
	Mode   Mode
	Origin vmath.Vec3

	sum   Tensor
	coef  float64
	count int
}

// NewAccumulator creates an accumulator for displacements from origin.
func NewAccumulator(mode Mode, origin vmath.Vec3) *Accumulator {
	return &Accumulator{Mode: mode, Origin: origin}
}

// Coefficient returns 1/(2·step·dt·n).
func Coefficient(step int, dt float64, n int) float64 {
	return 1 / (2 * float64(step) * dt * float64(n))
}

// Reset clears the running sums and fixes the normalisation coefficient for
// the step about to be accumulated.
func (a *Accumulator) Reset(step int, dt float64, n int) {
	a.sum = Tensor{}
	a.coef = Coefficient(step, dt, n)
	a.count = 0
}

// Add accumulates one particle position.
func (a *Accumulator) Add(p vmath.Vec3) {
	o := p.Sub(a.Origin).Outer()
	for i := range a.sum {
		a.sum[i] += o[i]
	}
	a.count++

	if a.Mode == ModeLegacy {
		for i := range a.sum {
			a.sum[i] *= a.coef
		}
	}
}

// Tensor returns the estimate for the positions added since Reset.
func (a *Accumulator) Tensor() Tensor {
	if a.Mode == ModeLegacy {
		return a.sum
	}
	var t Tensor
	for i := range a.sum {
		t[i] = a.sum[i] * a.coef
	}
	return t
}

// Count returns the number of positions added since Reset.
func (a *Accumulator) Count() int {
	return a.count
}
