package sampling

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// chiSquarePValue bins values in [lo, hi) and returns the goodness-of-fit
// p-value against a uniform distribution.
func chiSquarePValue(values []float64, lo, hi float64, bins int) float64 {
	counts := make([]float64, bins)
	width := (hi - lo) / float64(bins)
	for _, v := range values {
		idx := int((v - lo) / width)
		if idx < 0 {
			idx = 0
		}
		if idx >= bins {
			idx = bins - 1
		}
		counts[idx]++
	}

	expected := float64(len(values)) / float64(bins)
	var chi2 float64
	for _, c := range counts {
		d := c - expected
		chi2 += d * d / expected
	}

	dist := distuv.ChiSquared{K: float64(bins - 1)}
	return dist.Survival(chi2)
}

func TestDisplacementMagnitude(t *testing.T) {
	tests := []struct {
		name string
		d0   float64
		dt   float64
		dim  int
		want float64
	}{
		{"planar", 5, 0.5, 2, math.Sqrt(10)},
		{"spatial matches sqrt(6 D0 dt)", 5, 0.5, 3, math.Sqrt(6 * 5 * 0.5)},
		{"zero diffusion", 0, 1, 3, 0},
		{"unit", 0.25, 1, 2, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DisplacementMagnitude(tt.d0, tt.dt, tt.dim)
			if math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("DisplacementMagnitude(%v, %v, %d) = %v, want %v", tt.d0, tt.dt, tt.dim, got, tt.want)
			}
		})
	}
}

func TestUnitDirectionIsUnit(t *testing.T) {
	for _, method := range []Method{MethodAngle, MethodRejection} {
		for _, dim := range []int{2, 3} {
			s := NewSampler(7, method)
			for i := 0; i < 5000; i++ {
				v := s.UnitDirection(dim)
				if math.Abs(v.Len()-1) > 1e-9 {
					t.Fatalf("%s dim=%d: |v| = %v, want 1", method, dim, v.Len())
				}
				if dim == 2 && v.Z != 0 {
					t.Fatalf("%s planar direction has z = %v", method, v.Z)
				}
			}
		}
	}
}

func TestPlanarAngleUniformity(t *testing.T) {
	for _, method := range []Method{MethodAngle, MethodRejection} {
		t.Run(method.String(), func(t *testing.T) {
			s := NewSampler(12345, method)
			const n = 36000
			angles := make([]float64, n)
			for i := range angles {
				v := s.UnitDirection(2)
				a := math.Atan2(v.Y, v.X)
				if a < 0 {
					a += 2 * math.Pi
				}
				angles[i] = a
			}

			p := chiSquarePValue(angles, 0, 2*math.Pi, 36)
			if p < 1e-4 {
				t.Errorf("angles not uniform: p = %v", p)
			}
		})
	}
}

func TestSphereMarginals(t *testing.T) {
	s := NewSampler(2024, MethodAngle)
	const n = 30000
	xs := make([]float64, n)
	ys := make([]float64, n)
	zs := make([]float64, n)
	for i := 0; i < n; i++ {
		v := s.UnitDirection(3)
		xs[i], ys[i], zs[i] = v.X, v.Y, v.Z
	}

	// Each coordinate of a uniform point on the sphere is uniform on [-1, 1].
	for name, coord := range map[string][]float64{"x": xs, "y": ys, "z": zs} {
		if p := chiSquarePValue(coord, -1, 1, 20); p < 1e-4 {
			t.Errorf("%s marginal not uniform: p = %v", name, p)
		}
		if m := stat.Mean(coord, nil); math.Abs(m) > 0.02 {
			t.Errorf("%s mean = %v, want ~0", name, m)
		}
		if v := stat.Variance(coord, nil); math.Abs(v-1.0/3.0) > 0.01 {
			t.Errorf("%s variance = %v, want ~1/3", name, v)
		}
	}
}

func TestDisplacementLength(t *testing.T) {
	s := NewSampler(1, MethodAngle)
	for _, dim := range []int{2, 3} {
		want := DisplacementMagnitude(5, 0.5, dim)
		for i := 0; i < 1000; i++ {
			got := s.Displacement(5, 0.5, dim).Len()
			if math.Abs(got-want) > 1e-9 {
				t.Fatalf("dim=%d: |displacement| = %v, want %v", dim, got, want)
			}
		}
	}
}

func TestZeroDiffusionDoesNotMove(t *testing.T) {
	s := NewSampler(3, MethodRejection)
	for i := 0; i < 100; i++ {
		if d := s.Displacement(0, 0.5, 3); d.Len2() != 0 {
			t.Fatalf("displacement with D0=0 = %+v", d)
		}
	}
}

func TestSamplerSeedReproducible(t *testing.T) {
	a := NewSampler(99, MethodAngle)
	b := NewSampler(99, MethodAngle)
	for i := 0; i < 100; i++ {
		va, vb := a.UnitDirection(3), b.UnitDirection(3)
		if va != vb {
			t.Fatalf("draw %d differs: %+v vs %+v", i, va, vb)
		}
	}
}

func TestParseMethod(t *testing.T) {
	tests := []struct {
		in      string
		want    Method
		wantErr bool
	}{
		{"", MethodAngle, false},
		{"angle", MethodAngle, false},
		{"rejection", MethodRejection, false},
		{"polar", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseMethod(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseMethod(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err == nil && got != tt.want {
			t.Errorf("ParseMethod(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestAcceptCandidate(t *testing.T) {
	tests := []struct {
		name string
		n2   float64
		want bool
	}{
		{"zero length", 0, false},
		{"below degenerate floor", 1e-13, false},
		{"at degenerate floor", minNorm2, false},
		{"inside", 0.5, true},
		{"on the boundary", 1, true},
		{"outside", 1.0001, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := accept(tt.n2); got != tt.want {
				t.Errorf("accept(%v) = %v, want %v", tt.n2, got, tt.want)
			}
		})
	}
}
