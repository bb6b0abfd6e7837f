package obstacle

import (
	"math"
	"math/rand"
	"testing"

	"github.com/pthm-cable/collagen/vmath"
)

func TestContainsNodeCenter(t *testing.T) {
	fields := []Field{
		New(15, 80, 0, 0),
		New(1, 10, 320, 240),
		New(4.9, 10, -3, 7),
	}
	for _, f := range fields {
		for i := -3; i <= 3; i++ {
			for j := -3; j <= 3; j++ {
				x, y := f.NodeCenter(i, j)
				for _, probe := range []float64{0, 1, 5} {
					if !f.Contains(vmath.Vec3{X: x, Y: y}, probe) {
						t.Errorf("field %+v: node (%d,%d) at (%v,%v) probe %v not contained", f, i, j, x, y, probe)
					}
				}
			}
		}
	}

	// The comparison is strict, so a zero threshold contains nothing.
	edges := []struct {
		name   string
		radius float64
		probe  float64
		want   bool
	}{
		{"zero radius zero probe", 0, 0, false},
		{"zero radius with probe", 0, 1, true},
		{"radius with zero probe", 1, 0, true},
	}
	for _, tt := range edges {
		t.Run(tt.name, func(t *testing.T) {
			f := New(tt.radius, 10, 0, 0)
			x, y := f.NodeCenter(2, -1)
			if got := f.Contains(vmath.Vec3{X: x, Y: y}, tt.probe); got != tt.want {
				t.Errorf("Contains(node centre, %v) with r=%v = %v, want %v", tt.probe, tt.radius, got, tt.want)
			}
		})
	}
}

func TestContainsThresholdScenario(t *testing.T) {
	f := New(15, 80, 0, 0)
	if got := f.Threshold(5); math.Abs(got-0.25) > 1e-12 {
		t.Fatalf("Threshold(5) = %v, want 0.25", got)
	}

	cx, cy := f.NodeCenter(0, 0)
	tests := []struct {
		name   string
		offset [2]float64 // normalised units
		want   bool
	}{
		{"inside at 0.2", [2]float64{0.2, 0}, true},
		{"outside at 0.3", [2]float64{0.3, 0}, false},
		{"inside negative y", [2]float64{0, -0.2}, true},
		{"outside diagonal", [2]float64{0.2, 0.2}, false},
		{"cell corner", [2]float64{0.5, 0.5}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := vmath.Vec3{X: cx + tt.offset[0]*f.Spacing, Y: cy + tt.offset[1]*f.Spacing}
			if got := f.Contains(p, 5); got != tt.want {
				t.Errorf("Contains(%+v, 5) = %v, want %v", p, got, tt.want)
			}
		})
	}
}

func TestContainsIgnoresZ(t *testing.T) {
	f := New(15, 80, 0, 0)
	cx, cy := f.NodeCenter(2, -1)
	for _, z := range []float64{-1e6, -3, 0, 42, 1e6} {
		if !f.Contains(vmath.Vec3{X: cx, Y: cy, Z: z}, 0) {
			t.Errorf("node centre at z=%v not contained", z)
		}
		if f.Contains(vmath.Vec3{X: cx + 40, Y: cy + 40, Z: z}, 0) {
			t.Errorf("cell corner at z=%v contained", z)
		}
	}
}

// TestContainsMatchesBruteForce compares against the distance to the nine
// nearest lattice nodes, skipping points within eps of the threshold.
func TestContainsMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	const eps = 1e-9

	fields := []Field{
		New(15, 80, 0, 0),
		New(15, 80, 320, 240),
		New(2, 7, -1.5, 3.25),
		New(0, 10, 0, 0),
	}

	for _, f := range fields {
		for n := 0; n < 20000; n++ {
			p := vmath.Vec3{
				X: (rng.Float64()*2 - 1) * 10 * f.Spacing,
				Y: (rng.Float64()*2 - 1) * 10 * f.Spacing,
			}
			probe := rng.Float64() * f.Spacing / 4

			i := int(math.Floor((p.X - f.OriginX) / f.Spacing))
			j := int(math.Floor((p.Y - f.OriginY) / f.Spacing))
			minDist := math.Inf(1)
			for di := -1; di <= 1; di++ {
				for dj := -1; dj <= 1; dj++ {
					x, y := f.NodeCenter(i+di, j+dj)
					d := math.Hypot(p.X-x, p.Y-y) / f.Spacing
					minDist = math.Min(minDist, d)
				}
			}

			thr := f.Threshold(probe)
			got := f.Contains(p, probe)
			switch {
			case minDist >= thr+eps && got:
				t.Fatalf("field %+v: %+v probe %v at distance %v reported inside (threshold %v)", f, p, probe, minDist, thr)
			case minDist < thr-eps && !got:
				t.Fatalf("field %+v: %+v probe %v at distance %v reported outside (threshold %v)", f, p, probe, minDist, thr)
			}
		}
	}
}

func TestContainsIsPure(t *testing.T) {
	f := New(15, 80, 0, 0)
	rng := rand.New(rand.NewSource(11))
	for n := 0; n < 1000; n++ {
		p := vmath.Vec3{X: rng.Float64() * 800, Y: rng.Float64() * 800, Z: rng.Float64()}
		if f.Contains(p, 5) != f.Contains(p, 5) {
			t.Fatalf("Contains(%+v) not deterministic", p)
		}
	}
}

func TestNearestIndex(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0.2, 0},
		{0.5, 0},
		{0.51, 1},
		{-0.2, 0},
		{-0.5, -1},
		{-0.7, -1},
		{3.9, 4},
	}

	for _, tt := range tests {
		if got := nearestIndex(tt.in); got != tt.want {
			t.Errorf("nearestIndex(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNodesIn(t *testing.T) {
	f := New(15, 80, 0, 0)

	// Centres at 40, 120, 200, ... and -40, -120, ...
	nodes := f.NodesIn(nil, 0, 0, 160, 80, 0)
	if len(nodes) != 2 {
		t.Fatalf("got %d nodes, want 2: %+v", len(nodes), nodes)
	}
	for _, n := range nodes {
		if n.X < 0 || n.X > 160 || n.Y < 0 || n.Y > 80 {
			t.Errorf("node %+v outside rectangle", n)
		}
		if !f.Contains(vmath.Vec3{X: n.X, Y: n.Y}, 0) {
			t.Errorf("node %+v not inside its own obstacle", n)
		}
	}

	// Expanded to [-50, 210] x [-50, 130]: four columns, three rows.
	withMargin := f.NodesIn(nil, 0, 0, 160, 80, 50)
	if len(withMargin) != 4*3 {
		t.Errorf("got %d nodes with margin, want 12", len(withMargin))
	}

	if got := f.NodesIn(nil, 10, 10, 0, 0, 0); len(got) != 0 {
		t.Errorf("inverted rectangle returned %d nodes", len(got))
	}
}

func TestPorosity(t *testing.T) {
	f := New(15, 80, 0, 0)
	want := 1 - math.Pi*225/6400
	if got := f.Porosity(); math.Abs(got-want) > 1e-12 {
		t.Errorf("Porosity() = %v, want %v", got, want)
	}
	if f.Overlapping() {
		t.Error("r=15, L=80 reported overlapping")
	}
	if !New(40, 80, 0, 0).Overlapping() {
		t.Error("r=L/2 not reported overlapping")
	}
}
