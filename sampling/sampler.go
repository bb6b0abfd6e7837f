// Package sampling draws isotropic random directions and turns them into
// Brownian step displacements.
package sampling

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/pthm-cable/collagen/vmath"
)

// Method selects how planar directions are drawn. Spatial directions always
// use ball rejection.
type Method uint8

const (
	// MethodAngle draws a uniform angle in [0, 2π).
	MethodAngle Method = iota
	// MethodRejection draws inside the square [-1,1]^2 until the point lies in the unit disc.
	MethodRejection
)

// minNorm2 is the squared length below which a rejection candidate is
// redrawn instead of normalised.
const minNorm2 = 1e-12

// ParseMethod maps a config string to a Method.
func ParseMethod(s string) (Method, error) {
	switch s {
	case "", "angle":
		return MethodAngle, nil
	case "rejection":
		return MethodRejection, nil
	default:
		return 0, fmt.Errorf("unknown direction method %q", s)
	}
}

// String returns the config name of the method.
func (m Method) String() string {
	if m == MethodRejection {
		return "rejection"
	}
	return "angle"
}

// Sampler owns a random stream. It is not safe for concurrent use; parallel
// walkers each own their own Sampler.
type Sampler struct {
	rng    *rand.Rand
	method Method
}

// NewSampler creates a sampler seeded with seed.
func NewSampler(seed int64, method Method) *Sampler {
	return &Sampler{
		rng:    rand.New(rand.NewSource(seed)),
		method: method,
	}
}

// DisplacementMagnitude returns the root-mean-square free step length
// sqrt(2·d·D0·dt) for d spatial dimensions.
func DisplacementMagnitude(d0, dt float64, dim int) float64 {
	return math.Sqrt(2 * float64(dim) * d0 * dt)
}

// UnitDirection returns a unit vector uniformly distributed on the unit
// circle (dim 2) or unit sphere (dim 3).
func (s *Sampler) UnitDirection(dim int) vmath.Vec3 {
	if dim == 2 {
		if s.method == MethodAngle {
			theta := s.rng.Float64() * 2 * math.Pi
			return vmath.Vec3{X: math.Cos(theta), Y: math.Sin(theta)}
		}
		for {
			p := vmath.Vec3{X: s.uniform(), Y: s.uniform()}
			n2 := p.Len2()
			if accept(n2) {
				return p.Scale(1 / math.Sqrt(n2))
			}
		}
	}

	// No trial cap; a round is accepted with probability π/6.
	for {
		p := vmath.Vec3{X: s.uniform(), Y: s.uniform(), Z: s.uniform()}
		n2 := p.Len2()
		if accept(n2) {
			return p.Scale(1 / math.Sqrt(n2))
		}
	}
}

// Displacement returns a random step of length DisplacementMagnitude.
func (s *Sampler) Displacement(d0, dt float64, dim int) vmath.Vec3 {
	return s.UnitDirection(dim).Scale(DisplacementMagnitude(d0, dt, dim))
}

// accept reports whether a rejection candidate with squared length n2 lies
// inside the unit ball and is long enough to normalise.
func accept(n2 float64) bool {
	return n2 <= 1 && n2 > minNorm2
}

// uniform returns a value in [-1, 1).
func (s *Sampler) uniform() float64 {
	return 2*s.rng.Float64() - 1
}
