package renderer

import (
	"math"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/collagen/camera"
	"github.com/pthm-cable/collagen/simulation"
	"github.com/pthm-cable/collagen/vmath"
)

// ColorMode selects how particles are shaded.
type ColorMode uint8

const (
	ColorFlat ColorMode = iota
	ColorDistance
	ColorRejections
)

// ParticleRenderer draws the walker population.
type ParticleRenderer struct {
	MaxParticles int     // draw at most this many (0 = all)
	MinDrawSize  float32 // screen radius floor in pixels

	Color rl.Color
}

// NewParticleRenderer creates a new particle renderer.
func NewParticleRenderer(maxParticles int, minDrawSize float32) *ParticleRenderer {
	return &ParticleRenderer{
		MaxParticles: maxParticles,
		MinDrawSize:  minDrawSize,
		Color:        rl.Color{R: 90, G: 170, B: 230, A: 200},
	}
}

// Stride returns the sampling stride that keeps n draws under the cap.
func (r *ParticleRenderer) Stride(n int) int {
	if r.MaxParticles <= 0 || n <= r.MaxParticles {
		return 1
	}
	return (n + r.MaxParticles - 1) / r.MaxParticles
}

// Draw renders particles projected onto the xy plane. start is the common
// start point and scale the distance mapped to the hottest colour.
func (r *ParticleRenderer) Draw(cam *camera.Camera, particles []simulation.ParticleView, mode ColorMode, start vmath.Vec3, scale float64) {
	stride := r.Stride(len(particles))
	for i := 0; i < len(particles); i += stride {
		p := &particles[i]
		wx, wy := float32(p.Position.X), float32(p.Position.Y)
		if !cam.IsVisible(wx, wy, float32(p.Radius)) {
			continue
		}

		size := float32(p.Radius) * cam.Zoom
		if size < r.MinDrawSize {
			size = r.MinDrawSize
		}

		color := r.Color
		switch mode {
		case ColorDistance:
			t := 0.0
			if scale > 0 {
				t = math.Sqrt(p.Position.Sub(start).Len2()) / scale
			}
			color = heat(t)
		case ColorRejections:
			color = heat(p.RejectedShare)
		}

		sx, sy := cam.WorldToScreen(wx, wy)
		rl.DrawCircleV(rl.Vector2{X: sx, Y: sy}, size, color)
	}
}

// DrawStartMarker draws a cross at the start point.
func (r *ParticleRenderer) DrawStartMarker(cam *camera.Camera, start vmath.Vec3) {
	sx, sy := cam.WorldToScreen(float32(start.X), float32(start.Y))
	const arm = 8
	rl.DrawLineEx(rl.Vector2{X: sx - arm, Y: sy}, rl.Vector2{X: sx + arm, Y: sy}, 2, rl.Yellow)
	rl.DrawLineEx(rl.Vector2{X: sx, Y: sy - arm}, rl.Vector2{X: sx, Y: sy + arm}, 2, rl.Yellow)
}

// heat maps t in [0, 1] from blue through green to red.
func heat(t float64) rl.Color {
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	var cr, cg, cb float64
	if t < 0.5 {
		u := t * 2
		cr, cg, cb = 40, 90+u*130, 230-u*150
	} else {
		u := (t - 0.5) * 2
		cr, cg, cb = 40+u*200, 220-u*150, 80-u*40
	}
	return rl.Color{R: uint8(cr), G: uint8(cg), B: uint8(cb), A: 210}
}
