package renderer

import (
	"math"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/collagen/camera"
	"github.com/pthm-cable/collagen/obstacle"
)

// maxDrawnNodes caps obstacle draws when zoomed far out.
const maxDrawnNodes = 20000

// NetworkRenderer draws the obstacle lattice.
type NetworkRenderer struct {
	field obstacle.Field
	probe float64
	nodes []obstacle.Node

	FiberColor rl.Color
	HaloColor  rl.Color
	GridColor  rl.Color
}

// NewNetworkRenderer creates a renderer for field. probe is the particle
// radius used for the collision halo.
func NewNetworkRenderer(field obstacle.Field, probe float64) *NetworkRenderer {
	return &NetworkRenderer{
		field:      field,
		probe:      probe,
		FiberColor: rl.Color{R: 196, G: 120, B: 96, A: 255},
		HaloColor:  rl.Color{R: 196, G: 120, B: 96, A: 90},
		GridColor:  rl.Color{R: 60, G: 70, B: 80, A: 120},
	}
}

// SetField replaces the lattice being drawn.
func (r *NetworkRenderer) SetField(field obstacle.Field, probe float64) {
	r.field = field
	r.probe = probe
}

// visibleNodes collects nodes overlapping the camera view.
func (r *NetworkRenderer) visibleNodes(cam *camera.Camera, margin float64) []obstacle.Node {
	minX, minY, maxX, maxY := cam.VisibleWorldBounds()
	r.nodes = r.field.NodesIn(r.nodes[:0],
		float64(minX), float64(minY), float64(maxX), float64(maxY), margin)
	return r.nodes
}

// DrawFibers draws every visible obstacle cross-section.
func (r *NetworkRenderer) DrawFibers(cam *camera.Camera) {
	if r.field.Radius <= 0 {
		return
	}
	nodes := r.visibleNodes(cam, r.field.Radius)
	if len(nodes) > maxDrawnNodes {
		return
	}
	radius := float32(r.field.Radius) * cam.Zoom
	for _, n := range nodes {
		sx, sy := cam.WorldToScreen(float32(n.X), float32(n.Y))
		if radius < 1.5 {
			rl.DrawPixel(int32(sx), int32(sy), r.FiberColor)
			continue
		}
		rl.DrawCircleV(rl.Vector2{X: sx, Y: sy}, radius, r.FiberColor)
	}
}

// DrawHalos outlines the region a particle centre cannot enter.
func (r *NetworkRenderer) DrawHalos(cam *camera.Camera) {
	reach := r.field.Radius + r.probe
	if reach <= 0 {
		return
	}
	nodes := r.visibleNodes(cam, reach)
	if len(nodes) > maxDrawnNodes {
		return
	}
	radius := float32(reach) * cam.Zoom
	for _, n := range nodes {
		sx, sy := cam.WorldToScreen(float32(n.X), float32(n.Y))
		rl.DrawCircleLines(int32(sx), int32(sy), radius, r.HaloColor)
	}
}

// DrawLattice draws the cell boundaries between nodes. Each cell holds one
// obstacle at its centre.
func (r *NetworkRenderer) DrawLattice(cam *camera.Camera) {
	l := r.field.Spacing
	if l <= 0 || float32(l)*cam.Zoom < 4 {
		return
	}
	minX, minY, maxX, maxY := cam.VisibleWorldBounds()

	i0 := math.Floor((float64(minX) - r.field.OriginX) / l)
	i1 := math.Ceil((float64(maxX) - r.field.OriginX) / l)
	for i := i0; i <= i1; i++ {
		x := float32(r.field.OriginX + i*l)
		sx, _ := cam.WorldToScreen(x, 0)
		rl.DrawLine(int32(sx), 0, int32(sx), int32(cam.ViewportH), r.GridColor)
	}

	j0 := math.Floor((float64(minY) - r.field.OriginY) / l)
	j1 := math.Ceil((float64(maxY) - r.field.OriginY) / l)
	for j := j0; j <= j1; j++ {
		y := float32(r.field.OriginY + j*l)
		_, sy := cam.WorldToScreen(0, y)
		rl.DrawLine(0, int32(sy), int32(cam.ViewportW), int32(sy), r.GridColor)
	}
}
