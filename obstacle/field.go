// Package obstacle models the collagen network: an infinite periodic lattice
// of circular fibres seen in cross-section.
package obstacle

import (
	"math"

	"github.com/pthm-cable/collagen/vmath"
)

// Field is a square lattice of obstacles of Radius spaced Spacing apart on
// both axes. Obstacle centres sit at half-cell positions relative to Origin:
// Origin + ((i+0.5)·Spacing, (j+0.5)·Spacing).
//
// The lattice is planar. Z coordinates are ignored, so in spatial runs every
// obstacle is a fibre extruded infinitely along z.
type Field struct {
	Radius  float64
	Spacing float64
	OriginX float64
	OriginY float64
}

// Node is an obstacle centre in domain coordinates.
type Node struct {
	I, J int
	X, Y float64
}

// New creates a field centred on the given origin.
func New(radius, spacing, originX, originY float64) Field {
	return Field{Radius: radius, Spacing: spacing, OriginX: originX, OriginY: originY}
}

// Threshold returns the normalised collision distance (Radius+probe)/Spacing.
func (f Field) Threshold(probe float64) float64 {
	return (f.Radius + probe) / f.Spacing
}

// Contains reports whether a disc of radius probe centred at p overlaps an
// obstacle.
func (f Field) Contains(p vmath.Vec3, probe float64) bool {
	rx := (p.X-f.OriginX)/f.Spacing - 0.5
	ry := (p.Y-f.OriginY)/f.Spacing - 0.5

	dx := rx - nearestIndex(rx)
	dy := ry - nearestIndex(ry)

	return math.Sqrt(dx*dx+dy*dy) < f.Threshold(probe)
}

// nearestIndex rounds a normalised coordinate to its closest lattice index.
// An exact half rounds down.
func nearestIndex(r float64) float64 {
	c := math.Floor(r)
	if r-c > 0.5 {
		c = math.Ceil(r)
	}
	return c
}

// NodeCenter returns the centre of obstacle (i, j).
func (f Field) NodeCenter(i, j int) (x, y float64) {
	x = f.OriginX + (float64(i)+0.5)*f.Spacing
	y = f.OriginY + (float64(j)+0.5)*f.Spacing
	return x, y
}

// NodesIn appends to dst every obstacle whose centre lies inside the closed
// rectangle [minX, maxX] x [minY, maxY], expanded by margin on every side.
// Renderers pass the obstacle radius as margin so partially visible fibres
// are drawn.
func (f Field) NodesIn(dst []Node, minX, minY, maxX, maxY, margin float64) []Node {
	if f.Spacing <= 0 || maxX < minX || maxY < minY {
		return dst
	}
	i0 := int(math.Ceil((minX-margin-f.OriginX)/f.Spacing - 0.5))
	i1 := int(math.Floor((maxX+margin-f.OriginX)/f.Spacing - 0.5))
	j0 := int(math.Ceil((minY-margin-f.OriginY)/f.Spacing - 0.5))
	j1 := int(math.Floor((maxY+margin-f.OriginY)/f.Spacing - 0.5))

	for j := j0; j <= j1; j++ {
		for i := i0; i <= i1; i++ {
			x, y := f.NodeCenter(i, j)
			dst = append(dst, Node{I: i, J: j, X: x, Y: y})
		}
	}
	return dst
}

// Porosity returns the free area fraction of one lattice cell,
// 1 - πr²/L². Only meaningful while obstacles do not overlap (r <= L/2).
func (f Field) Porosity() float64 {
	if f.Spacing <= 0 {
		return 0
	}
	return 1 - math.Pi*f.Radius*f.Radius/(f.Spacing*f.Spacing)
}

// Overlapping reports whether neighbouring obstacles intersect.
func (f Field) Overlapping() bool {
	return f.Radius >= f.Spacing/2
}
