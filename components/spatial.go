package components

import "github.com/pthm-cable/collagen/vmath"

// Position is a particle's location in domain coordinates.
type Position struct {
	vmath.Vec3
}
