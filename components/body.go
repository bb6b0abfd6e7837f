package components

// Body holds the physical extent of a particle. Radius doubles as the probe
// radius for obstacle collision tests.
type Body struct {
	Radius float64
}
