// Package components defines ECS components for the particle population.
package components

// Walk counts the outcomes of a particle's proposed moves.
type Walk struct {
	Accepted uint32
	Rejected uint32
}

// AcceptanceRatio returns the fraction of proposed moves that were committed.
func (w Walk) AcceptanceRatio() float64 {
	total := w.Accepted + w.Rejected
	if total == 0 {
		return 0
	}
	return float64(w.Accepted) / float64(total)
}
