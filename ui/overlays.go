package ui

import (
	rl "github.com/gen2brain/raylib-go/raylib"
)

// OverlayID uniquely identifies an overlay.
type OverlayID string

// Standard overlay IDs.
const (
	OverlayObstacles     OverlayID = "obstacles"
	OverlayProbeHalo     OverlayID = "probe_halo"
	OverlayParticles     OverlayID = "particles"
	OverlayDistanceColor OverlayID = "distance_color"
	OverlayWalkColor     OverlayID = "walk_color"
	OverlayLattice       OverlayID = "lattice"
	OverlayStartMarker   OverlayID = "start_marker"
	OverlayPerf          OverlayID = "perf"
)

// OverlayDescriptor defines an overlay that can be toggled.
type OverlayDescriptor struct {
	ID          OverlayID   // Unique identifier
	Name        string      // Display name
	Description string      // What this overlay shows
	Key         int32       // Keyboard key to toggle (0 = no key)
	KeyLabel    string      // Key label for display (e.g., "O", "P")
	Category    string      // Grouping (e.g., "network", "debug")
	Exclusive   []OverlayID // Other overlays to disable when this is enabled
}

// OverlayRegistry manages overlay state and metadata.
type OverlayRegistry struct {
	descriptors []OverlayDescriptor
	byID        map[OverlayID]OverlayDescriptor
	enabled     map[OverlayID]bool
	order       []OverlayID // Maintains insertion order for display
}

// NewOverlayRegistry creates a registry with default overlays.
func NewOverlayRegistry() *OverlayRegistry {
	reg := &OverlayRegistry{
		byID:    make(map[OverlayID]OverlayDescriptor),
		enabled: make(map[OverlayID]bool),
	}
	reg.registerDefaults()
	return reg
}

// registerDefaults adds standard overlays.
func (r *OverlayRegistry) registerDefaults() {
	// Network overlays
	r.Register(OverlayDescriptor{
		ID:          OverlayObstacles,
		Name:        "Fibers",
		Description: "Draw obstacle cross-sections",
		Key:         rl.KeyO,
		KeyLabel:    "O",
		Category:    "network",
	})

	r.Register(OverlayDescriptor{
		ID:          OverlayProbeHalo,
		Name:        "Collision Halo",
		Description: "Outline the obstacle radius grown by the particle radius",
		Key:         rl.KeyH,
		KeyLabel:    "H",
		Category:    "network",
	})

	r.Register(OverlayDescriptor{
		ID:          OverlayLattice,
		Name:        "Lattice",
		Description: "Draw lattice cell boundaries",
		Key:         rl.KeyG,
		KeyLabel:    "G",
		Category:    "network",
	})

	// Particle overlays
	r.Register(OverlayDescriptor{
		ID:          OverlayParticles,
		Name:        "Particles",
		Description: "Draw the walker population",
		Key:         rl.KeyP,
		KeyLabel:    "P",
		Category:    "particles",
	})

	r.Register(OverlayDescriptor{
		ID:          OverlayDistanceColor,
		Name:        "Color by Distance",
		Description: "Shade particles by distance from the start point",
		Key:         rl.KeyC,
		KeyLabel:    "C",
		Category:    "particles",
		Exclusive:   []OverlayID{OverlayWalkColor},
	})

	r.Register(OverlayDescriptor{
		ID:          OverlayWalkColor,
		Name:        "Color by Rejections",
		Description: "Shade particles by their rejected move share",
		Key:         rl.KeyR,
		KeyLabel:    "R",
		Category:    "particles",
		Exclusive:   []OverlayID{OverlayDistanceColor},
	})

	r.Register(OverlayDescriptor{
		ID:          OverlayStartMarker,
		Name:        "Start Point",
		Description: "Mark the common start point",
		Key:         rl.KeyM,
		KeyLabel:    "M",
		Category:    "particles",
	})

	// Debug overlays
	r.Register(OverlayDescriptor{
		ID:          OverlayPerf,
		Name:        "Step Timing",
		Description: "Show per-phase step timing",
		Key:         rl.KeyF3,
		KeyLabel:    "F3",
		Category:    "debug",
	})

	r.SetEnabled(OverlayObstacles, true)
	r.SetEnabled(OverlayParticles, true)
	r.SetEnabled(OverlayStartMarker, true)
}

// Register adds an overlay to the registry.
func (r *OverlayRegistry) Register(desc OverlayDescriptor) {
	r.descriptors = append(r.descriptors, desc)
	r.byID[desc.ID] = desc
	r.order = append(r.order, desc.ID)
	r.enabled[desc.ID] = false
}

// Toggle switches an overlay on/off and handles exclusivity.
func (r *OverlayRegistry) Toggle(id OverlayID) bool {
	desc, ok := r.byID[id]
	if !ok {
		return false
	}

	newState := !r.enabled[id]
	r.enabled[id] = newState

	// If enabling, disable exclusive overlays
	if newState {
		for _, excl := range desc.Exclusive {
			r.enabled[excl] = false
		}
	}

	return newState
}

// SetEnabled explicitly sets an overlay's state.
func (r *OverlayRegistry) SetEnabled(id OverlayID, enabled bool) {
	desc, ok := r.byID[id]
	if !ok {
		return
	}

	r.enabled[id] = enabled

	// If enabling, disable exclusive overlays
	if enabled {
		for _, excl := range desc.Exclusive {
			r.enabled[excl] = false
		}
	}
}

// IsEnabled returns whether an overlay is active.
func (r *OverlayRegistry) IsEnabled(id OverlayID) bool {
	return r.enabled[id]
}

// All returns all registered overlays in registration order.
func (r *OverlayRegistry) All() []OverlayDescriptor {
	return r.descriptors
}

// ByCategory returns overlays filtered by category.
func (r *OverlayRegistry) ByCategory(category string) []OverlayDescriptor {
	var result []OverlayDescriptor
	for _, desc := range r.descriptors {
		if desc.Category == category {
			result = append(result, desc)
		}
	}
	return result
}

// Categories returns all unique categories in order.
func (r *OverlayRegistry) Categories() []string {
	seen := make(map[string]bool)
	var cats []string
	for _, desc := range r.descriptors {
		if !seen[desc.Category] {
			seen[desc.Category] = true
			cats = append(cats, desc.Category)
		}
	}
	return cats
}

// HandleKeyPress checks if a key corresponds to an overlay toggle.
// Returns the overlay ID and new state if a toggle occurred.
func (r *OverlayRegistry) HandleKeyPress(key int32) (OverlayID, bool, bool) {
	for _, desc := range r.descriptors {
		if desc.Key == key {
			newState := r.Toggle(desc.ID)
			return desc.ID, newState, true
		}
	}
	return "", false, false
}

// EnabledOverlays returns a list of currently enabled overlay IDs.
func (r *OverlayRegistry) EnabledOverlays() []OverlayID {
	var result []OverlayID
	for _, id := range r.order {
		if r.enabled[id] {
			result = append(result, id)
		}
	}
	return result
}
