package ui

import (
	"fmt"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"
)

// MaxStepsPerFrame bounds the steps-per-frame slider.
const MaxStepsPerFrame = 50

// ControlState is the run state shown by the controls panel.
type ControlState struct {
	Paused        bool
	StepsPerFrame int
}

// ControlActions reports what the user did in the controls panel this frame.
type ControlActions struct {
	TogglePause   bool
	StepOnce      bool
	ResetSim      bool
	ResetView     bool
	StepsPerFrame int
}

// ControlsPanel renders the left-side controls panel with run buttons and
// overlay toggles.
type ControlsPanel struct {
	renderer *Renderer
	x, y     int32
	width    int32
	visible  bool
}

// NewControlsPanel creates a new controls panel.
func NewControlsPanel(x, y, width int32) *ControlsPanel {
	return &ControlsPanel{
		renderer: NewRenderer(),
		x:        x,
		y:        y,
		width:    width,
		visible:  true,
	}
}

// SetPosition updates the panel position.
func (c *ControlsPanel) SetPosition(x, y int32) {
	c.x = x
	c.y = y
}

// IsVisible returns whether the panel is shown.
func (c *ControlsPanel) IsVisible() bool {
	return c.visible
}

// Toggle switches panel visibility.
func (c *ControlsPanel) Toggle() bool {
	c.visible = !c.visible
	return c.visible
}

// Contains reports whether a screen point lies on the panel.
func (c *ControlsPanel) Contains(px, py float32, overlays *OverlayRegistry) bool {
	if !c.visible {
		return false
	}
	return px >= float32(c.x) && px <= float32(c.x+c.width) &&
		py >= float32(c.y) && py <= float32(c.y+c.height(overlays))
}

func (c *ControlsPanel) height(overlays *OverlayRegistry) int32 {
	r := c.renderer
	items := 0
	for _, cat := range overlays.Categories() {
		items += len(overlays.ByCategory(cat)) + 1
	}
	// title, two button rows, slider label and slider
	return r.Theme.Padding*3 + r.Theme.LineHeight + 4 + 2*30 + 18 + 28 + int32(items)*(r.Theme.LineHeight+4)
}

// Draw renders the panel and returns the actions taken.
func (c *ControlsPanel) Draw(overlays *OverlayRegistry, state ControlState) ControlActions {
	actions := ControlActions{StepsPerFrame: state.StepsPerFrame}
	if !c.visible {
		return actions
	}

	r := c.renderer
	padding := r.Theme.Padding

	r.DrawPanel(c.x, c.y, c.width, c.height(overlays))

	x := float32(c.x + padding)
	y := float32(c.y + padding)
	inner := float32(c.width - padding*2)
	half := (inner - 6) / 2

	rl.DrawText("Controls", int32(x), int32(y), 16, rl.White)
	y += float32(r.Theme.LineHeight + 4)

	pauseText := "Pause"
	if state.Paused {
		pauseText = "Resume"
	}
	if gui.Button(rl.Rectangle{X: x, Y: y, Width: half, Height: 24}, pauseText) {
		actions.TogglePause = true
	}
	if gui.Button(rl.Rectangle{X: x + half + 6, Y: y, Width: half, Height: 24}, "Step") {
		actions.StepOnce = true
	}
	y += 30

	if gui.Button(rl.Rectangle{X: x, Y: y, Width: half, Height: 24}, "Restart") {
		actions.ResetSim = true
	}
	if gui.Button(rl.Rectangle{X: x + half + 6, Y: y, Width: half, Height: 24}, "Reset View") {
		actions.ResetView = true
	}
	y += 30

	rl.DrawText(fmt.Sprintf("Steps/frame: %d", state.StepsPerFrame), int32(x), int32(y), r.Theme.FontSize, r.Theme.LabelColor)
	y += 18
	v := gui.SliderBar(
		rl.Rectangle{X: x, Y: y, Width: inner, Height: 16},
		"", "",
		float32(state.StepsPerFrame), 1, MaxStepsPerFrame,
	)
	if n := int(v + 0.5); n != state.StepsPerFrame {
		actions.StepsPerFrame = clampInt(n, 1, MaxStepsPerFrame)
	}
	y += 28

	for _, category := range overlays.Categories() {
		rl.DrawText(categoryLabel(category), int32(x), int32(y), r.Theme.HeaderFontSize, r.Theme.SectionHeader)
		y += float32(r.Theme.LineHeight + 4)

		for _, desc := range overlays.ByCategory(category) {
			enabled := overlays.IsEnabled(desc.ID)
			label := desc.Name
			if desc.KeyLabel != "" {
				label = fmt.Sprintf("%s [%s]", desc.Name, desc.KeyLabel)
			}
			checked := gui.CheckBox(rl.Rectangle{X: x, Y: y, Width: 12, Height: 12}, label, enabled)
			if checked != enabled {
				overlays.SetEnabled(desc.ID, checked)
			}
			y += float32(r.Theme.LineHeight + 4)
		}
	}

	return actions
}

// categoryLabel returns a display label for a category.
func categoryLabel(cat string) string {
	switch cat {
	case "network":
		return "Network"
	case "particles":
		return "Particles"
	case "debug":
		return "Debug"
	default:
		return cat
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
