package game

import (
	"log/slog"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/collagen/ui"
)

// handleInput processes keyboard and mouse input.
func (g *Game) handleInput() {
	// Window resize propagation
	g.handleResize()

	// Fullscreen toggle
	if rl.IsKeyPressed(rl.KeyF11) {
		rl.ToggleFullscreen()
	}

	if rl.IsKeyPressed(rl.KeySpace) {
		g.paused = !g.paused
	}
	if rl.IsKeyPressed(rl.KeyN) && g.paused {
		g.stepOnce = true
	}
	if rl.IsKeyPressed(rl.KeyBackspace) {
		g.Restart()
	}
	if rl.IsKeyPressed(rl.KeyTab) {
		g.controls.Toggle()
	}

	// Steps-per-update control with < > keys (comma and period)
	if rl.IsKeyPressed(rl.KeyComma) && g.stepsPerUpdate > 1 {
		g.stepsPerUpdate--
	}
	if rl.IsKeyPressed(rl.KeyPeriod) && g.stepsPerUpdate < ui.MaxStepsPerFrame {
		g.stepsPerUpdate++
	}

	g.handleOverlayKeys()

	// Camera controls
	g.handleCameraInput()
}

// handleOverlayKeys checks for overlay toggle key presses.
func (g *Game) handleOverlayKeys() {
	for _, desc := range g.uiOverlays.All() {
		if desc.Key != 0 && rl.IsKeyPressed(desc.Key) {
			enabled := g.uiOverlays.Toggle(desc.ID)
			slog.Debug("overlay toggled", "overlay", desc.ID, "enabled", enabled)
		}
	}
}

// applyControls applies the controls panel actions from the last frame.
func (g *Game) applyControls(a ui.ControlActions) {
	if a.TogglePause {
		g.paused = !g.paused
	}
	if a.StepOnce {
		g.paused = true
		g.stepOnce = true
	}
	if a.ResetSim {
		g.Restart()
	}
	if a.ResetView {
		g.camera.Reset()
	}
	if a.StepsPerFrame > 0 {
		g.stepsPerUpdate = a.StepsPerFrame
	}
}

// handleResize checks for window resize and propagates new dimensions.
func (g *Game) handleResize() {
	if !rl.IsWindowResized() {
		return
	}
	w := float32(rl.GetScreenWidth())
	h := float32(rl.GetScreenHeight())
	if w == g.screenWidth && h == g.screenHeight {
		return
	}
	g.screenWidth = w
	g.screenHeight = h

	g.camera.Resize(w, h)
	g.statsPanel.SetPosition(int32(w)-290, 10)
	g.perfPanel.SetPosition(int32(w)-290, 300)
}

// handleCameraInput processes camera pan/zoom controls.
func (g *Game) handleCameraInput() {
	// Pan speed in screen pixels; Pan converts to world units
	panSpeed := float32(8.0)

	// Arrow key panning
	if rl.IsKeyDown(rl.KeyRight) {
		g.camera.Pan(panSpeed, 0)
	}
	if rl.IsKeyDown(rl.KeyLeft) {
		g.camera.Pan(-panSpeed, 0)
	}
	if rl.IsKeyDown(rl.KeyDown) {
		g.camera.Pan(0, panSpeed)
	}
	if rl.IsKeyDown(rl.KeyUp) {
		g.camera.Pan(0, -panSpeed)
	}

	mouse := rl.GetMousePosition()
	overPanel := g.controls.Contains(mouse.X, mouse.Y, g.uiOverlays)

	// Right-drag panning
	if !overPanel && rl.IsMouseButtonDown(rl.MouseButtonRight) {
		d := rl.GetMouseDelta()
		g.camera.Pan(-d.X, -d.Y)
	}

	// Zoom toward/away from cursor position
	if wheel := rl.GetMouseWheelMove(); wheel != 0 && !overPanel {
		g.camera.ZoomAt(mouse.X, mouse.Y, 1.0+wheel*0.1)
	}

	// Keyboard zoom with +/- (= and - keys)
	if rl.IsKeyPressed(rl.KeyEqual) || rl.IsKeyPressed(rl.KeyKpAdd) {
		g.camera.ZoomBy(1.25)
	}
	if rl.IsKeyPressed(rl.KeyMinus) || rl.IsKeyPressed(rl.KeyKpSubtract) {
		g.camera.ZoomBy(0.8)
	}

	// Home key to reset camera
	if rl.IsKeyPressed(rl.KeyHome) {
		g.camera.Reset()
	}
}
