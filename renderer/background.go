package renderer

import (
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/collagen/camera"
)

// BackgroundRenderer clears the frame and outlines the home world rectangle.
type BackgroundRenderer struct {
	ClearColor  rl.Color
	BorderColor rl.Color
}

// NewBackgroundRenderer creates a new background renderer.
func NewBackgroundRenderer(baseR, baseG, baseB uint8) *BackgroundRenderer {
	return &BackgroundRenderer{
		ClearColor:  rl.Color{R: baseR, G: baseG, B: baseB, A: 255},
		BorderColor: rl.Color{R: 80, G: 90, B: 100, A: 160},
	}
}

// Draw clears the screen and draws the world rectangle border.
func (b *BackgroundRenderer) Draw(cam *camera.Camera) {
	rl.ClearBackground(b.ClearColor)

	x0, y0 := cam.WorldToScreen(0, 0)
	x1, y1 := cam.WorldToScreen(cam.WorldW, cam.WorldH)
	rl.DrawRectangleLinesEx(rl.Rectangle{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}, 1, b.BorderColor)
}
