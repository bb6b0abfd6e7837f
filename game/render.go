package game

import (
	"math"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/collagen/renderer"
	"github.com/pthm-cable/collagen/ui"
)

const controlsLegend = "[Space] pause  [N] step  [Bksp] restart  [</>] speed  [Tab] panel  [Arrows/RMB] pan  [Wheel] zoom  [Home] view"

// Draw renders one frame.
func (g *Game) Draw() {
	g.perfCollector.RecordFrame()

	rl.BeginDrawing()
	g.background.Draw(g.camera)

	if g.uiOverlays.IsEnabled(ui.OverlayLattice) {
		g.network.DrawLattice(g.camera)
	}
	if g.uiOverlays.IsEnabled(ui.OverlayObstacles) {
		g.network.DrawFibers(g.camera)
	}
	if g.uiOverlays.IsEnabled(ui.OverlayProbeHalo) {
		g.network.DrawHalos(g.camera)
	}
	if g.uiOverlays.IsEnabled(ui.OverlayParticles) {
		g.drawParticles()
	}
	if g.uiOverlays.IsEnabled(ui.OverlayStartMarker) {
		g.particleRenderer.DrawStartMarker(g.camera, g.params.Start)
	}

	g.drawUI()

	rl.EndDrawing()
}

// drawParticles renders the population in the selected colour mode.
func (g *Game) drawParticles() {
	mode := renderer.ColorFlat
	switch {
	case g.uiOverlays.IsEnabled(ui.OverlayDistanceColor):
		mode = renderer.ColorDistance
	case g.uiOverlays.IsEnabled(ui.OverlayWalkColor):
		mode = renderer.ColorRejections
	}

	// Two RMS displacements of free diffusion map to the hottest colour.
	scale := 2 * math.Sqrt(2*float64(g.params.Dimensions)*g.params.Diffusion*g.sim.Time())

	g.views = g.sim.ParticlesInto(g.views[:0])
	g.particleRenderer.Draw(g.camera, g.views, mode, g.params.Start, scale)
}

// drawUI renders the HUD and panels.
func (g *Game) drawUI() {
	actions := g.controls.Draw(g.uiOverlays, ui.ControlState{
		Paused:        g.paused,
		StepsPerFrame: g.stepsPerUpdate,
	})
	g.applyControls(actions)

	hudX := int32(10)
	if g.controls.IsVisible() {
		hudX = 240
	}
	g.hud.Draw(hudX, ui.HUDData{
		Title:         "Collagen Diffusion",
		Particles:     g.sim.Len(),
		Dimensions:    g.params.Dimensions,
		Step:          g.sim.StepIndex(),
		Time:          g.sim.Time(),
		StepsPerFrame: g.stepsPerUpdate,
		FPS:           rl.GetFPS(),
		Paused:        g.paused,
		Seed:          g.params.Seed,
	})

	st := g.lastStats
	data := ui.StatsData{
		Dimensions: g.params.Dimensions,
		DistP50:    g.lastRecord.DistP50,
		DistP90:    g.lastRecord.DistP90,
	}
	if st.Step > 0 {
		data.Acceptance = st.AcceptanceRatio()
		data.MSD = st.MSD
		data.DEff = st.EffectiveDiffusivity
		if st.TensorValid {
			data.TensorValid = true
			data.Tensor = st.Tensor
			if a, err := st.Tensor.Analyze(g.params.Dimensions); err == nil {
				data.MD = a.MeanDiffusivity
				data.FA = a.FractionalAnisotropy
			}
		}
	}
	g.statsPanel.Draw(data)

	if g.uiOverlays.IsEnabled(ui.OverlayPerf) {
		g.perfPanel.Draw(g.perfCollector.Stats())
	}

	g.hud.DrawControls(int32(g.screenWidth), int32(g.screenHeight), controlsLegend)
}
