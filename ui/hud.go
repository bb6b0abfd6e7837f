package ui

import (
	"fmt"
	"sort"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/collagen/telemetry"
)

// HUDData holds all the data needed to render the main HUD.
type HUDData struct {
	Title         string
	Particles     int
	Dimensions    int
	Step          int
	Time          float64
	StepsPerFrame int
	FPS           int32
	Paused        bool
	Seed          int64
}

// HUD renders the main heads-up display.
type HUD struct {
	renderer *Renderer
}

// NewHUD creates a new HUD renderer.
func NewHUD() *HUD {
	return &HUD{
		renderer: NewRenderer(),
	}
}

// Draw renders the HUD along the top edge starting at x.
func (h *HUD) Draw(x int32, data HUDData) {
	rl.DrawText(data.Title, x, 10, 20, rl.White)

	rl.DrawText(
		fmt.Sprintf("Particles: %d | %dD | Seed: %d", data.Particles, data.Dimensions, data.Seed),
		x, 35, 16, rl.LightGray,
	)

	rl.DrawText(
		fmt.Sprintf("Step: %d | t = %.1f | Steps/frame: %d | FPS: %d", data.Step, data.Time, data.StepsPerFrame, data.FPS),
		x, 55, 16, rl.LightGray,
	)

	statusText := "Running"
	if data.Paused {
		statusText = "PAUSED"
	}
	rl.DrawText(statusText, x, 75, 16, rl.Yellow)
}

// DrawControls renders the control legend at the bottom of the screen.
func (h *HUD) DrawControls(screenWidth, screenHeight int32, controls string) {
	rl.DrawText(controls, 10, screenHeight-25, 14, rl.Gray)
}

// StatsData is the latest step summary shown in the stats panel.
type StatsData struct {
	Dimensions  int
	Acceptance  float64
	MSD         float64
	DEff        float64
	DistP50     float64
	DistP90     float64
	TensorValid bool
	Tensor      [6]float64 // xx, xy, xz, yy, yz, zz
	MD          float64
	FA          float64
}

func statsOf(d any) StatsData { return d.(StatsData) }

func tensorVisible(d any) bool { return statsOf(d).TensorValid }

func is3D(d any) bool { return statsOf(d).Dimensions == 3 }

// statsSections describes the stats panel layout.
var statsSections = []SectionDescriptor{
	{
		ID:    "walk",
		Title: "Walk",
		Fields: []FieldDescriptor{
			{ID: "acceptance", Label: "Accepted", Widget: WidgetBar, Range: DefaultRange(),
				Getter: func(d any) float32 { return float32(statsOf(d).Acceptance) }},
			{ID: "msd", Label: "MSD", Widget: WidgetText, Format: "%.2f",
				Getter: func(d any) float32 { return float32(statsOf(d).MSD) }},
			{ID: "d_eff", Label: "D eff", Widget: WidgetText, Format: "%.3f",
				Getter: func(d any) float32 { return float32(statsOf(d).DEff) }},
			{ID: "dist", Label: "r p50/p90", Widget: WidgetText,
				TextGetter: func(d any) string {
					s := statsOf(d)
					return fmt.Sprintf("%.1f / %.1f", s.DistP50, s.DistP90)
				}},
		},
	},
	{
		ID:      "tensor",
		Title:   "Diffusion Tensor",
		Visible: tensorVisible,
		Fields: []FieldDescriptor{
			{ID: "row_x", Label: "x", Widget: WidgetText,
				TextGetter: func(d any) string { t := statsOf(d).Tensor; return tensorRow(t[0], t[1], t[2]) }},
			{ID: "row_y", Label: "y", Widget: WidgetText,
				TextGetter: func(d any) string { t := statsOf(d).Tensor; return tensorRow(t[1], t[3], t[4]) }},
			{ID: "row_z", Label: "z", Widget: WidgetText, Visible: is3D,
				TextGetter: func(d any) string { t := statsOf(d).Tensor; return tensorRow(t[2], t[4], t[5]) }},
			{Widget: WidgetSpacer},
			{ID: "md", Label: "Mean D", Widget: WidgetText, Format: "%.4g",
				Getter: func(d any) float32 { return float32(statsOf(d).MD) }},
			{ID: "fa", Label: "FA", Widget: WidgetBar, Range: DefaultRange(),
				Getter: func(d any) float32 { return float32(statsOf(d).FA) }},
			{ID: "dxy", Label: "Dxy", Widget: WidgetCenteredBar,
				Getter: func(d any) float32 { return float32(statsOf(d).Tensor[1]) },
				Range:  CenteredRange()},
		},
	},
}

func tensorRow(a, b, c float64) string {
	return fmt.Sprintf("%9.3g %9.3g %9.3g", a, b, c)
}

// StatsPanel renders the walk and tensor summary.
type StatsPanel struct {
	renderer *Renderer
	x, y     int32
	width    int32
}

// NewStatsPanel creates a new stats panel.
func NewStatsPanel(x, y, width int32) *StatsPanel {
	return &StatsPanel{
		renderer: NewRenderer(),
		x:        x,
		y:        y,
		width:    width,
	}
}

// SetPosition updates the panel position.
func (s *StatsPanel) SetPosition(x, y int32) {
	s.x = x
	s.y = y
}

// Draw renders the stats panel.
func (s *StatsPanel) Draw(data StatsData) {
	r := s.renderer
	padding := r.Theme.Padding

	height := padding * 2
	for _, sd := range statsSections {
		height += r.SectionHeight(sd, data)
	}
	r.DrawPanel(s.x, s.y, s.width, height)

	y := s.y + padding
	for _, sd := range statsSections {
		y = r.DrawSection(s.x+padding, y, sd, data, s.width-padding*2)
	}
}

// PerfPanel renders the per-phase step timing panel.
type PerfPanel struct {
	renderer *Renderer
	x, y     int32
}

// NewPerfPanel creates a new performance panel.
func NewPerfPanel(x, y int32) *PerfPanel {
	return &PerfPanel{
		renderer: NewRenderer(),
		x:        x,
		y:        y,
	}
}

// SetPosition updates the panel position.
func (p *PerfPanel) SetPosition(x, y int32) {
	p.x = x
	p.y = y
}

// Draw renders the performance panel.
func (p *PerfPanel) Draw(stats telemetry.PerfStats) {
	x := p.x
	y := p.y

	rl.DrawText("Step Timing", x, y, 16, rl.White)
	y += 20

	rl.DrawText(fmt.Sprintf("Avg: %s  (%.0f steps/s)", stats.AvgStepDuration.Round(time.Microsecond), stats.StepsPerSecond), x, y, 14, rl.Yellow)
	y += 16

	names := make([]string, 0, len(stats.PhaseAvg))
	for name := range stats.PhaseAvg {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return stats.PhaseAvg[names[i]] > stats.PhaseAvg[names[j]]
	})

	for _, name := range names {
		pct := stats.PhasePct[name]

		color := rl.LightGray
		if pct > 50 {
			color = rl.Red
		} else if pct > 20 {
			color = rl.Orange
		}

		rl.DrawText(
			fmt.Sprintf("%-10s %8s %5.1f%%", name, stats.PhaseAvg[name].Round(time.Microsecond), pct),
			x, y, 12, color,
		)
		y += 14
	}
}
