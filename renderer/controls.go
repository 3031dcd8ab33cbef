package renderer

import (
	"fmt"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"
)

// Controls holds the values the panel edits. The driver applies changes
// through Simulation.Reconfigure; the panel never touches the simulation.
type Controls struct {
	SpeedFactor float32
	Animate     bool
	Clear       bool // one-shot, reset by the driver after handling
	Changed     bool
}

// ControlsPanel renders the simulation control panel.
type ControlsPanel struct {
	x, y    float32
	width   float32
	visible bool
}

// NewControlsPanel creates a panel anchored at (x, y).
func NewControlsPanel(x, y, width float32) *ControlsPanel {
	return &ControlsPanel{x: x, y: y, width: width, visible: true}
}

// Toggle switches panel visibility.
func (c *ControlsPanel) Toggle() bool {
	c.visible = !c.visible
	return c.visible
}

// Draw renders the panel and updates ctl in place.
func (c *ControlsPanel) Draw(ctl *Controls) {
	if !c.visible {
		return
	}

	x := c.x
	y := c.y

	rl.DrawText("Flow", int32(x), int32(y), 20, rl.DarkGray)
	y += 30

	rl.DrawText("Speed factor", int32(x), int32(y), 14, rl.Gray)
	y += 18
	newSpeed := gui.SliderBar(
		rl.Rectangle{X: x, Y: y, Width: c.width - 60, Height: 20},
		"0", "1",
		ctl.SpeedFactor, 0, 1,
	)
	rl.DrawText(fmt.Sprintf("%.2f", ctl.SpeedFactor), int32(x+c.width-50), int32(y+2), 16, rl.DarkGray)
	if newSpeed != ctl.SpeedFactor {
		ctl.SpeedFactor = newSpeed
		ctl.Changed = true
	}
	y += 32

	label := "Pause"
	if !ctl.Animate {
		label = "Animate"
	}
	if gui.Button(rl.Rectangle{X: x, Y: y, Width: 100, Height: 28}, label) {
		ctl.Animate = !ctl.Animate
		ctl.Changed = true
	}
	if gui.Button(rl.Rectangle{X: x + 110, Y: y, Width: 100, Height: 28}, "Clear") {
		ctl.Clear = true
	}
}
