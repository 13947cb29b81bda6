package projection

import (
	"github.com/AdamCoscia/KnowledgeVIS/internal/domain/layout"
)

// Margins are pixel insets on each side of a plot.
type Margins struct {
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
	Left   float64 `json:"left"`
}

// UniformMargins returns equal insets.
func UniformMargins(m float64) Margins {
	return Margins{Top: m, Right: m, Bottom: m, Left: m}
}

// Frame maps the unit square onto a pixel viewport, widening the shorter
// axis' domain so that one unit has the same pixel length on both axes.
type Frame struct {
	Width, Height float64
	Margins       Margins
	X, Y          Scale
}

// NewFrame builds the square-aspect mapping for a width × height viewport.
// Y grows upward in unit space and downward on screen.
func NewFrame(width, height float64, m Margins) Frame {
	xRange := [2]float64{m.Left, width - m.Right}
	yRange := [2]float64{height - m.Bottom, m.Top}
	xDomain := [2]float64{0, 1}
	yDomain := [2]float64{0, 1}

	switch {
	case width < height:
		x := Linear(xDomain, xRange)
		diff := height - width
		adjust := x.Invert(diff/2) - x.Invert(0)
		yDomain = [2]float64{-adjust, 1 + adjust}
	case width > height:
		y := Linear(yDomain, yRange)
		diff := width - height
		adjust := y.Invert(height-diff/2) - y.Invert(height)
		xDomain = [2]float64{-adjust, 1 + adjust}
	}

	return Frame{
		Width:   width,
		Height:  height,
		Margins: m,
		X:       Linear(xDomain, xRange),
		Y:       Linear(yDomain, yRange),
	}
}

// ToPixel maps a unit-square point to screen pixels.
func (f Frame) ToPixel(p layout.Point) (float64, float64) {
	return f.X.Map(p.X), f.Y.Map(p.Y)
}

// ToUnit maps screen pixels back to the unit square.
func (f Frame) ToUnit(x, y float64) layout.Point {
	return layout.Point{X: f.X.Invert(x), Y: f.Y.Invert(y)}
}

// PixelsPerUnit returns the screen length of one unit on each axis.
func (f Frame) PixelsPerUnit() (x, y float64) {
	return f.X.Map(1) - f.X.Map(0), f.Y.Map(0) - f.Y.Map(1)
}
