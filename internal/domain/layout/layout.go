// Package layout places subject anchors in the unit square of the scatter
// view and keeps the derived centroid and bearings current as anchors are
// dragged.
//
// Coordinates are normalized: x and y are in [0,1] with y pointing up. The
// pixel mapping belongs to the caller, which passes pixels-per-unit factors
// where a fixed on-screen distance is needed.
package layout

import (
	"math"

	"github.com/AdamCoscia/KnowledgeVIS/internal/domain/prediction"
	"github.com/AdamCoscia/KnowledgeVIS/pkg/errors"
)

// Point is a position in the unit square.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Lerp returns (1-t)·p + t·q.
func Lerp(p, q Point, t float64) Point {
	return Point{X: (1-t)*p.X + t*q.X, Y: (1-t)*p.Y + t*q.Y}
}

// Midpoint is Lerp at one half.
func Midpoint(p, q Point) Point {
	return Point{X: (p.X + q.X) / 2, Y: (p.Y + q.Y) / 2}
}

// Anchor is a subject positioned in the plot.
type Anchor struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	AngleDeg float64 `json:"angleDeg"`
	Color    string  `json:"color"`
}

func (a Anchor) Point() Point { return Point{X: a.X, Y: a.Y} }

// Layout holds the anchors of the selected subjects in selection order.
type Layout struct {
	anchors  []Anchor
	index    map[string]int
	centroid Point
}

// New places subjects on a regular polygon of radius 0.5 around (0.5, 0.5),
// the first at the top and the rest clockwise.
func New(subjects []prediction.Subject) *Layout {
	n := len(subjects)
	l := &Layout{
		anchors: make([]Anchor, n),
		index:   make(map[string]int, n),
	}
	color := GreyFor(n)
	for i, s := range subjects {
		theta := 2 * math.Pi * float64(i) / float64(n)
		l.anchors[i] = Anchor{
			ID:       s.ID,
			Name:     s.Name,
			X:        0.5 + 0.5*math.Sin(theta),
			Y:        0.5 + 0.5*math.Cos(theta),
			AngleDeg: 360 * float64(i) / float64(n),
			Color:    color(i),
		}
		l.index[s.ID] = i
	}
	l.centroid = l.mean()
	return l
}

// Len is the number of anchors.
func (l *Layout) Len() int { return len(l.anchors) }

// Anchors returns a copy of the anchors in order.
func (l *Layout) Anchors() []Anchor { return append([]Anchor(nil), l.anchors...) }

// Anchor looks up an anchor by subject id.
func (l *Layout) Anchor(id string) (Anchor, bool) {
	i, ok := l.index[id]
	if !ok {
		return Anchor{}, false
	}
	return l.anchors[i], true
}

// Points returns anchor positions in order.
func (l *Layout) Points() []Point {
	out := make([]Point, len(l.anchors))
	for i, a := range l.anchors {
		out[i] = a.Point()
	}
	return out
}

// Centroid is the mean anchor position.
func (l *Layout) Centroid() Point { return l.centroid }

// Move repositions one anchor, then recomputes the centroid and every bearing.
func (l *Layout) Move(id string, p Point) error {
	i, ok := l.index[id]
	if !ok {
		return errors.Newf(errors.ErrCodeUnknownSubject, "subject %q is not in the layout", id)
	}
	if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsInf(p.X, 0) || math.IsInf(p.Y, 0) {
		return errors.Newf(errors.ErrCodeValidation, "invalid position (%v, %v)", p.X, p.Y)
	}
	l.anchors[i].X, l.anchors[i].Y = p.X, p.Y
	l.centroid = l.mean()
	for j := range l.anchors {
		l.anchors[j].AngleDeg = Bearing(l.anchors[j].Point(), l.centroid)
	}
	return nil
}

func (l *Layout) mean() Point {
	if len(l.anchors) == 0 {
		return Point{}
	}
	var sx, sy float64
	for _, a := range l.anchors {
		sx += a.X
		sy += a.Y
	}
	n := float64(len(l.anchors))
	return Point{X: sx / n, Y: sy / n}
}

// Bearing is the clockwise angle from vertical of p seen from c, in [0, 360).
func Bearing(p, c Point) float64 {
	deg := math.Atan2(p.X-c.X, p.Y-c.Y) * 180 / math.Pi
	if deg < 0 {
		deg += 360
	}
	return deg
}

// DragTarget converts a pointer drag into a unit-square position. dx and dy
// are the pointer coordinates relative to the drag start in pixels, start is
// the anchor position when the drag began, and pxX, pxY are pixels per unit
// on each axis. Screen y grows downward, hence the sign flip.
func DragTarget(start Point, dx, dy, pxX, pxY float64) Point {
	return Point{X: dx/pxX + start.X, Y: -dy/pxY + start.Y}
}
