package layout

import (
	"fmt"
	"math"
)

// Greys holds the grey scheme for three to nine anchors, lightest first.
var Greys = map[int][]string{
	3: {"#f0f0f0", "#bdbdbd", "#636363"},
	4: {"#f7f7f7", "#cccccc", "#969696", "#525252"},
	5: {"#f7f7f7", "#cccccc", "#969696", "#636363", "#252525"},
	6: {"#f7f7f7", "#d9d9d9", "#bdbdbd", "#969696", "#636363", "#252525"},
	7: {"#f7f7f7", "#d9d9d9", "#bdbdbd", "#969696", "#737373", "#525252", "#252525"},
	8: {"#ffffff", "#f0f0f0", "#d9d9d9", "#bdbdbd", "#969696", "#737373", "#525252", "#252525"},
	9: {"#ffffff", "#f0f0f0", "#d9d9d9", "#bdbdbd", "#969696", "#737373", "#525252", "#252525", "#000000"},
}

// FallbackGrey colours anchors when there are too few or too many for Greys.
const FallbackGrey = "#ccc"

// GreyFor returns the colour function for n anchors.
func GreyFor(n int) func(i int) string {
	scheme, ok := Greys[n]
	if !ok {
		return func(int) string { return FallbackGrey }
	}
	return func(i int) string { return scheme[i%len(scheme)] }
}

// LabelPosition returns where a subject's label goes: distPx pixels from the
// anchor along the centroid line, on the side away from the centroid. pxX and
// pxY are pixels per unit on each axis so that the offset stays constant on
// screen. An anchor sitting on the centroid keeps its own position.
func (l *Layout) LabelPosition(id string, distPx, pxX, pxY float64) (Point, bool) {
	a, ok := l.Anchor(id)
	if !ok {
		return Point{}, false
	}
	p := a.Point()
	c := l.centroid
	dist := math.Hypot(c.X-p.X, c.Y-p.Y)
	if dist < alignEps {
		return p, true
	}
	return Point{
		X: pullAway(p.X, c.X, dist, distPx, pxX),
		Y: pullAway(p.Y, c.Y, dist, distPx, pxY),
	}, true
}

// alignEps treats an anchor within rounding noise of the centroid as sitting
// on it.
const alignEps = 1e-9

// pullAway moves one coordinate along the anchor to centroid line. dist is
// the euclidean anchor to centroid distance and at the pixel offset in units
// of this axis: t = -at/dist and the result is (1-t)·p + t·c.
func pullAway(p, c, dist, distPx, pxPerUnit float64) float64 {
	if pxPerUnit == 0 {
		return p
	}
	at := distPx / pxPerUnit
	t := -at / dist
	return (1-t)*p + t*c
}

// LabelTransform rotates a label to its bearing and flips it upright when the
// bearing points downward.
func LabelTransform(angleDeg float64) (rotate float64, flip bool, transform string) {
	flip = angleDeg >= 90 && angleDeg <= 270
	transform = fmt.Sprintf("rotate(%g)", angleDeg)
	if flip {
		transform += " scale(-1,-1)"
	}
	return angleDeg, flip, transform
}

// LabelText is the subject name followed by its unique-term count.
func LabelText(name string, uniqueCount int) string {
	return fmt.Sprintf("%s (%d)", name, uniqueCount)
}
