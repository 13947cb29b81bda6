package layout

import (
	"fmt"
	"math"
	"sort"
)

// BoundaryKind selects how the subject region is outlined.
type BoundaryKind string

const (
	BoundaryNone  BoundaryKind = "none"
	BoundaryCells BoundaryKind = "cells"
	BoundaryHull  BoundaryKind = "hull"
)

// Cell is the quadrilateral drawn around one subject when exactly three are
// selected.
type Cell struct {
	SubjectID string  `json:"subjectId"`
	Color     string  `json:"color"`
	Points    []Point `json:"points"`
}

// Boundary is advisory geometry for the renderer.
type Boundary struct {
	Kind  BoundaryKind `json:"kind"`
	Cells []Cell       `json:"cells,omitempty"`
	Hull  []Point      `json:"hull,omitempty"`
}

// Boundary returns per-subject cells for three anchors, the convex hull for
// more than three, and nothing otherwise.
func (l *Layout) Boundary() Boundary {
	n := len(l.anchors)
	switch {
	case n == 3:
		cells := make([]Cell, n)
		for i, a := range l.anchors {
			next := l.anchors[(i+1)%n].Point()
			prev := l.anchors[(i-1+n)%n].Point()
			p := a.Point()
			cells[i] = Cell{
				SubjectID: a.ID,
				Color:     a.Color,
				Points:    []Point{p, Midpoint(p, next), l.centroid, Midpoint(p, prev)},
			}
		}
		return Boundary{Kind: BoundaryCells, Cells: cells}
	case n > 3:
		return Boundary{Kind: BoundaryHull, Hull: ConvexHull(l.Points())}
	default:
		return Boundary{Kind: BoundaryNone}
	}
}

func cross(o, a, b Point) float64 {
	return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
}

// ConvexHull returns the hull of pts in counter-clockwise order using the
// monotone chain. Fewer than three points yield nil.
func ConvexHull(pts []Point) []Point {
	if len(pts) < 3 {
		return nil
	}
	s := append([]Point(nil), pts...)
	sort.Slice(s, func(i, j int) bool {
		if s[i].X != s[j].X {
			return s[i].X < s[j].X
		}
		return s[i].Y < s[j].Y
	})

	hull := make([]Point, 0, 2*len(s))
	for _, p := range s {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	lower := len(hull) + 1
	for i := len(s) - 2; i >= 0; i-- {
		p := s[i]
		for len(hull) >= lower && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	return hull[:len(hull)-1]
}

// InConvexPolygon reports whether p lies inside or on the counter-clockwise
// polygon poly, within tolerance eps. Degenerate polygons of one or two
// points are treated as a point or a segment.
func InConvexPolygon(p Point, poly []Point, eps float64) bool {
	switch len(poly) {
	case 0:
		return false
	case 1:
		return math.Hypot(p.X-poly[0].X, p.Y-poly[0].Y) <= eps
	case 2:
		return onSegment(p, poly[0], poly[1], eps)
	}
	for i := range poly {
		if cross(poly[i], poly[(i+1)%len(poly)], p) < -eps {
			return false
		}
	}
	return true
}

func onSegment(p, a, b Point, eps float64) bool {
	if math.Abs(cross(a, b, p)) > eps {
		return false
	}
	return p.X >= math.Min(a.X, b.X)-eps && p.X <= math.Max(a.X, b.X)+eps &&
		p.Y >= math.Min(a.Y, b.Y)-eps && p.Y <= math.Max(a.Y, b.Y)+eps
}

// SVGPath renders points as a closed path in the caller's pixel space.
func SVGPath(pts []Point, toPixel func(Point) (float64, float64)) string {
	if len(pts) == 0 {
		return ""
	}
	path := ""
	for i, p := range pts {
		x, y := toPixel(p)
		cmd := "L"
		if i == 0 {
			cmd = "M"
		}
		path += fmt.Sprintf("%s%g,%g", cmd, x, y)
	}
	return path + "Z"
}
