package projection

import (
	"github.com/AdamCoscia/KnowledgeVIS/internal/domain/layout"
	"github.com/AdamCoscia/KnowledgeVIS/internal/domain/prediction"
)

// Marker size range in pixels.
var markerRange = [2]float64{2, 8}

// Common is a term placed once between the anchors that predicted it.
type Common struct {
	Term     *prediction.Term `json:"-"`
	X        float64          `json:"x"`
	Y        float64          `json:"y"`
	Width    float64          `json:"width"`
	Height   float64          `json:"height"`
	MaxValue float64          `json:"maxValue"`
}

// Point returns the projected position.
func (c Common) Point() layout.Point { return layout.Point{X: c.X, Y: c.Y} }

// Unique is a term attached to the single anchor that predicted it.
type Unique struct {
	Term     *prediction.Term `json:"-"`
	Score    float64          `json:"score"`
	Width    float64          `json:"width"`
	Height   float64          `json:"height"`
	MaxValue float64          `json:"maxValue"`
}

// Result partitions terms into common and per-subject unique lists. Unique
// has an entry, possibly empty, for every anchor.
type Result struct {
	Common []Common
	Unique map[string][]Unique
}

// UniqueCount is the number of unique terms attached to subject id.
func (r Result) UniqueCount(id string) int { return len(r.Unique[id]) }

// Projector places scatter terms among subject anchors.
type Projector struct {
	size Scale
}

// NewProjector sizes markers over extent with the given scale mode.
func NewProjector(mode prediction.ScaleMode, extent [2]float64) *Projector {
	return &Projector{size: NewScale(mode, extent, markerRange)}
}

type weighted struct {
	score float64
	pos   layout.Point
	id    string
}

// Project classifies every term against anchors under sharing mode and
// computes the position of common terms. Each call rebuilds the result.
//
// A term is common when no sharing restriction is active and more than one
// anchor scores it, or when "shared" is active and every anchor scores it.
// Otherwise a term scored by exactly one anchor is unique to it, and any
// other term is dropped.
func (p *Projector) Project(terms []*prediction.Term, anchors []layout.Anchor, mode prediction.SharingMode) Result {
	res := Result{Unique: make(map[string][]Unique, len(anchors))}
	for _, a := range anchors {
		res.Unique[a.ID] = []Unique{}
	}

	s := make([]weighted, 0, len(anchors))
	for _, t := range terms {
		s = s[:0]
		maxValue := 0.0
		for _, a := range anchors {
			if d := t.ScoreFor(a.ID); d > 0 {
				if d > maxValue {
					maxValue = d
				}
				s = append(s, weighted{score: d, pos: a.Point(), id: a.ID})
			}
		}
		if len(s) == 0 {
			continue
		}
		size := p.size.Map(maxValue)

		open := mode == prediction.SharingAll || mode == ""
		common := (open && len(s) > 1) ||
			(mode == prediction.SharingShared && len(s) == len(anchors))

		switch {
		case common:
			pos := blend(s)
			res.Common = append(res.Common, Common{
				Term: t, X: pos.X, Y: pos.Y, Width: size, Height: size, MaxValue: maxValue,
			})
		case len(s) == 1:
			res.Unique[s[0].id] = append(res.Unique[s[0].id], Unique{
				Term: t, Score: s[0].score, Width: size, Height: size, MaxValue: maxValue,
			})
		}
	}
	return res
}

// blend repeatedly replaces the first two entries with their weighted
// interpolation, appended to the end, until one remains. With t = db/(da+db)
// the merged point is (1-t)·pa + t·pb and carries weight da+db.
func blend(s []weighted) layout.Point {
	queue := append([]weighted(nil), s...)
	for len(queue) > 1 {
		a, b := queue[0], queue[1]
		queue = queue[2:]
		d := a.score + b.score
		t := b.score / d
		queue = append(queue, weighted{score: d, pos: layout.Lerp(a.pos, b.pos, t)})
	}
	return queue[0].pos
}

// BlendPoints is blend over parallel score and position slices.
func BlendPoints(scores []float64, points []layout.Point) layout.Point {
	s := make([]weighted, len(scores))
	for i := range scores {
		s[i] = weighted{score: scores[i], pos: points[i]}
	}
	return blend(s)
}
