package views

import (
	"github.com/AdamCoscia/KnowledgeVIS/internal/domain/layout"
	"github.com/AdamCoscia/KnowledgeVIS/internal/domain/occlusion"
	"github.com/AdamCoscia/KnowledgeVIS/internal/domain/prediction"
	"github.com/AdamCoscia/KnowledgeVIS/internal/domain/projection"
	"github.com/AdamCoscia/KnowledgeVIS/pkg/errors"
)

var (
	scatterTextRange      = [2]float64{8, 16}
	connectorWidthRange   = [2]float64{1, 4}
	connectorOpacityRange = [2]float64{0.1, 0.9}
)

const (
	subjectRadius    = 6
	subjectFontSize  = 10
	termLabelDx      = 3
	termLabelDy      = -3
	boundaryStroke   = "#2b2b2b"
	subjectPointEdge = "#e6e6e6"
)

// ScatterView places each selected subject on an anchor and every term shared
// by several subjects between them. The anchor layout survives mode changes
// and is rebuilt only when the selection or the dataset changes.
type ScatterView struct {
	opts      Options
	ds        *prediction.Dataset
	state     prediction.FilterState
	layout    *layout.Layout
	selection []string
	terms     []*prediction.Term
	result    projection.Result
	occluded  []bool
	drag      *dragState
}

type dragState struct {
	id    string
	start layout.Point
}

// NewScatterView returns an empty scatter view.
func NewScatterView(opts Options) *ScatterView {
	return &ScatterView{opts: opts.withDefaults()}
}

func (v *ScatterView) Kind() Kind { return KindScatter }

func (v *ScatterView) Filter(ds *prediction.Dataset, st prediction.FilterState) {
	ids := ds.Order(st.Selected())
	if v.ds != ds || v.layout == nil || !equalIDs(ids, v.selection) {
		subjects := make([]prediction.Subject, 0, len(ids))
		for _, id := range ids {
			s, _ := ds.Subject(id)
			subjects = append(subjects, s)
		}
		v.layout = layout.New(subjects)
		v.selection = ids
		v.drag = nil
	}
	v.ds, v.state = ds, st
	v.terms = prediction.FilterTerms(ds.Terms, ids, st.Sharing)
}

// Arrange reprojects every term against the current anchors. Occlusion
// flags are dropped until the next ResolveOcclusion.
func (v *ScatterView) Arrange() {
	v.occluded = nil
	if v.ds == nil || v.layout == nil || v.layout.Len() < 2 {
		v.result = projection.Result{}
		return
	}
	p := projection.NewProjector(v.state.Scale, v.ds.Extent)
	v.result = p.Project(v.terms, v.layout.Anchors(), v.state.Sharing)
}

func (v *ScatterView) Len() int {
	n := len(v.result.Common)
	for _, u := range v.result.Unique {
		n += len(u)
	}
	return n
}

func (v *ScatterView) Reset() {
	*v = ScatterView{opts: v.opts}
}

// Layout returns the live anchor layout, or nil before the first Filter.
func (v *ScatterView) Layout() *layout.Layout { return v.layout }

// Result returns the last projection.
func (v *ScatterView) Result() projection.Result { return v.result }

// Dragging reports whether a drag has started and not yet ended.
func (v *ScatterView) Dragging() bool { return v.drag != nil }

func (v *ScatterView) frame(vp Viewport) projection.Frame {
	return projection.NewFrame(vp.Width, vp.Height, projection.UniformMargins(v.opts.ScatterMargin))
}

// Drag moves subject id to where the pointer is, dx and dy pixels from where
// the drag started, and reprojects. Labels stay unoccluded while the drag
// runs; the final frame resolves occlusion again.
func (v *ScatterView) Drag(vp Viewport, id string, dx, dy float64, final bool) error {
	if v.layout == nil || v.layout.Len() < 2 {
		return errors.New(errors.ErrCodeTooFewSubjects, "scatter view needs at least two selected subjects")
	}
	a, ok := v.layout.Anchor(id)
	if !ok {
		return errors.Newf(errors.ErrCodeUnknownSubject, "subject %q is not on the scatter view", id)
	}
	if v.drag == nil || v.drag.id != id {
		v.drag = &dragState{id: id, start: a.Point()}
	}
	pxX, pxY := v.frame(vp).PixelsPerUnit()
	if err := v.layout.Move(id, layout.DragTarget(v.drag.start, dx, dy, pxX, pxY)); err != nil {
		return err
	}
	v.Arrange()
	if final {
		v.drag = nil
		_, err := v.ResolveOcclusion(vp, nil)
		return err
	}
	return nil
}

func (v *ScatterView) textScale() projection.Scale {
	return projection.NewScale(v.state.Scale, v.ds.Extent, scatterTextRange)
}

// LabelBoxes estimates the pixel box of every common-term label in draw
// order.
func (v *ScatterView) LabelBoxes(vp Viewport) []occlusion.Box {
	if v.ds == nil {
		return nil
	}
	f := v.frame(vp)
	text := v.textScale()
	boxes := make([]occlusion.Box, len(v.result.Common))
	for i, c := range v.result.Common {
		x, y := f.ToPixel(c.Point())
		boxes[i] = occlusion.LabelBox(v.opts.Measurer, c.Term.Name, text.Map(c.MaxValue), x, y, termLabelDx, termLabelDy)
	}
	return boxes
}

// ResolveOcclusion hides common-term labels that overlap an earlier one.
// boxes, when given, must hold one measured box per common term in draw
// order; nil falls back to LabelBoxes. It returns how many labels are hidden.
func (v *ScatterView) ResolveOcclusion(vp Viewport, boxes []occlusion.Box) (int, error) {
	if boxes == nil {
		boxes = v.LabelBoxes(vp)
	}
	if len(boxes) != len(v.result.Common) {
		return 0, errors.Newf(errors.ErrCodeValidation,
			"got %d label boxes for %d labels", len(boxes), len(v.result.Common))
	}
	v.occluded = occlusion.Resolve(boxes)
	return len(boxes) - occlusion.Visible(v.occluded), nil
}

// Occluded returns the flags of the last resolution, aligned with
// Result().Common, or nil when labels have moved since.
func (v *ScatterView) Occluded() []bool { return v.occluded }

func (v *ScatterView) Render(vp Viewport) Drawing {
	d := Drawing{Kind: KindScatter, Width: vp.Width, Height: vp.Height}
	if v.ds == nil || v.layout == nil || v.layout.Len() < 2 {
		return d
	}
	f := v.frame(vp)
	pxX, pxY := f.PixelsPerUnit()
	text := v.textScale()
	clusterColor := clusterPalette(v.ds.Clusters)
	anchors := v.layout.Anchors()

	var prims []Primitive
	switch b := v.layout.Boundary(); b.Kind {
	case layout.BoundaryCells:
		for _, c := range b.Cells {
			pts := make([]layout.Point, len(c.Points))
			for i, p := range c.Points {
				x, y := f.ToPixel(p)
				pts[i] = layout.Point{X: x, Y: y}
			}
			prims = append(prims, Primitive{
				Shape: ShapePolygon, Class: "scatter-poi-polygon", ID: c.SubjectID,
				Points: pts, Fill: c.Color, Stroke: boundaryStroke, StrokeWidth: 1.5,
			})
		}
	case layout.BoundaryHull:
		prims = append(prims, Primitive{
			Shape: ShapePath, Class: "scatter-poi-hull",
			D: layout.SVGPath(b.Hull, f.ToPixel), Fill: "none", Stroke: boundaryStroke, StrokeWidth: 1.5,
		})
	}

	for _, a := range anchors {
		pos, _ := v.layout.LabelPosition(a.ID, v.opts.LabelDistance, pxX, pxY)
		x, y := f.ToPixel(pos)
		_, _, transform := layout.LabelTransform(a.AngleDeg)
		prims = append(prims, Primitive{
			Shape: ShapeText, Class: "scatter-poi-text", ID: a.ID,
			X: x, Y: y, Text: layout.LabelText(a.Name, v.result.UniqueCount(a.ID)),
			FontSize: subjectFontSize, FontWeight: 900, TextAnchor: "middle", Transform: transform,
			Fill: "currentColor", Hover: v.subjectHover(a),
		})
	}
	for _, a := range anchors {
		x, y := f.ToPixel(a.Point())
		prims = append(prims, Primitive{
			Shape: ShapeCircle, Class: "scatter-poi-point", ID: a.ID,
			X: x, Y: y, R: subjectRadius,
			Fill: boundaryStroke, Stroke: subjectPointEdge, StrokeWidth: 1.5,
		})
	}

	hovers := make([]*Hover, len(v.result.Common))
	for i, c := range v.result.Common {
		hovers[i] = v.termHover(c, anchors, f)
		x, y := f.ToPixel(c.Point())
		fill := "black"
		if clusterColor != nil {
			fill = clusterColor(c.Term.Name)
		}
		prims = append(prims, Primitive{
			Shape: ShapeRect, Class: "scatter-common-prediction-point", ID: c.Term.ID,
			X: x - c.Width/2, Y: y - c.Height/2, Width: c.Width, Height: c.Height,
			Fill: fill, Stroke: subjectPointEdge, StrokeWidth: 1.5, Hover: hovers[i],
		})
	}
	for i, c := range v.result.Common {
		x, y := f.ToPixel(c.Point())
		prims = append(prims, Primitive{
			Shape: ShapeText, Class: "scatter-common-prediction-text", ID: c.Term.ID,
			X: x, Y: y, Dx: termLabelDx, Dy: termLabelDy,
			Text: c.Term.Name, FontSize: text.Map(c.MaxValue), FontWeight: 700,
			Fill: "black", Stroke: "white", StrokeWidth: 3,
			Occluded: v.occluded != nil && v.occluded[i],
			Hover:    hovers[i],
		})
	}

	d.Primitives = prims
	d.Legend = sizeLegend("Prediction score", v.state.Scale, text, v.ds.Clusters)
	return d
}

func (v *ScatterView) subjectHover(a layout.Anchor) *Hover {
	h := &Hover{SubjectID: a.ID, Sentence: v.ds.Sentence(a.ID)}
	for _, u := range v.result.Unique[a.ID] {
		h.Terms = append(h.Terms, TermScore{Term: u.Term.Name, Cluster: v.ds.Clusters.Of(u.Term.Name), Score: u.Score})
	}
	return h
}

func (v *ScatterView) termHover(c projection.Common, anchors []layout.Anchor, f projection.Frame) *Hover {
	width := projection.NewScale(v.state.Scale, v.ds.Extent, connectorWidthRange)
	opacity := projection.NewScale(v.state.Scale, v.ds.Extent, connectorOpacityRange)
	h := &Hover{TermID: c.Term.ID, Term: c.Term.Name, Cluster: v.ds.Clusters.Of(c.Term.Name)}
	x1, y1 := f.ToPixel(c.Point())
	for _, a := range anchors {
		s := c.Term.ScoreFor(a.ID)
		if s <= 0 {
			continue
		}
		h.Scores = append(h.Scores, SubjectScore{
			SubjectID: a.ID, Subject: a.Name, Sentence: v.ds.Sentence(a.ID), Score: s,
		})
		x2, y2 := f.ToPixel(a.Point())
		h.Connectors = append(h.Connectors, Primitive{
			Shape: ShapeLine, Class: "connector-line", ID: c.Term.ID,
			X: x1, Y: y1, X2: x2, Y2: y2,
			Stroke: "red", StrokeWidth: width.Map(s), Opacity: opacity.Map(s),
		})
	}
	return h
}
