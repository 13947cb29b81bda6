package views

import (
	"math"
	"strconv"

	"github.com/AdamCoscia/KnowledgeVIS/internal/domain/prediction"
	"github.com/AdamCoscia/KnowledgeVIS/internal/domain/projection"
)

var (
	setViewMargins   = projection.UniformMargins(8)
	setViewFontRange = [2]float64{8, 24}
)

// SetView draws one column per selected subject listing that subject's
// predicted terms, sized by score.
type SetView struct {
	opts    Options
	ds      *prediction.Dataset
	state   prediction.FilterState
	records []prediction.SubjectRecords
}

// NewSetView returns an empty set view.
func NewSetView(opts Options) *SetView {
	return &SetView{opts: opts.withDefaults()}
}

func (v *SetView) Kind() Kind { return KindSetView }

func (v *SetView) Filter(ds *prediction.Dataset, st prediction.FilterState) {
	v.ds, v.state = ds, st
	v.records = prediction.FilterSubjectRecords(ds.Records, st.SelectedSet(), st.Sharing)
}

func (v *SetView) Arrange() {
	if v.ds == nil {
		return
	}
	v.records = prediction.SortSubjectRecords(v.records, v.state.Sort, v.ds.Clusters)
}

func (v *SetView) Len() int {
	n := 0
	for _, r := range v.records {
		n += len(r.Children)
	}
	return n
}

func (v *SetView) Reset() {
	v.ds, v.records = nil, nil
	v.state = prediction.FilterState{}
}

// Records returns the filtered and sorted columns.
func (v *SetView) Records() []prediction.SubjectRecords { return v.records }

type setCell struct {
	x, y float64
}

func (v *SetView) Render(vp Viewport) Drawing {
	d := Drawing{Kind: KindSetView, Width: vp.Width, Height: vp.Height}
	if v.ds == nil || v.state.SelectedCount() == 0 {
		return d
	}
	m := setViewMargins
	columns := v.ds.Order(v.state.Selected())

	longest := 0
	for _, r := range v.records {
		if len(r.Children) > longest {
			longest = len(r.Children)
		}
	}
	// row 0 stays empty so the first term clears the header
	rows := make([]string, longest+1)
	for i := range rows {
		rows[i] = strconv.Itoa(i)
	}

	lb, rb, bb := m.Left, vp.Width-m.Right, vp.Height-m.Bottom
	x := projection.NewBand(columns, [2]float64{lb, rb})
	header, top := columnHeader(v.ds, columns, x, m.Top, v.opts.Measurer)
	y := projection.NewBand(rows, [2]float64{top, math.Max(bb, v.opts.SetViewMinBand*float64(len(rows)))})

	font := projection.NewScale(v.state.Scale, v.ds.Extent, setViewFontRange)
	clusterColor := clusterPalette(v.ds.Clusters)
	bw := x.Bandwidth()

	cells := make(map[string][]setCell)
	for _, id := range columns {
		for _, r := range v.records {
			if r.ID != id {
				continue
			}
			for i, c := range r.Children {
				cells[c.Name] = append(cells[c.Name], setCell{x: x.Pos(r.ID) + bw/2, y: y.Pos(strconv.Itoa(i + 1))})
			}
		}
	}

	prims := []Primitive{{
		Shape: ShapeRect, Class: "x-axis-background",
		Width: vp.Width, Height: top, Fill: "white",
	}}
	prims = append(prims, header...)

	for _, r := range v.records {
		cx := x.Pos(r.ID) + bw/2
		for i, c := range r.Children {
			fill := "black"
			if clusterColor != nil {
				fill = clusterColor(c.Name)
			}
			hover := hoverFor(v.ds, c)
			hover.Connectors = setConnectors(cells[c.Name], termID(v.ds, c))
			prims = append(prims, Primitive{
				Shape: ShapeText, Class: "set-prediction-text", ID: termID(v.ds, c),
				X: cx, Y: y.Pos(strconv.Itoa(i + 1)),
				Text: c.Name, FontSize: font.Map(c.Value), TextAnchor: "middle",
				Fill: fill, Stroke: "white", StrokeWidth: 3,
				Hover: hover,
			})
		}
	}

	d.Primitives = prims
	d.Height = math.Max(vp.Height, y.Range[1]+m.Bottom)
	d.Legend = sizeLegend("Prediction score", v.state.Scale, font, v.ds.Clusters)
	return d
}

// setConnectors links consecutive occurrences of one term across columns.
func setConnectors(cells []setCell, id string) []Primitive {
	if len(cells) < 2 {
		return nil
	}
	out := make([]Primitive, 0, len(cells)-1)
	for i := 1; i < len(cells); i++ {
		a, b := cells[i-1], cells[i]
		out = append(out, Primitive{
			Shape: ShapeLine, Class: "set-connector-line", ID: id,
			X: a.x, Y: a.y, X2: b.x, Y2: b.y,
			Stroke: "#2b2b2b", StrokeWidth: 1,
		})
	}
	return out
}
