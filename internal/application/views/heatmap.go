package views

import (
	"math"

	"github.com/AdamCoscia/KnowledgeVIS/internal/domain/prediction"
	"github.com/AdamCoscia/KnowledgeVIS/internal/domain/projection"
)

var heatMapMargins = projection.Margins{Top: 8, Right: 8, Bottom: 8, Left: 72}

// HeatMapView draws one row per term and one column per selected subject,
// with each cell coloured by score.
type HeatMapView struct {
	opts  Options
	ds    *prediction.Dataset
	state prediction.FilterState
	preds []prediction.Prediction
}

// NewHeatMapView returns an empty heat map.
func NewHeatMapView(opts Options) *HeatMapView {
	return &HeatMapView{opts: opts.withDefaults()}
}

func (v *HeatMapView) Kind() Kind { return KindHeatMap }

func (v *HeatMapView) Filter(ds *prediction.Dataset, st prediction.FilterState) {
	v.ds, v.state = ds, st
	v.preds = prediction.Filter(ds.Predictions, st.SelectedSet(), st.Sharing)
}

func (v *HeatMapView) Arrange() {
	if v.ds == nil {
		return
	}
	v.preds = prediction.Sort(v.preds, v.state.Sort, v.ds.Clusters)
}

func (v *HeatMapView) Len() int { return len(v.preds) }

func (v *HeatMapView) Reset() {
	v.ds, v.preds = nil, nil
	v.state = prediction.FilterState{}
}

// Rows returns the distinct term names in display order.
func (v *HeatMapView) Rows() []string {
	seen := make(map[string]struct{}, len(v.preds))
	rows := make([]string, 0, len(v.preds))
	for _, p := range v.preds {
		if _, ok := seen[p.Name]; ok {
			continue
		}
		seen[p.Name] = struct{}{}
		rows = append(rows, p.Name)
	}
	return rows
}

func (v *HeatMapView) Render(vp Viewport) Drawing {
	d := Drawing{Kind: KindHeatMap, Width: vp.Width, Height: vp.Height}
	if v.ds == nil || v.state.SelectedCount() == 0 {
		return d
	}
	m := heatMapMargins
	columns := v.ds.Order(v.state.Selected())
	rows := v.Rows()

	lb, rb := m.Left, vp.Width-m.Right
	bb := math.Max(vp.Height-m.Bottom, v.opts.HeatMapMinBand*float64(len(rows)))
	x := projection.NewBand(columns, [2]float64{lb, rb})

	header, top := columnHeader(v.ds, columns, x, m.Top, v.opts.Measurer)
	y := projection.NewBand(rows, [2]float64{top, bb})
	color := projection.NewColorScale(projection.NewScale(v.state.Scale, v.ds.Extent, [2]float64{0, 1}))
	clusterColor := clusterPalette(v.ds.Clusters)

	prims := make([]Primitive, 0, len(header)+2*len(rows)+len(v.preds)+2)
	prims = append(prims, Primitive{
		Shape: ShapeRect, Class: "x-axis-background",
		Width: vp.Width, Height: top, Fill: "white",
	})
	prims = append(prims, header...)

	if len(rows) > 0 {
		prims = append(prims, Primitive{
			Shape: ShapeRect, Class: "heat-background",
			X: lb, Y: top, Width: x.Bandwidth() * float64(len(columns)), Height: y.Bandwidth() * float64(len(rows)),
			Fill: "url(#diagonalHatch)",
		})
	}

	for _, r := range rows {
		fill := "currentColor"
		if clusterColor != nil {
			fill = clusterColor(r)
		}
		id, _ := v.ds.TermID(r)
		prims = append(prims, Primitive{
			Shape: ShapeText, Class: "y-axis", ID: id,
			X: lb - 3, Y: y.Pos(r) + y.Bandwidth()/2, Dy: 0.32 * axisFontSize,
			Text: r, FontSize: axisFontSize, TextAnchor: "end", Fill: fill,
		})
	}
	for _, r := range rows {
		prims = append(prims, Primitive{
			Shape: ShapeLine, Class: "heat-prediction-row-line",
			X: lb, Y: y.Pos(r), X2: rb, Y2: y.Pos(r),
			Stroke: "#ccc", StrokeWidth: 0.5,
		})
	}
	for _, p := range v.preds {
		prims = append(prims, Primitive{
			Shape: ShapeRect, Class: "heat-prediction-rect", ID: termID(v.ds, p),
			X: x.Pos(p.Parent), Y: y.Pos(p.Name), Width: x.Bandwidth(), Height: y.Bandwidth(),
			Fill:  color.Color(p.Value),
			Hover: hoverFor(v.ds, p),
		})
	}

	d.Primitives = prims
	d.Height = math.Max(vp.Height, bb+m.Bottom)
	d.Legend = v.legend(color)
	return d
}

func (v *HeatMapView) legend(color projection.ColorScale) *Legend {
	l := &Legend{Title: "Prediction score", Scale: v.state.Scale, Clusters: swatches(v.ds.Clusters)}
	for _, t := range color.Scale.Ticks() {
		l.Ticks = append(l.Ticks, Tick{Value: t, Label: tickLabel(t), Color: color.Color(t)})
	}
	return l
}
