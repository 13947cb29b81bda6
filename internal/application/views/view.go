package views

import (
	"fmt"
	"strings"

	"github.com/AdamCoscia/KnowledgeVIS/internal/domain/occlusion"
	"github.com/AdamCoscia/KnowledgeVIS/internal/domain/prediction"
	"github.com/AdamCoscia/KnowledgeVIS/internal/domain/projection"
)

// View is one coordinated view. Filter picks what the view shows, Arrange
// orders it (heat map, set view) or projects it (scatter), and Render turns
// the result into primitives for a viewport. Views keep references into the
// dataset and never modify it.
type View interface {
	Kind() Kind
	Filter(ds *prediction.Dataset, st prediction.FilterState)
	Arrange()
	Render(vp Viewport) Drawing
	// Len is the number of terms the last Arrange produced.
	Len() int
	Reset()
}

// Viewport is the pixel size a view renders into.
type Viewport struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Valid reports whether both sides are positive.
func (v Viewport) Valid() bool { return v.Width > 0 && v.Height > 0 }

// Options tune rendering geometry.
type Options struct {
	Measurer       occlusion.Measurer
	LabelDistance  float64
	HeatMapMinBand float64
	SetViewMinBand float64
	ScatterMargin  float64
}

// DefaultOptions returns the stock geometry.
func DefaultOptions() Options {
	return Options{
		Measurer:       occlusion.ApproxMeasurer{CharWidth: 0.6},
		LabelDistance:  15,
		HeatMapMinBand: 8,
		SetViewMinBand: 16,
		ScatterMargin:  36,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.Measurer == nil {
		o.Measurer = def.Measurer
	}
	if o.LabelDistance <= 0 {
		o.LabelDistance = def.LabelDistance
	}
	if o.HeatMapMinBand <= 0 {
		o.HeatMapMinBand = def.HeatMapMinBand
	}
	if o.SetViewMinBand <= 0 {
		o.SetViewMinBand = def.SetViewMinBand
	}
	if o.ScatterMargin <= 0 {
		o.ScatterMargin = def.ScatterMargin
	}
	return o
}

const (
	axisFontSize    = 10
	axisLineSpacing = 12
)

// wrap breaks text into lines no wider than maxWidth. A single word wider
// than maxWidth gets a line of its own.
func wrap(m occlusion.Measurer, text string, fontSize, maxWidth float64) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	var lines []string
	line := words[0]
	for _, w := range words[1:] {
		candidate := line + " " + w
		if width, _ := m.Measure(candidate, fontSize); width > maxWidth {
			lines = append(lines, line)
			line = w
			continue
		}
		line = candidate
	}
	return append(lines, line)
}

// columnHeader draws the sentence templates above groups of more than one
// visible subject and the subject names above each column. It returns the
// primitives and the y at which rows start.
func columnHeader(ds *prediction.Dataset, columns []string, x projection.Band, top float64, m occlusion.Measurer) ([]Primitive, float64) {
	var out []Primitive
	visible := prediction.NewSubjectSet(columns...)
	bw := x.Bandwidth()
	left := x.Range[0]

	groupLines := 0
	soFar := 0
	for _, g := range ds.Groups {
		n := 0
		for _, s := range g.Subjects {
			if visible.Has(s.ID) {
				n++
			}
		}
		if n >= 1 && len(g.Subjects) > 1 {
			cx := left + float64(soFar)*bw + float64(n)*bw/2
			lines := wrap(m, g.Template, axisFontSize, float64(n)*bw)
			for i, line := range lines {
				out = append(out, Primitive{
					Shape: ShapeText, Class: "x-axis-group",
					X: cx, Y: top + 3 + float64(i)*axisLineSpacing, Dy: 0.71 * axisFontSize,
					Text: line, FontSize: axisFontSize, TextAnchor: "middle", Fill: "currentColor",
				})
			}
			if len(lines) > groupLines {
				groupLines = len(lines)
			}
		}
		soFar += n
	}

	subjectTop := top
	if groupLines > 0 {
		subjectTop = top + float64(groupLines)*axisLineSpacing + top
	}
	subjectLines := 1
	for _, id := range columns {
		s, _ := ds.Subject(id)
		lines := wrap(m, s.Name, axisFontSize, bw)
		for i, line := range lines {
			out = append(out, Primitive{
				Shape: ShapeText, Class: "x-axis", ID: id,
				X: x.Pos(id) + bw/2, Y: subjectTop + 3 + float64(i)*axisLineSpacing, Dy: 0.71 * axisFontSize,
				Text: line, FontSize: axisFontSize, TextAnchor: "middle", Fill: "currentColor",
			})
		}
		if len(lines) > subjectLines {
			subjectLines = len(lines)
		}
	}
	return out, subjectTop + float64(subjectLines)*axisLineSpacing + top
}

// clusterPalette colours terms by cluster when there is more than one
// cluster and returns nil otherwise.
func clusterPalette(c prediction.Clusters) func(term string) string {
	if c.Len() <= 1 {
		return nil
	}
	return func(term string) string {
		return projection.ClusterColor(c.Index(c.Of(term)))
	}
}

func swatches(c prediction.Clusters) []Swatch {
	if c.Len() <= 1 {
		return nil
	}
	out := make([]Swatch, 0, c.Len())
	for i, name := range c.Order() {
		out = append(out, Swatch{Cluster: name, Color: projection.ClusterColor(i)})
	}
	return out
}

func tickLabel(v float64) string {
	return fmt.Sprintf("%.3g", v)
}

// sizeLegend lists the legend stops of a size scale.
func sizeLegend(title string, mode prediction.ScaleMode, s projection.Scale, c prediction.Clusters) *Legend {
	l := &Legend{Title: title, Scale: mode, Clusters: swatches(c)}
	for _, v := range s.Ticks() {
		l.Ticks = append(l.Ticks, Tick{Value: v, Label: tickLabel(v), Size: s.Map(v)})
	}
	return l
}

// hoverFor builds the tooltip of one (subject, term) record.
func hoverFor(ds *prediction.Dataset, p prediction.Prediction) *Hover {
	s, _ := ds.Subject(p.Parent)
	return &Hover{
		TermID:    p.ID,
		Term:      p.Name,
		Cluster:   ds.Clusters.Of(p.Name),
		SubjectID: p.Parent,
		Sentence:  ds.Sentence(p.Parent),
		Scores: []SubjectScore{{
			SubjectID: p.Parent, Subject: s.Name, Sentence: ds.Sentence(p.Parent), Score: p.Value,
		}},
	}
}

func termID(ds *prediction.Dataset, p prediction.Prediction) string {
	if p.ID != "" {
		return p.ID
	}
	id, _ := ds.TermID(p.Name)
	return id
}
