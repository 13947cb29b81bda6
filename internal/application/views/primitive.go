package views

import (
	"github.com/AdamCoscia/KnowledgeVIS/internal/domain/layout"
	"github.com/AdamCoscia/KnowledgeVIS/internal/domain/prediction"
)

// Shape is the kind of drawable primitive.
type Shape string

const (
	ShapeRect    Shape = "rect"
	ShapeText    Shape = "text"
	ShapeLine    Shape = "line"
	ShapeCircle  Shape = "circle"
	ShapePolygon Shape = "polygon"
	ShapePath    Shape = "path"
)

// Primitive is one drawable element in viewport pixels. Fields that do not
// apply to Shape are left zero. An Opacity of zero means fully opaque.
type Primitive struct {
	Shape Shape  `json:"shape"`
	Class string `json:"class"`
	ID    string `json:"id,omitempty"`

	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	X2     float64 `json:"x2,omitempty"`
	Y2     float64 `json:"y2,omitempty"`
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`
	R      float64 `json:"r,omitempty"`

	Points []layout.Point `json:"points,omitempty"`
	D      string         `json:"d,omitempty"`

	Text       string  `json:"text,omitempty"`
	FontSize   float64 `json:"fontSize,omitempty"`
	FontWeight int     `json:"fontWeight,omitempty"`
	TextAnchor string  `json:"textAnchor,omitempty"`
	Dx         float64 `json:"dx,omitempty"`
	Dy         float64 `json:"dy,omitempty"`
	Transform  string  `json:"transform,omitempty"`

	Fill        string  `json:"fill,omitempty"`
	Stroke      string  `json:"stroke,omitempty"`
	StrokeWidth float64 `json:"strokeWidth,omitempty"`
	Opacity     float64 `json:"opacity,omitempty"`

	Occluded bool   `json:"occluded,omitempty"`
	Hover    *Hover `json:"hover,omitempty"`
}

// Hover is the tooltip and highlight metadata attached to an interactive
// primitive.
type Hover struct {
	TermID     string         `json:"termId,omitempty"`
	Term       string         `json:"term,omitempty"`
	Cluster    string         `json:"cluster,omitempty"`
	SubjectID  string         `json:"subjectId,omitempty"`
	Sentence   string         `json:"sentence,omitempty"`
	Scores     []SubjectScore `json:"scores,omitempty"`
	Terms      []TermScore    `json:"terms,omitempty"`
	Connectors []Primitive    `json:"connectors,omitempty"`
}

// SubjectScore is a term's score under one subject, with the sentence the
// subject completes.
type SubjectScore struct {
	SubjectID string  `json:"subjectId"`
	Subject   string  `json:"subject"`
	Sentence  string  `json:"sentence"`
	Score     float64 `json:"score"`
}

// TermScore lists a term in a subject tooltip.
type TermScore struct {
	Term    string  `json:"term"`
	Cluster string  `json:"cluster"`
	Score   float64 `json:"score"`
}

// Legend describes the score legend and, with more than one cluster, the
// cluster swatches.
type Legend struct {
	Title    string               `json:"title"`
	Scale    prediction.ScaleMode `json:"scale"`
	Ticks    []Tick               `json:"ticks"`
	Clusters []Swatch             `json:"clusters,omitempty"`
}

// Tick is one legend stop. Color is set for colour legends, Size for font
// and marker legends.
type Tick struct {
	Value float64 `json:"value"`
	Label string  `json:"label"`
	Color string  `json:"color,omitempty"`
	Size  float64 `json:"size,omitempty"`
}

// Swatch is a cluster legend entry.
type Swatch struct {
	Cluster string `json:"cluster"`
	Color   string `json:"color"`
}

// Drawing is everything one view draws. Height can exceed the viewport when
// rows overflow it.
type Drawing struct {
	Kind       Kind        `json:"kind"`
	Width      float64     `json:"width"`
	Height     float64     `json:"height"`
	Primitives []Primitive `json:"primitives"`
	Legend     *Legend     `json:"legend,omitempty"`
}

// Count returns the number of primitives with the given class.
func (d Drawing) Count(class string) int {
	n := 0
	for _, p := range d.Primitives {
		if p.Class == class {
			n++
		}
	}
	return n
}

// ByClass returns the primitives with the given class in draw order.
func (d Drawing) ByClass(class string) []Primitive {
	var out []Primitive
	for _, p := range d.Primitives {
		if p.Class == class {
			out = append(out, p)
		}
	}
	return out
}
