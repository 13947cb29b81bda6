// Package occlusion hides labels that would overlap a label drawn before them.
package occlusion

import "unicode/utf8"

// Box is an axis-aligned label bounding box in screen pixels.
type Box struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Intersects reports whether a and b overlap. Touching edges count.
func Intersects(a, b Box) bool {
	return !(a.X+a.Width < b.X ||
		b.X+b.Width < a.X ||
		a.Y+a.Height < b.Y ||
		b.Y+b.Height < a.Y)
}

// Resolve walks boxes in draw order and marks a box occluded when it
// overlaps any box already kept. Kept boxes are never revisited.
func Resolve(boxes []Box) []bool {
	occluded := make([]bool, len(boxes))
	kept := make([]Box, 0, len(boxes))
	for i, b := range boxes {
		hit := false
		for _, k := range kept {
			if Intersects(b, k) {
				hit = true
				break
			}
		}
		if hit {
			occluded[i] = true
			continue
		}
		kept = append(kept, b)
	}
	return occluded
}

// Visible counts the boxes Resolve leaves visible.
func Visible(occluded []bool) int {
	n := 0
	for _, o := range occluded {
		if !o {
			n++
		}
	}
	return n
}

// Measurer estimates the rendered size of a text label.
type Measurer interface {
	Measure(text string, fontSize float64) (width, height float64)
}

// ApproxMeasurer assumes every glyph is CharWidth em wide and one em tall.
type ApproxMeasurer struct {
	CharWidth float64
}

func (m ApproxMeasurer) Measure(text string, fontSize float64) (float64, float64) {
	cw := m.CharWidth
	if cw <= 0 {
		cw = 0.6
	}
	return float64(utf8.RuneCountInString(text)) * cw * fontSize, fontSize
}

// LabelBox returns the box of a label whose baseline starts at (x+dx, y+dy),
// the way scatter term labels are anchored.
func LabelBox(m Measurer, text string, fontSize, x, y, dx, dy float64) Box {
	w, h := m.Measure(text, fontSize)
	// roughly 80% of the em box sits above the baseline
	return Box{X: x + dx, Y: y + dy - 0.8*h, Width: w, Height: h}
}
