package projection

import (
	"fmt"
	"math"
	"strconv"
)

// Tableau20 colours clusters: the ten dark shades, then their light pairs.
var Tableau20 = []string{
	"rgb(31 119 180)",
	"rgb(255 127 14)",
	"rgb(44 160 44)",
	"rgb(214 39 40)",
	"rgb(148 103 189)",
	"rgb(140 86 75)",
	"rgb(227 119 194)",
	"rgb(127 127 127)",
	"rgb(188 189 34)",
	"rgb(23 190 207)",

	"rgb(174 199 232)",
	"rgb(255 187 120)",
	"rgb(152 223 138)",
	"rgb(255 152 150)",
	"rgb(197 176 213)",
	"rgb(196 156 148)",
	"rgb(247 182 210)",
	"rgb(199 199 199)",
	"rgb(219 219 141)",
	"rgb(158 218 229)",
}

// ClusterColor returns the Tableau20 colour for the cluster at index in
// first-seen order. Unknown clusters (index < 0) take the first colour.
func ClusterColor(index int) string {
	if index < 0 {
		index = 0
	}
	return Tableau20[index%len(Tableau20)]
}

// purd is the nine-class purple-red sequential scheme.
var purd = mustHexes("f7f4f9", "e7e1ef", "d4b9da", "c994c7", "df65b0", "e7298a", "ce1256", "980043", "67001f")

type rgb struct{ r, g, b float64 }

func mustHexes(hexes ...string) []rgb {
	out := make([]rgb, len(hexes))
	for i, h := range hexes {
		v, err := strconv.ParseUint(h, 16, 32)
		if err != nil {
			panic(fmt.Sprintf("projection: bad colour %q", h))
		}
		out[i] = rgb{r: float64(v >> 16 & 0xff), g: float64(v >> 8 & 0xff), b: float64(v & 0xff)}
	}
	return out
}

// basis evaluates a uniform cubic B-spline segment.
func basis(t1, v0, v1, v2, v3 float64) float64 {
	t2 := t1 * t1
	t3 := t2 * t1
	return ((1-3*t1+3*t2-t3)*v0 +
		(4-6*t2+3*t3)*v1 +
		(1+3*t1+3*t2-3*t3)*v2 +
		t3*v3) / 6
}

// splineChannel interpolates one channel through values with t in [0,1];
// t is clamped. The end segments extrapolate a phantom control point.
func splineChannel(values []float64, t float64) float64 {
	n := len(values) - 1
	var i int
	switch {
	case t <= 0:
		t = 0
		i = 0
	case t >= 1:
		t = 1
		i = n - 1
	default:
		i = int(math.Floor(t * float64(n)))
	}
	v1, v2 := values[i], values[i+1]
	v0 := 2*v1 - v2
	if i > 0 {
		v0 = values[i-1]
	}
	v3 := 2*v2 - v1
	if i < n-1 {
		v3 = values[i+2]
	}
	return basis((t-float64(i)/float64(n))*float64(n), v0, v1, v2, v3)
}

func channel(cs []rgb, pick func(rgb) float64) []float64 {
	out := make([]float64, len(cs))
	for i, c := range cs {
		out[i] = pick(c)
	}
	return out
}

var (
	purdR = channel(purd, func(c rgb) float64 { return c.r })
	purdG = channel(purd, func(c rgb) float64 { return c.g })
	purdB = channel(purd, func(c rgb) float64 { return c.b })
)

// PuRd maps t in [0,1] to the purple-red ramp as an "rgb(r, g, b)" string.
// NaN maps to black.
func PuRd(t float64) string {
	if math.IsNaN(t) {
		return "rgb(0, 0, 0)"
	}
	return fmt.Sprintf("rgb(%d, %d, %d)",
		byteOf(splineChannel(purdR, t)),
		byteOf(splineChannel(purdG, t)),
		byteOf(splineChannel(purdB, t)))
}

func byteOf(v float64) int {
	r := math.Floor(v + 0.5)
	return int(math.Max(0, math.Min(255, r)))
}

// ColorScale maps scores to the PuRd ramp through a log or linear scale.
type ColorScale struct {
	Scale Scale
}

// NewColorScale builds a sequential colour scale over domain.
func NewColorScale(s Scale) ColorScale {
	return ColorScale{Scale: s}
}

func (c ColorScale) Color(v float64) string {
	return PuRd(c.Scale.Normalize(v))
}
