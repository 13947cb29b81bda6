// Package projection maps prediction scores to visual quantities and places
// scatter terms between the subject anchors that predicted them.
package projection

import (
	"math"

	"github.com/AdamCoscia/KnowledgeVIS/internal/domain/prediction"
)

// Scale is a continuous, unclamped mapping from a two-value domain to a
// two-value range, linear or logarithmic in the domain.
type Scale struct {
	Domain [2]float64
	Range  [2]float64
	Log    bool
}

// NewScale builds a log or linear scale for mode.
func NewScale(mode prediction.ScaleMode, domain, rng [2]float64) Scale {
	return Scale{Domain: domain, Range: rng, Log: mode == prediction.ScaleLog}
}

// Linear builds a linear scale.
func Linear(domain, rng [2]float64) Scale {
	return Scale{Domain: domain, Range: rng}
}

func (s Scale) transform(v float64) float64 {
	if s.Log {
		return math.Log(v)
	}
	return v
}

func (s Scale) untransform(v float64) float64 {
	if s.Log {
		return math.Exp(v)
	}
	return v
}

// Normalize maps v to [0,1] over the domain. A collapsed or non-finite
// domain maps every value to one half. Values the transform cannot represent,
// such as zero on a log scale, map to the nearest end.
func (s Scale) Normalize(v float64) float64 {
	d0, d1 := s.transform(s.Domain[0]), s.transform(s.Domain[1])
	span := d1 - d0
	if span == 0 || math.IsNaN(span) || math.IsInf(span, 0) {
		return 0.5
	}
	t := (s.transform(v) - d0) / span
	switch {
	case math.IsNaN(t):
		return 0
	case math.IsInf(t, 1):
		return 1
	case math.IsInf(t, -1):
		return 0
	}
	return t
}

// Map applies the scale.
func (s Scale) Map(v float64) float64 {
	t := s.Normalize(v)
	return s.Range[0] + t*(s.Range[1]-s.Range[0])
}

// Invert maps a range value back to the domain.
func (s Scale) Invert(r float64) float64 {
	span := s.Range[1] - s.Range[0]
	t := 0.5
	if span != 0 {
		t = (r - s.Range[0]) / span
	}
	d0, d1 := s.transform(s.Domain[0]), s.transform(s.Domain[1])
	return s.untransform(d0 + t*(d1-d0))
}

// tickSteps is the number of equal intervals between legend stops.
const tickSteps = 6

// Ticks returns the seven legend stops between the domain bounds: equal steps
// in log10 space for log scales, or in value space otherwise.
func (s Scale) Ticks() []float64 {
	lb, ub := s.Domain[0], s.Domain[1]
	a, b := lb, ub
	if s.Log {
		if lb <= 0 || ub <= 0 {
			return nil
		}
		a, b = math.Log10(lb), math.Log10(ub)
	}
	if a == b {
		return []float64{lb}
	}
	step := (b - a) / tickSteps
	out := make([]float64, 0, tickSteps+1)
	for k := 0; k <= tickSteps; k++ {
		v := a + float64(k)*step
		if s.Log {
			v = math.Pow(10, v)
		}
		out = append(out, v)
	}
	return out
}

// Band is an ordinal scale dividing a pixel range into equal bands, with no
// padding.
type Band struct {
	Domain []string
	Range  [2]float64
	index  map[string]int
}

func NewBand(domain []string, rng [2]float64) Band {
	idx := make(map[string]int, len(domain))
	for i, d := range domain {
		if _, dup := idx[d]; !dup {
			idx[d] = i
		}
	}
	return Band{Domain: domain, Range: rng, index: idx}
}

// Bandwidth is the size of one band.
func (b Band) Bandwidth() float64 {
	if len(b.Domain) == 0 {
		return 0
	}
	return (b.Range[1] - b.Range[0]) / float64(len(b.Domain))
}

// Pos returns the start of key's band, or NaN for an unknown key.
func (b Band) Pos(key string) float64 {
	i, ok := b.index[key]
	if !ok {
		return math.NaN()
	}
	return b.Range[0] + float64(i)*b.Bandwidth()
}

// Has reports whether key is in the domain.
func (b Band) Has(key string) bool {
	_, ok := b.index[key]
	return ok
}
