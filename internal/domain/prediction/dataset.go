package prediction

import (
	"math"
	"strings"

	"github.com/AdamCoscia/KnowledgeVIS/pkg/errors"
)

// SubjectPlaceholder is replaced by a subject's name to form its sentence.
const SubjectPlaceholder = "[subject]"

// Dataset is one query result in the three view shapes. It is shared by
// reference between views and never mutated after NewDataset returns;
// callers that reorder slices must copy them first.
type Dataset struct {
	Model  string
	TopK   int
	Groups []SubjectGroup

	// Predictions is the flat heat map list.
	Predictions []Prediction
	// Records is the set view list, one entry per subject.
	Records []SubjectRecords
	// Terms is the scatter list, one entry per distinct term name.
	Terms []*Term

	Clusters Clusters
	// Extent is the [min, max] prediction score across the dataset.
	Extent [2]float64

	subjects     []Subject
	subjectIndex map[string]int
	templates    map[string]string
	termIDs      map[string]string
	termNames    map[string]string
}

// NewDataset indexes the parts of a query result. Term scores keyed by an
// unknown subject are dropped so that every remaining key is a known subject.
func NewDataset(model string, topK int, groups []SubjectGroup, preds []Prediction,
	records []SubjectRecords, terms []*Term, clusters Clusters) (*Dataset, error) {

	ds := &Dataset{
		Model:        model,
		TopK:         topK,
		Groups:       groups,
		Predictions:  preds,
		Records:      records,
		Clusters:     clusters,
		subjectIndex: make(map[string]int),
		templates:    make(map[string]string),
		termIDs:      make(map[string]string),
		termNames:    make(map[string]string),
	}

	for _, g := range groups {
		for _, s := range g.Subjects {
			if _, dup := ds.subjectIndex[s.ID]; dup {
				return nil, errors.Newf(errors.ErrCodeValidation, "duplicate subject id %q", s.ID)
			}
			ds.subjectIndex[s.ID] = len(ds.subjects)
			ds.subjects = append(ds.subjects, s)
			ds.templates[s.ID] = g.Template
		}
	}

	ds.Terms = make([]*Term, 0, len(terms))
	for _, t := range terms {
		clean := &Term{ID: t.ID, Name: t.Name, Cluster: t.Cluster, Scores: make(map[string]float64, len(t.Scores))}
		for id, v := range t.Scores {
			if _, ok := ds.subjectIndex[id]; !ok || v <= 0 || math.IsNaN(v) {
				continue
			}
			clean.Scores[id] = v
			if v > clean.AggregatedValue {
				clean.AggregatedValue = v
			}
		}
		ds.Terms = append(ds.Terms, clean)
		if t.ID != "" {
			ds.termIDs[t.Name] = t.ID
			ds.termNames[t.ID] = t.Name
		}
	}
	for _, p := range preds {
		if p.ID != "" {
			ds.termIDs[p.Name] = p.ID
			ds.termNames[p.ID] = p.Name
		}
	}

	// zero and missing scores carry no association and stay out of the extent
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, p := range preds {
		if p.Value > 0 {
			lo = math.Min(lo, p.Value)
			hi = math.Max(hi, p.Value)
		}
	}
	if lo <= hi {
		ds.Extent = [2]float64{lo, hi}
	}
	return ds, nil
}

// Subjects returns every subject in group order.
func (d *Dataset) Subjects() []Subject { return append([]Subject(nil), d.subjects...) }

// Subject looks up a subject by id.
func (d *Dataset) Subject(id string) (Subject, bool) {
	i, ok := d.subjectIndex[id]
	if !ok {
		return Subject{}, false
	}
	return d.subjects[i], true
}

// HasSubject reports whether id names a subject of this dataset.
func (d *Dataset) HasSubject(id string) bool {
	_, ok := d.subjectIndex[id]
	return ok
}

// Template returns the prompt template subject id was substituted into.
func (d *Dataset) Template(id string) string { return d.templates[id] }

// Sentence is the subject's template with the placeholder filled in.
func (d *Dataset) Sentence(id string) string {
	s, ok := d.Subject(id)
	if !ok {
		return ""
	}
	return Sentence(d.templates[id], s.Name)
}

// TermID returns the prediction id assigned to term name.
func (d *Dataset) TermID(name string) (string, bool) {
	id, ok := d.termIDs[name]
	return id, ok
}

// TermName returns the term name for a prediction id.
func (d *Dataset) TermName(id string) (string, bool) {
	n, ok := d.termNames[id]
	return n, ok
}

// Order returns ids rearranged into group order, dropping unknown ids and
// duplicates.
func (d *Dataset) Order(ids []string) []string {
	want := NewSubjectSet(ids...)
	out := make([]string, 0, len(ids))
	for _, s := range d.subjects {
		if want.Has(s.ID) {
			out = append(out, s.ID)
		}
	}
	return out
}

// InitialSelection selects whole groups in order until at least min subjects
// are selected.
func (d *Dataset) InitialSelection(min int) []string {
	var out []string
	for _, g := range d.Groups {
		if len(out) >= min {
			break
		}
		for _, s := range g.Subjects {
			out = append(out, s.ID)
		}
	}
	return out
}

// Sentence substitutes name for the first placeholder in template.
func Sentence(template, name string) string {
	return strings.Replace(template, SubjectPlaceholder, name, 1)
}
