// Package prediction holds the immutable prediction dataset and the two leaf
// operations applied to it before any view draws: filtering by selected
// subjects and sharing mode, and ordering by one of four sort policies.
package prediction

import (
	"sort"
	"strings"

	"github.com/AdamCoscia/KnowledgeVIS/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Display modes
// ─────────────────────────────────────────────────────────────────────────────

// SharingMode restricts displayed terms by how many selected subjects share them.
type SharingMode string

const (
	SharingAll    SharingMode = "all"
	SharingShared SharingMode = "shared"
	SharingUnique SharingMode = "unique"
)

// ParseSharingMode accepts "all", "shared", "unique" and the empty string (all).
func ParseSharingMode(s string) (SharingMode, error) {
	switch SharingMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", SharingAll:
		return SharingAll, nil
	case SharingShared:
		return SharingShared, nil
	case SharingUnique:
		return SharingUnique, nil
	}
	return "", errors.Newf(errors.ErrCodeInvalidSharingMode, "unknown sharing mode %q", s)
}

// SortMode orders predictions in the heat map and set view.
type SortMode string

const (
	SortName      SortMode = "name"
	SortRank      SortMode = "rank"
	SortGroupName SortMode = "group-name"
	SortGroupRank SortMode = "group-rank"
)

// ParseSortMode accepts a sort mode name, ignoring case and surrounding space.
func ParseSortMode(s string) (SortMode, error) {
	switch m := SortMode(strings.ToLower(strings.TrimSpace(s))); m {
	case SortName, SortRank, SortGroupName, SortGroupRank:
		return m, nil
	}
	return "", errors.Newf(errors.ErrCodeInvalidSortMode, "unknown sort mode %q", s)
}

// Grouped reports whether the mode applies the cluster-grouping pass.
func (m SortMode) Grouped() bool {
	return m == SortGroupName || m == SortGroupRank
}

// ScaleMode selects the score-to-visual mapping used for size, colour and font.
type ScaleMode string

const (
	ScaleLog    ScaleMode = "log"
	ScaleLinear ScaleMode = "linear"
)

// ParseScaleMode accepts "log", "linear" and the short form "lin".
func ParseScaleMode(s string) (ScaleMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "log":
		return ScaleLog, nil
	case "linear", "lin":
		return ScaleLinear, nil
	}
	return "", errors.Newf(errors.ErrCodeInvalidScaleMode, "unknown scale mode %q", s)
}

// ─────────────────────────────────────────────────────────────────────────────
// Records
// ─────────────────────────────────────────────────────────────────────────────

// Subject is one fill-in candidate the user compares. Positions live in the
// layout package; here a subject is only identity.
type Subject struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SubjectGroup is one prompt template and the subjects substituted into it.
type SubjectGroup struct {
	Template string    `json:"template"`
	Subjects []Subject `json:"subjects"`
}

// Prediction is one (subject, term, score) triple. Heat map rows and set view
// children are both Predictions.
type Prediction struct {
	Parent string  `json:"parent"`
	Name   string  `json:"name"`
	Value  float64 `json:"value"`
	ID     string  `json:"id"`
}

func (p Prediction) TermName() string { return p.Name }
func (p Prediction) Owner() string    { return p.Parent }
func (p Prediction) Score() float64   { return p.Value }

// SubjectRecords is the set view shape: a subject and its own predictions.
type SubjectRecords struct {
	ID       string       `json:"id"`
	Name     string       `json:"name"`
	Template string       `json:"template"`
	Children []Prediction `json:"children"`
}

// Term is a predicted token with a score per subject. Scores only holds
// subjects with a non-zero association; a missing key means zero.
type Term struct {
	ID      string             `json:"id"`
	Name    string             `json:"name"`
	Cluster string             `json:"cluster"`
	Scores  map[string]float64 `json:"scores"`
	// AggregatedValue is the maximum score across all subjects.
	AggregatedValue float64 `json:"aggregatedValue"`
}

func (t *Term) TermName() string { return t.Name }
func (t *Term) Score() float64   { return t.AggregatedValue }

// ScoreFor returns the term's score for subjectID, zero when absent.
func (t *Term) ScoreFor(subjectID string) float64 {
	return t.Scores[subjectID]
}

// ─────────────────────────────────────────────────────────────────────────────
// FilterState
// ─────────────────────────────────────────────────────────────────────────────

// FilterState is the immutable selection and display state read by every
// pipeline stage. The With* methods return modified copies.
type FilterState struct {
	selected []string
	Sharing  SharingMode
	Sort     SortMode
	Scale    ScaleMode
}

// NewFilterState returns a state selecting ids in the given order.
func NewFilterState(selected []string, sharing SharingMode, sortMode SortMode, scale ScaleMode) FilterState {
	return FilterState{
		selected: dedupe(selected),
		Sharing:  sharing,
		Sort:     sortMode,
		Scale:    scale,
	}
}

// Selected returns a copy of the selected subject ids.
func (f FilterState) Selected() []string {
	return append([]string(nil), f.selected...)
}

// SelectedCount is the number of selected subjects.
func (f FilterState) SelectedCount() int { return len(f.selected) }

// SelectedSet returns the selection as a set.
func (f FilterState) SelectedSet() SubjectSet {
	return NewSubjectSet(f.selected...)
}

// IsSelected reports whether id is selected.
func (f FilterState) IsSelected(id string) bool {
	for _, s := range f.selected {
		if s == id {
			return true
		}
	}
	return false
}

// WithSelected returns a copy of f selecting ids.
func (f FilterState) WithSelected(ids []string) FilterState {
	f.selected = dedupe(ids)
	return f
}

// WithSharing returns a copy of f with sharing mode m.
func (f FilterState) WithSharing(m SharingMode) FilterState {
	f.Sharing = m
	return f
}

// WithSort returns a copy of f with sort mode m.
func (f FilterState) WithSort(m SortMode) FilterState {
	f.Sort = m
	return f
}

// WithScale returns a copy of f with scale mode m.
func (f FilterState) WithScale(m ScaleMode) FilterState {
	f.Scale = m
	return f
}

// Equal compares selection as a set plus the three modes.
func (f FilterState) Equal(o FilterState) bool {
	if f.Sharing != o.Sharing || f.Sort != o.Sort || f.Scale != o.Scale {
		return false
	}
	if len(f.selected) != len(o.selected) {
		return false
	}
	a, b := f.Selected(), o.Selected()
	sort.Strings(a)
	sort.Strings(b)
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// SubjectSet is a set of subject ids.
type SubjectSet map[string]struct{}

// NewSubjectSet builds a set of subject ids.
func NewSubjectSet(ids ...string) SubjectSet {
	s := make(SubjectSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Has reports whether id is in the set.
func (s SubjectSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}
