package prediction

import "sort"

// Ranked is anything the sorter can order.
type Ranked interface {
	TermName() string
	Score() float64
}

// ClusterAssignment maps one term name to its cluster label.
type ClusterAssignment struct {
	Term    string `json:"term"`
	Cluster string `json:"cluster"`
}

// Clusters records each term's cluster and the first-seen order of cluster
// labels, which is the order used by the grouped sort passes and by colour
// assignment.
type Clusters struct {
	order  []string
	index  map[string]int
	byTerm map[string]string
}

// NewClusters builds a Clusters from assignments in source order.
func NewClusters(assignments []ClusterAssignment) Clusters {
	c := Clusters{
		index:  make(map[string]int),
		byTerm: make(map[string]string, len(assignments)),
	}
	for _, a := range assignments {
		c.byTerm[a.Term] = a.Cluster
		if _, ok := c.index[a.Cluster]; !ok {
			c.index[a.Cluster] = len(c.order)
			c.order = append(c.order, a.Cluster)
		}
	}
	return c
}

// Of returns the cluster of term, or "" when unknown.
func (c Clusters) Of(term string) string { return c.byTerm[term] }

// Index returns the position of cluster in first-seen order, or -1.
func (c Clusters) Index(cluster string) int {
	if i, ok := c.index[cluster]; ok {
		return i
	}
	return -1
}

// Order returns cluster labels in first-seen order.
func (c Clusters) Order() []string { return append([]string(nil), c.order...) }

// Len is the number of distinct clusters.
func (c Clusters) Len() int { return len(c.order) }

// Assignments returns the term-to-cluster pairs, ordered by cluster then term.
func (c Clusters) Assignments() []ClusterAssignment {
	out := make([]ClusterAssignment, 0, len(c.byTerm))
	for term, cl := range c.byTerm {
		out = append(out, ClusterAssignment{Term: term, Cluster: cl})
	}
	sort.Slice(out, func(i, j int) bool {
		ci, cj := c.Index(out[i].Cluster), c.Index(out[j].Cluster)
		if ci != cj {
			return ci < cj
		}
		return out[i].Term < out[j].Term
	})
	return out
}

// Sort reorders items in place and returns them. The primary pass orders by
// name ascending or score descending; grouped modes then run a second stable
// pass by cluster index so each cluster keeps its primary order. Terms with
// an unknown cluster sort first.
func Sort[T Ranked](items []T, mode SortMode, clusters Clusters) []T {
	switch mode {
	case SortName, SortGroupName:
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].TermName() < items[j].TermName()
		})
	case SortRank, SortGroupRank:
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].Score() > items[j].Score()
		})
	}
	if mode.Grouped() {
		sort.SliceStable(items, func(i, j int) bool {
			return clusters.Index(clusters.Of(items[i].TermName())) <
				clusters.Index(clusters.Of(items[j].TermName()))
		})
	}
	return items
}

// SortSubjectRecords sorts each subject's children by copy.
func SortSubjectRecords(records []SubjectRecords, mode SortMode, clusters Clusters) []SubjectRecords {
	out := make([]SubjectRecords, len(records))
	for i, r := range records {
		children := append([]Prediction(nil), r.Children...)
		r.Children = Sort(children, mode, clusters)
		out[i] = r
	}
	return out
}
