package views

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/AdamCoscia/KnowledgeVIS/internal/domain/prediction"
)

// fixture: two groups, three subjects.
//
//	s1 cat: pet .5, animal .3, friend .1
//	s2 dog: pet .4, animal .2, guard .05
//	s3 fox: meat .6, animal .1
func fixture(t *testing.T) *prediction.Dataset {
	t.Helper()
	return fixtureWith(t)
}

type rawPrediction struct {
	parent, name string
	value        float64
}

// fixtureWith is fixture plus extra predictions. Extra terms get no id and
// no cluster.
func fixtureWith(t *testing.T, extra ...rawPrediction) *prediction.Dataset {
	t.Helper()
	groups := []prediction.SubjectGroup{
		{Template: "A [subject] is a _.", Subjects: []prediction.Subject{{ID: "s1", Name: "cat"}, {ID: "s2", Name: "dog"}}},
		{Template: "The [subject] eats _.", Subjects: []prediction.Subject{{ID: "s3", Name: "fox"}}},
	}
	ids := map[string]string{"pet": "p1", "animal": "p2", "friend": "p3", "guard": "p4", "meat": "p5"}
	raw := append([]rawPrediction{
		{"s1", "pet", 0.5}, {"s1", "animal", 0.3}, {"s1", "friend", 0.1},
		{"s2", "pet", 0.4}, {"s2", "animal", 0.2}, {"s2", "guard", 0.05},
		{"s3", "meat", 0.6}, {"s3", "animal", 0.1},
	}, extra...)

	var preds []prediction.Prediction
	children := map[string][]prediction.Prediction{}
	scores := map[string]map[string]float64{}
	var order []string
	for _, r := range raw {
		p := prediction.Prediction{Parent: r.parent, Name: r.name, Value: r.value, ID: ids[r.name]}
		preds = append(preds, p)
		children[r.parent] = append(children[r.parent], p)
		if scores[r.name] == nil {
			scores[r.name] = map[string]float64{}
			order = append(order, r.name)
		}
		scores[r.name][r.parent] = r.value
	}

	var records []prediction.SubjectRecords
	for _, g := range groups {
		for _, s := range g.Subjects {
			records = append(records, prediction.SubjectRecords{ID: s.ID, Name: s.Name, Template: g.Template, Children: children[s.ID]})
		}
	}
	var terms []*prediction.Term
	for _, name := range order {
		terms = append(terms, &prediction.Term{ID: ids[name], Name: name, Scores: scores[name]})
	}
	clusters := prediction.NewClusters([]prediction.ClusterAssignment{
		{Term: "pet", Cluster: "c1"}, {Term: "animal", Cluster: "c1"},
		{Term: "friend", Cluster: "c2"}, {Term: "guard", Cluster: "c2"},
		{Term: "meat", Cluster: "c3"},
	})

	ds, err := prediction.NewDataset("bert", 10, groups, preds, records, terms, clusters)
	require.NoError(t, err)
	return ds
}

func state(selected []string, sharing prediction.SharingMode, sortMode prediction.SortMode, scale prediction.ScaleMode) prediction.FilterState {
	return prediction.NewFilterState(selected, sharing, sortMode, scale)
}

var allSubjects = []string{"s1", "s2", "s3"}

func texts(ps []Primitive) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.Text
	}
	return out
}
