package query

import (
	"fmt"

	"github.com/AdamCoscia/KnowledgeVIS/internal/domain/prediction"
	"github.com/AdamCoscia/KnowledgeVIS/pkg/client"
	"github.com/AdamCoscia/KnowledgeVIS/pkg/errors"
)

// OtherCluster labels terms the backend did not cluster.
const OtherCluster = "other"

// BuildDataset assembles a response into the three view shapes. Parts the
// backend left out (term ids, the set view tree, the scatter rows) are
// derived from the heat map list.
func BuildDataset(resp *client.Response) (*prediction.Dataset, error) {
	if resp == nil {
		return nil, errors.New(errors.ErrCodeSerialization, "empty response")
	}

	groups := make([]prediction.SubjectGroup, 0, len(resp.Groups))
	templates := make(map[string]string)
	var subjectOrder []string
	for _, g := range resp.Groups {
		sg := prediction.SubjectGroup{Template: g.Template}
		for _, s := range g.Subjects {
			sg.Subjects = append(sg.Subjects, prediction.Subject{ID: s.ID, Name: s.Name})
			templates[s.ID] = g.Template
			subjectOrder = append(subjectOrder, s.ID)
		}
		groups = append(groups, sg)
	}

	termIDs := termIDsFor(resp)
	clusters := clustersFor(resp)

	preds := make([]prediction.Prediction, 0, len(resp.HeatMapData))
	for _, p := range resp.HeatMapData {
		preds = append(preds, prediction.Prediction{
			Parent: p.Parent,
			Name:   p.Name,
			Value:  p.Value,
			ID:     termIDs[p.Name],
		})
	}

	records := recordsFor(resp, preds, subjectOrder, templates, termIDs)
	terms := termsFor(resp, preds, termIDs, clusters)

	return prediction.NewDataset(resp.Model, resp.TopK, groups, preds, records, terms, clusters)
}

// termIDsFor prefers the backend's name-to-id key and falls back to p1, p2,
// ... in first-seen order of the heat map list.
func termIDsFor(resp *client.Response) map[string]string {
	ids := make(map[string]string, len(resp.PredictionsNameKey))
	for name, id := range resp.PredictionsNameKey {
		ids[name] = id
	}
	if len(ids) == 0 {
		for id, name := range resp.PredictionsIDKey {
			ids[name] = id
		}
	}
	next := len(ids)
	for _, p := range resp.HeatMapData {
		if _, ok := ids[p.Name]; ok {
			continue
		}
		if p.ID != "" {
			ids[p.Name] = p.ID
			continue
		}
		next++
		ids[p.Name] = fmt.Sprintf("p%d", next)
	}
	return ids
}

// clustersFor keeps the serialized order of predictionsClusters, then gives
// every remaining term the "other" cluster.
func clustersFor(resp *client.Response) prediction.Clusters {
	assignments := make([]prediction.ClusterAssignment, 0, len(resp.PredictionsClusters))
	seen := make(map[string]bool, len(resp.PredictionsClusters))
	for _, pair := range resp.PredictionsClusters {
		if seen[pair.Key] {
			continue
		}
		seen[pair.Key] = true
		cl := pair.Value
		if cl == "" {
			cl = OtherCluster
		}
		assignments = append(assignments, prediction.ClusterAssignment{Term: pair.Key, Cluster: cl})
	}
	for _, p := range resp.HeatMapData {
		if !seen[p.Name] {
			seen[p.Name] = true
			assignments = append(assignments, prediction.ClusterAssignment{Term: p.Name, Cluster: OtherCluster})
		}
	}
	return prediction.NewClusters(assignments)
}

func recordsFor(resp *client.Response, preds []prediction.Prediction, order []string,
	templates map[string]string, termIDs map[string]string) []prediction.SubjectRecords {

	if len(resp.SetViewData.Children) > 0 {
		out := make([]prediction.SubjectRecords, 0, len(resp.SetViewData.Children))
		for _, c := range resp.SetViewData.Children {
			rec := prediction.SubjectRecords{ID: c.ID, Name: c.Name, Template: c.Template}
			if rec.Template == "" {
				rec.Template = templates[c.ID]
			}
			for _, p := range c.Children {
				parent := p.Parent
				if parent == "" {
					parent = c.ID
				}
				rec.Children = append(rec.Children, prediction.Prediction{
					Parent: parent, Name: p.Name, Value: p.Value, ID: termIDs[p.Name],
				})
			}
			out = append(out, rec)
		}
		return out
	}

	names := make(map[string]string)
	for _, g := range resp.Groups {
		for _, s := range g.Subjects {
			names[s.ID] = s.Name
		}
	}
	bySubject := make(map[string][]prediction.Prediction)
	for _, p := range preds {
		bySubject[p.Parent] = append(bySubject[p.Parent], p)
	}
	out := make([]prediction.SubjectRecords, 0, len(order))
	for _, id := range order {
		out = append(out, prediction.SubjectRecords{
			ID:       id,
			Name:     names[id],
			Template: templates[id],
			Children: bySubject[id],
		})
	}
	return out
}

func termsFor(resp *client.Response, preds []prediction.Prediction, termIDs map[string]string,
	clusters prediction.Clusters) []*prediction.Term {

	if len(resp.ScatterPlotData) > 0 {
		out := make([]*prediction.Term, 0, len(resp.ScatterPlotData))
		for _, row := range resp.ScatterPlotData {
			id := row.ID
			if id == "" {
				id = termIDs[row.Name]
			}
			scores := make(map[string]float64, len(row.Scores))
			for k, v := range row.Scores {
				scores[k] = v
			}
			out = append(out, &prediction.Term{ID: id, Name: row.Name, Cluster: clusters.Of(row.Name), Scores: scores})
		}
		return out
	}

	var out []*prediction.Term
	index := make(map[string]*prediction.Term)
	for _, p := range preds {
		t, ok := index[p.Name]
		if !ok {
			t = &prediction.Term{ID: p.ID, Name: p.Name, Cluster: clusters.Of(p.Name), Scores: make(map[string]float64)}
			index[p.Name] = t
			out = append(out, t)
		}
		t.Scores[p.Parent] = p.Value
	}
	return out
}
