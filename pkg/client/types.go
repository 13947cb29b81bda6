package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Subject is one fill-in candidate of a sentence group.
type Subject struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Group is one prompt template and the subjects substituted into it.
type Group struct {
	Template string    `json:"template"`
	Subjects []Subject `json:"subjects"`
}

// Request is the body of POST /getData.
type Request struct {
	Model  string  `json:"model"`
	TopK   int     `json:"topk"`
	Fill   string  `json:"fill"`
	Groups []Group `json:"groups"`
}

// Prediction is one (subject, term, score) row of the heat map data.
type Prediction struct {
	Parent string  `json:"parent"`
	Name   string  `json:"name"`
	Value  float64 `json:"value"`
	ID     string  `json:"id,omitempty"`
}

// SubjectPredictions is one child of the set view tree.
type SubjectPredictions struct {
	ID       string       `json:"id"`
	Name     string       `json:"name"`
	Template string       `json:"template"`
	Children []Prediction `json:"children"`
}

// SetViewData is the set view tree rooted at "_root_".
type SetViewData struct {
	Name     string               `json:"name"`
	Children []SubjectPredictions `json:"children"`
}

// ScatterRow is one distinct term with its score per subject. On the wire
// the scores are flattened next to id and name, keyed by subject id.
type ScatterRow struct {
	ID     string
	Name   string
	Scores map[string]float64
}

func (r *ScatterRow) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.Scores = make(map[string]float64, len(raw))
	for k, v := range raw {
		switch k {
		case "id":
			if err := json.Unmarshal(v, &r.ID); err != nil {
				return fmt.Errorf("scatter row id: %w", err)
			}
		case "name":
			if err := json.Unmarshal(v, &r.Name); err != nil {
				return fmt.Errorf("scatter row name: %w", err)
			}
		default:
			var f float64
			if err := json.Unmarshal(v, &f); err != nil {
				return fmt.Errorf("scatter row score %q: %w", k, err)
			}
			r.Scores[k] = f
		}
	}
	return nil
}

func (r ScatterRow) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(r.Scores)+2)
	for k, v := range r.Scores {
		out[k] = v
	}
	out["id"] = r.ID
	out["name"] = r.Name
	return json.Marshal(out)
}

// Pair is one key/value entry of an Ordered object.
type Pair struct {
	Key   string
	Value string
}

// Ordered is a JSON object of strings that keeps its members in document
// order. predictionsClusters relies on that order to rank clusters.
type Ordered []Pair

func (o *Ordered) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*o = nil
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("expected object, got %v", tok)
	}
	var out Ordered
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := kt.(string)
		var val string
		if err := dec.Decode(&val); err != nil {
			return fmt.Errorf("value of %q: %w", key, err)
		}
		out = append(out, Pair{Key: key, Value: val})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*o = out
	return nil
}

func (o Ordered) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, p := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(p.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(p.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Map returns the pairs as a map; later duplicates win.
func (o Ordered) Map() map[string]string {
	m := make(map[string]string, len(o))
	for _, p := range o {
		m[p.Key] = p.Value
	}
	return m
}

// OrderedFromMap builds an Ordered from m with keys sorted.
func OrderedFromMap(m map[string]string) Ordered {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make(Ordered, 0, len(keys))
	for _, k := range keys {
		out = append(out, Pair{Key: k, Value: m[k]})
	}
	return out
}

// Response is the body returned by POST /getData.
type Response struct {
	Model               string            `json:"model"`
	TopK                int               `json:"topk"`
	Fill                string            `json:"fill"`
	Groups              []Group           `json:"groups"`
	HeatMapData         []Prediction      `json:"heatMapData"`
	SetViewData         SetViewData       `json:"setViewData"`
	ScatterPlotData     []ScatterRow      `json:"scatterPlotData"`
	SubjectsIDKey       map[string]string `json:"subjectsIDKey"`
	PredictionsIDKey    map[string]string `json:"predictionsIDKey"`
	PredictionsNameKey  map[string]string `json:"predictionsNameKey"`
	PredictionsClusters Ordered           `json:"predictionsClusters"`
}
