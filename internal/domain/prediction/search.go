package prediction

import (
	"strings"

	"github.com/AdamCoscia/KnowledgeVIS/pkg/errors"
)

// SearchResult lists the prediction ids to highlight and the query terms that
// matched nothing.
type SearchResult struct {
	IDs     []string `json:"ids"`
	Missing []string `json:"missing,omitempty"`
}

// ParseSearch splits a ";" separated query into trimmed, non-empty terms.
func ParseSearch(query string) ([]string, error) {
	var terms []string
	for _, part := range strings.Split(query, ";") {
		if p := strings.TrimSpace(part); p != "" {
			terms = append(terms, p)
		}
	}
	if len(terms) == 0 {
		return nil, errors.New(errors.ErrCodeEmptySearch, "search query has no terms")
	}
	return terms, nil
}

// Search resolves a ";" separated list of term names to prediction ids.
func (d *Dataset) Search(query string) (SearchResult, error) {
	terms, err := ParseSearch(query)
	if err != nil {
		return SearchResult{}, err
	}
	res := SearchResult{IDs: []string{}}
	seen := make(map[string]struct{})
	for _, t := range terms {
		id, ok := d.TermID(t)
		if !ok {
			res.Missing = append(res.Missing, t)
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		res.IDs = append(res.IDs, id)
	}
	return res, nil
}
