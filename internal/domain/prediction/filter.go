package prediction

// Filter keeps predictions owned by a selected subject and, unless mode is
// SharingAll, whose term name is shared by every selected subject ("shared")
// or by exactly one ("unique"). The input is not modified.
func Filter(preds []Prediction, selected SubjectSet, mode SharingMode) []Prediction {
	kept := make([]Prediction, 0, len(preds))
	for _, p := range preds {
		if selected.Has(p.Parent) {
			kept = append(kept, p)
		}
	}
	if mode == SharingAll || mode == "" {
		return kept
	}

	counts := ownerCounts(kept)
	out := kept[:0]
	for _, p := range kept {
		if sharingKeeps(mode, counts[p.Name], len(selected)) {
			out = append(out, p)
		}
	}
	return out
}

// FilterSubjectRecords applies Filter to the set view shape: unselected
// subjects are dropped, and the sharing count runs over the children of the
// subjects that remain.
func FilterSubjectRecords(records []SubjectRecords, selected SubjectSet, mode SharingMode) []SubjectRecords {
	kept := make([]SubjectRecords, 0, len(records))
	var flat []Prediction
	for _, r := range records {
		if !selected.Has(r.ID) {
			continue
		}
		kept = append(kept, r)
		flat = append(flat, r.Children...)
	}

	var counts map[string]int
	if mode != SharingAll && mode != "" {
		counts = ownerCounts(flat)
	}
	for i := range kept {
		children := make([]Prediction, 0, len(kept[i].Children))
		for _, c := range kept[i].Children {
			if counts == nil || sharingKeeps(mode, counts[c.Name], len(selected)) {
				children = append(children, c)
			}
		}
		kept[i].Children = children
	}
	return kept
}

// FilterTerms applies the same rule to scatter terms, whose owners are the
// selected subjects holding a non-zero score. selected keeps its order so
// that callers can reuse it for layout.
func FilterTerms(terms []*Term, selected []string, mode SharingMode) []*Term {
	out := make([]*Term, 0, len(terms))
	for _, t := range terms {
		n := 0
		for _, id := range selected {
			if t.ScoreFor(id) > 0 {
				n++
			}
		}
		if n == 0 {
			continue
		}
		if mode != SharingAll && mode != "" && !sharingKeeps(mode, n, len(selected)) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// ownerCounts maps each term name to the number of distinct owning subjects.
func ownerCounts(preds []Prediction) map[string]int {
	owners := make(map[string]map[string]struct{})
	for _, p := range preds {
		set, ok := owners[p.Name]
		if !ok {
			set = make(map[string]struct{})
			owners[p.Name] = set
		}
		set[p.Parent] = struct{}{}
	}
	counts := make(map[string]int, len(owners))
	for name, set := range owners {
		counts[name] = len(set)
	}
	return counts
}

func sharingKeeps(mode SharingMode, count, selected int) bool {
	switch mode {
	case SharingShared:
		return count == selected
	case SharingUnique:
		return count == 1
	default:
		return true
	}
}
