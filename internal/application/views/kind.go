// Package views coordinates the heat map, set view and scatter view over one
// shared prediction dataset. A Coordinator owns the single writable filter
// state, runs each view's filter → arrange → render pipeline when that state
// changes and hands the resulting primitives to a Surface.
package views

import (
	"strings"

	"github.com/AdamCoscia/KnowledgeVIS/internal/domain/prediction"
	"github.com/AdamCoscia/KnowledgeVIS/pkg/errors"
)

// Kind identifies one of the three coordinated views.
type Kind string

const (
	KindHeatMap Kind = "heatmap"
	KindSetView Kind = "setview"
	KindScatter Kind = "scatter"
)

// AllKinds lists every view in render order.
var AllKinds = []Kind{KindHeatMap, KindSetView, KindScatter}

// ParseKind accepts a view name, case-insensitively. "heat-map" and
// "set-view" are accepted as aliases.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "heatmap", "heat-map":
		return KindHeatMap, nil
	case "setview", "set-view":
		return KindSetView, nil
	case "scatter", "scatterplot", "scatter-plot":
		return KindScatter, nil
	}
	return "", errors.Newf(errors.ErrCodeUnknownView, "unknown view %q", s)
}

func (k Kind) String() string { return string(k) }

// MinSubjects is the number of selected subjects a view needs before it
// draws anything.
func (k Kind) MinSubjects() int {
	if k == KindScatter {
		return 2
	}
	return 1
}

// Status is the lifecycle state of one view.
type Status string

const (
	StatusEmpty     Status = "empty"
	StatusPopulated Status = "populated"
)

// Settings are the per-view display modes.
type Settings struct {
	Sort  prediction.SortMode  `json:"sort"`
	Scale prediction.ScaleMode `json:"scale"`
}

// DefaultSettings returns the display modes each view starts with.
func DefaultSettings() map[Kind]Settings {
	return map[Kind]Settings{
		KindHeatMap: {Sort: prediction.SortRank, Scale: prediction.ScaleLog},
		KindSetView: {Sort: prediction.SortName, Scale: prediction.ScaleLog},
		KindScatter: {Sort: prediction.SortName, Scale: prediction.ScaleLog},
	}
}
