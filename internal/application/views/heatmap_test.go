package views

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AdamCoscia/KnowledgeVIS/internal/domain/prediction"
	"github.com/AdamCoscia/KnowledgeVIS/internal/domain/projection"
)

func renderHeatMap(t *testing.T, st prediction.FilterState, vp Viewport) (*HeatMapView, Drawing) {
	t.Helper()
	v := NewHeatMapView(DefaultOptions())
	v.Filter(fixture(t), st)
	v.Arrange()
	return v, v.Render(vp)
}

func TestHeatMap_RowsFollowRankOrder(t *testing.T) {
	v, d := renderHeatMap(t, state(allSubjects, prediction.SharingAll, prediction.SortRank, prediction.ScaleLog), Viewport{Width: 400, Height: 300})

	assert.Equal(t, []string{"meat", "pet", "animal", "friend", "guard"}, v.Rows())
	assert.Equal(t, v.Rows(), texts(d.ByClass("y-axis")))
	assert.Equal(t, 8, d.Count("heat-prediction-rect"))
	assert.Equal(t, 5, d.Count("heat-prediction-row-line"))
}

func TestHeatMap_CellGeometry(t *testing.T) {
	_, d := renderHeatMap(t, state(allSubjects, prediction.SharingAll, prediction.SortRank, prediction.ScaleLog), Viewport{Width: 400, Height: 300})

	cells := d.ByClass("heat-prediction-rect")
	require.NotEmpty(t, cells)
	meat := cells[0]
	assert.Equal(t, "p5", meat.ID)
	// columns span 72..392 across three subjects; fox is the third
	assert.InDelta(t, 72+2*(320.0/3), meat.X, 1e-9)
	assert.InDelta(t, 320.0/3, meat.Width, 1e-9)
	assert.Equal(t, "rgb(103, 0, 31)", meat.Fill)

	require.NotNil(t, meat.Hover)
	assert.Equal(t, "The fox eats _.", meat.Hover.Sentence)
	assert.Equal(t, "c3", meat.Hover.Cluster)
	require.Len(t, meat.Hover.Scores, 1)
	assert.Equal(t, 0.6, meat.Hover.Scores[0].Score)

	for _, c := range cells {
		assert.Equal(t, cells[0].Height, c.Height)
	}
}

func TestHeatMap_RowLabelsColouredByCluster(t *testing.T) {
	_, d := renderHeatMap(t, state(allSubjects, prediction.SharingAll, prediction.SortName, prediction.ScaleLinear), Viewport{Width: 400, Height: 300})

	labels := d.ByClass("y-axis")
	require.Len(t, labels, 5)
	assert.Equal(t, "animal", labels[0].Text)
	assert.Equal(t, projection.ClusterColor(0), labels[0].Fill)
	assert.Equal(t, "meat", labels[3].Text)
	assert.Equal(t, projection.ClusterColor(2), labels[3].Fill)
	require.NotNil(t, d.Legend)
	assert.Len(t, d.Legend.Clusters, 3)
}

func TestHeatMap_SharedKeepsOnlyCommonTerms(t *testing.T) {
	v, d := renderHeatMap(t, state(allSubjects, prediction.SharingShared, prediction.SortRank, prediction.ScaleLog), Viewport{Width: 400, Height: 300})

	assert.Equal(t, []string{"animal"}, v.Rows())
	assert.Equal(t, 3, d.Count("heat-prediction-rect"))
}

func TestHeatMap_MinimumBandwidthExtendsHeight(t *testing.T) {
	_, d := renderHeatMap(t, state(allSubjects, prediction.SharingAll, prediction.SortRank, prediction.ScaleLog), Viewport{Width: 400, Height: 20})

	// five rows at the 8px minimum push the bottom edge to 40, plus the margin
	assert.Equal(t, 48.0, d.Height)
}

func TestHeatMap_LegendTicks(t *testing.T) {
	_, d := renderHeatMap(t, state(allSubjects, prediction.SharingAll, prediction.SortRank, prediction.ScaleLinear), Viewport{Width: 400, Height: 300})

	require.NotNil(t, d.Legend)
	require.Len(t, d.Legend.Ticks, 7)
	assert.InDelta(t, 0.05, d.Legend.Ticks[0].Value, 1e-12)
	assert.Equal(t, "rgb(247, 244, 249)", d.Legend.Ticks[0].Color)
	assert.Equal(t, prediction.ScaleLinear, d.Legend.Scale)
}

func TestHeatMap_EmptyWithoutSelection(t *testing.T) {
	_, d := renderHeatMap(t, state(nil, prediction.SharingAll, prediction.SortRank, prediction.ScaleLog), Viewport{Width: 400, Height: 300})
	assert.Empty(t, d.Primitives)

	v := NewHeatMapView(DefaultOptions())
	assert.Empty(t, v.Render(Viewport{Width: 10, Height: 10}).Primitives)
}

func TestHeatMap_GroupHeaderOnlyForMultiSubjectGroups(t *testing.T) {
	_, d := renderHeatMap(t, state(allSubjects, prediction.SharingAll, prediction.SortRank, prediction.ScaleLog), Viewport{Width: 2000, Height: 300})

	groups := d.ByClass("x-axis-group")
	require.Len(t, groups, 1)
	assert.Equal(t, "A [subject] is a _.", groups[0].Text)
	assert.Equal(t, []string{"cat", "dog", "fox"}, texts(d.ByClass("x-axis")))
}
