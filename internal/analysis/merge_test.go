package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeComponentsSkipsMissing(t *testing.T) {
	merged := MergeComponents([]Component{
		{Name: "philosophie", Aggs: aggs("X", 12.0, "Y", 10.0)},
		{Name: "eds", Aggs: aggs("Y", 14.0, "X", nil)},
		{Name: "go", Aggs: aggs("X", 14.0, "Z", 16.0)},
	})
	require.Len(t, merged, 3)
	assert.Equal(t, []string{"X", "Y", "Z"}, []string{merged[0].School, merged[1].School, merged[2].School})

	x := merged[0]
	assert.InDelta(t, 13.0, x.Combined.Float64, 1e-9)
	assert.True(t, x.Values[0].Valid)
	assert.False(t, x.Values[1].Valid)
	assert.True(t, x.Values[2].Valid)

	z := merged[2]
	assert.False(t, z.Values[0].Valid)
	assert.InDelta(t, 16.0, z.Combined.Float64, 1e-9)
}

func TestMergedAggregatesRank(t *testing.T) {
	merged := MergeComponents([]Component{
		{Name: "philosophie", Aggs: aggs("X", 12.0, "Y", 10.0, "W", nil)},
		{Name: "go", Aggs: aggs("X", 14.0, "Y", 18.0)},
	})
	ranked := Rank(MergedAggregates(merged, 2024), "X")
	require.Len(t, ranked, 2, "school with no value anywhere is not ranked")
	assert.Equal(t, "Y", ranked[0].Key)
	assert.Equal(t, 2, ranked[1].Rank)
	assert.True(t, ranked[1].Highlighted)
	assert.Equal(t, 2, ranked[1].Count)
	assert.Equal(t, 2024, ranked[1].Year)
}
