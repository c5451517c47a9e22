package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var bacRows = []string{
	"établissement,session,spécialité,moyenne",
	"Lycée A,2024,Maths,14",
	"Lycée B,2024,Maths,16",
	"Lycée A,2023,Maths,12",
	"Lycée A,2024,SES,10",
	"Lycée C,2024,SES,",
	"Lycée B,2024,SES,12",
	"Lycée C,2023,Maths,9",
}

func TestFilterYearKeepsOrderAndColumns(t *testing.T) {
	tbl := readFixture(t, bacRows)

	cur := FilterYear(tbl, 2024)
	prior := FilterYear(tbl, 2023)
	assert.Equal(t, 5, cur.Len())
	assert.Equal(t, 2, prior.Len())
	assert.LessOrEqual(t, cur.Len()+prior.Len(), tbl.Len())
	assert.Equal(t, 2024, cur.Year)
	assert.Equal(t, tbl.ColumnNames(), cur.ColumnNames())

	schools, err := cur.Distinct(ColSchool)
	require.NoError(t, err)
	assert.Equal(t, []string{"Lycée A", "Lycée B", "Lycée C"}, schools)

	for _, row := range prior.Rows {
		assert.Equal(t, "2023", row[1].Text)
	}
	assert.Equal(t, 7, tbl.Len(), "input untouched")
}

func TestFilterYearEmptyAndMissingSession(t *testing.T) {
	tbl := readFixture(t, bacRows)
	assert.Equal(t, 0, FilterYear(tbl, 2019).Len())

	noSession := readFixture(t, []string{"établissement,moyenne", "Lycée A,10"})
	assert.Equal(t, 0, FilterYear(noSession, 2024).Len())
}

func TestGroupMeanFirstAppearanceOrder(t *testing.T) {
	cur := FilterYear(readFixture(t, bacRows), 2024)

	aggs, err := GroupMean(cur, "moyenne", ColSchool)
	require.NoError(t, err)
	require.Len(t, aggs, 3)

	assert.Equal(t, "Lycée A", aggs[0].Key)
	assert.InDelta(t, 12.0, aggs[0].Mean.Float64, 1e-9)
	assert.Equal(t, 2, aggs[0].Count)
	assert.Equal(t, 2024, aggs[0].Year)

	assert.Equal(t, "Lycée B", aggs[1].Key)
	assert.InDelta(t, 14.0, aggs[1].Mean.Float64, 1e-9)

	assert.Equal(t, "Lycée C", aggs[2].Key)
	assert.False(t, aggs[2].Mean.Valid, "all-missing group has no data")
	assert.Equal(t, 0, aggs[2].Count)

	total := 0
	for _, a := range aggs {
		total += a.Count
	}
	assert.Equal(t, 4, total, "group sizes sum to non-missing rows")
}

func TestGroupMeanMultipleKeys(t *testing.T) {
	cur := FilterYear(readFixture(t, bacRows), 2024)

	aggs, err := GroupMean(cur, "moyenne", ColSchool, "spécialité")
	require.NoError(t, err)
	require.Len(t, aggs, 5)
	assert.Equal(t, []string{"Lycée A", "Maths"}, aggs[0].Keys)
	assert.Equal(t, "Lycée A\x1fMaths", aggs[0].Key)

	b, ok := FindKeys(aggs, "Lycée A", "Maths")
	require.True(t, ok)
	assert.Equal(t, aggs[0], b)
	_, ok = FindKeys(aggs, "Lycée A")
	assert.False(t, ok)
}

func TestGroupMeanKeysDoNotCollideOnSeparatorText(t *testing.T) {
	tbl := NewTable("eds", []string{"a", "b", "moyenne"}, [][]string{
		{"x | y", "z", "10"},
		{"x", "y | z", "20"},
	}, DefaultOptions())

	aggs, err := GroupMean(tbl, "moyenne", "a", "b")
	require.NoError(t, err)
	require.Len(t, aggs, 2)
	assert.NotEqual(t, aggs[0].Key, aggs[1].Key)

	got, ok := FindKeys(aggs, "x", "y | z")
	require.True(t, ok)
	assert.Equal(t, 20.0, got.Mean.Float64)
}

func TestMeanOverall(t *testing.T) {
	tbl := readFixture(t, bacRows)

	m, err := Mean(FilterYear(tbl, 2023), "moyenne")
	require.NoError(t, err)
	assert.InDelta(t, 10.5, m.Float64, 1e-9)

	empty, err := Mean(FilterYear(tbl, 2019), "moyenne")
	require.NoError(t, err)
	assert.False(t, empty.Valid)
}

func TestGroupMeanUnknownColumn(t *testing.T) {
	tbl := readFixture(t, bacRows)
	_, err := GroupMean(tbl, "oral", ColSchool)
	var ce *ColumnError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "oral", ce.Column)

	_, err = SchoolMeans(tbl, "moyenne ")
	assert.NoError(t, err, "lookup trims the requested name")
}
