package analysis

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// dnbRows mirrors the shape of the DNB tab: school, session, scored subjects.
var dnbRows = []string{
	"\ufeff établissement ,session,Français (sur 100),Mathématiques (sur 100),Sciences (sur 50)",
	"Lycée A,2023,60,55,30",
	"Lycée A,2024,70,65,35",
	"Lycée B,2024,80,,40",
	"Lycée B,2023,\"75,5\",70,38",
	"Lycée A,2024,50,45,25",
	",,,,",
	"Collège C,2024,n/a,30,",
}

func readFixture(t *testing.T, rows []string) *Table {
	t.Helper()
	tbl, err := ReadCSV(strings.NewReader(strings.Join(rows, "\n")), "dnb", DefaultOptions())
	require.NoError(t, err)
	return tbl
}

func TestReadCSVNormalizesHeadersAndCells(t *testing.T) {
	tbl := readFixture(t, dnbRows)

	assert.Equal(t, []string{"établissement", "session", "Français (sur 100)", "Mathématiques (sur 100)", "Sciences (sur 50)"}, tbl.ColumnNames())
	assert.Equal(t, 6, tbl.Len(), "blank record dropped")

	col, ok := tbl.Column("Sciences (sur 50)")
	require.True(t, ok)
	assert.Equal(t, 50.0, col.Max)

	fr, err := tbl.Values("Français (sur 100)")
	require.NoError(t, err)
	assert.InDelta(t, 75.5, fr[3].Float64, 1e-9, "decimal comma parsed")
	assert.False(t, fr[5].Valid, "non-numeric cell is missing")

	maths, err := tbl.Values("Mathématiques (sur 100)")
	require.NoError(t, err)
	assert.False(t, maths[2].Valid, "empty cell is missing, not zero")
}

func TestIndexMatchesDecomposedAndCaseInsensitiveNames(t *testing.T) {
	tbl := readFixture(t, dnbRows)

	// "e" followed by a combining acute accent.
	_, ok := tbl.Index("e\u0301tablissement")
	assert.True(t, ok)
	_, ok = tbl.Index("SESSION")
	assert.True(t, ok)
}

func TestRequireReportsEveryMissingColumn(t *testing.T) {
	tbl := readFixture(t, dnbRows)

	require.NoError(t, tbl.Require(ColSchool, ColSession))

	err := tbl.Require(ColSchool, "oral", "écrit")
	require.Error(t, err)
	var ce *ColumnError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "oral", ce.Column)
	assert.Contains(t, err.Error(), "écrit")
}

func TestDistinctKeepsFirstAppearance(t *testing.T) {
	tbl := readFixture(t, dnbRows)
	schools, err := tbl.Distinct(ColSchool)
	require.NoError(t, err)
	assert.Equal(t, []string{"Lycée A", "Lycée B", "Collège C"}, schools)
}

func TestReadCSVFileSniffsTabs(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "eaf.tsv")
	body := "établissement\tsession\técrit\toral\nLycée A\t2024\t12,5\t14\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	tbl, err := ReadCSVFile(path, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, "eaf", tbl.Name)
	v, err := tbl.Values("écrit")
	require.NoError(t, err)
	assert.InDelta(t, 12.5, v[0].Float64, 1e-9)
}

func TestReadCSVEmptyInput(t *testing.T) {
	tbl, err := ReadCSV(strings.NewReader(""), "empty", DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 0, tbl.Len())
}

func TestParseNumeric(t *testing.T) {
	cases := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"12", 12, true},
		{"12,5", 12.5, true},
		{"1.000,5", 1000.5, true},
		{"1,000.5", 1000.5, true},
		{"1 000,5", 1000.5, true},
		{"-3.25", -3.25, true},
		{"abs", 0, false},
		{"NaN", 0, false},
		{"", 0, false},
	}
	for _, c := range cases {
		got, ok := parseNumeric(c.in, Options{})
		assert.Equal(t, c.ok, ok, c.in)
		if c.ok {
			assert.InDelta(t, c.want, got, 1e-9, c.in)
		}
	}
}

func TestParseScale(t *testing.T) {
	assert.Equal(t, 400.0, parseScale("Socle Commun (sur 400)"))
	assert.Equal(t, 50.0, parseScale("Hist. Géo.EMC ( SUR 50 )"))
	assert.Equal(t, 0.0, parseScale("moyenne"))
}

func TestColumnLabel(t *testing.T) {
	assert.Equal(t, "Socle Commun", Column{Name: "Socle Commun (sur 400)", Max: 400}.Label())
	assert.Equal(t, "écrit", Column{Name: "écrit"}.Label())
}
