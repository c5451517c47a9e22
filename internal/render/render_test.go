package render

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"
	"gopkg.in/yaml.v3"
)

func samplePage() *Page {
	return &Page{
		ID:        "eaf",
		Title:     "Résultats EAF",
		Year:      2024,
		PriorYear: 2023,
		Highlight: "Lycée B",
		Schools:   []string{"Lycée A", "Lycée B"},
		Metrics: []Metric{
			{Label: "écrit", Value: null.Float64From(12.5), VariationPct: null.Float64From(4.2), Rank: 1, Of: 2},
			{Label: "oral", Value: null.Float64{}, VariationPct: null.Float64{}},
		},
		Charts: []Chart{
			{
				ID: "ranking-ecrit", Kind: KindBar, Title: "Classement écrit", X: "school", Y: "mean", Text: "rank",
				Rows: []map[string]any{
					{"school": "Lycée B", "mean": null.Float64From(12.5), "rank": 1, FieldHighlighted: true},
					{"school": "Lycée A|x", "mean": null.Float64From(10), "rank": 2, FieldHighlighted: false},
				},
			},
			{ID: "empty", Kind: KindScatter, Title: "Vide", X: "a", Y: "b"},
		},
		Tables: []Table{{Title: "Spécialités", Columns: []string{"spécialité", "moyenne"}, Rows: [][]string{{"Maths", "14.00"}}}},
		Notes:  []string{"note"},
		PassID: "pass-1",
	}
}

func TestMarkdownSections(t *testing.T) {
	md := Markdown(samplePage())

	assert.Contains(t, md, "# Résultats EAF")
	assert.Contains(t, md, "**Lycée B**")
	assert.Contains(t, md, "| écrit | 12.50 | +4.2 % | 1/2 |")
	assert.Contains(t, md, "| oral | n/a | n/a |  |")
	assert.Contains(t, md, "| school | mean | rank |")
	assert.Contains(t, md, "| **Lycée B** | **12.50** | **1** |")
	assert.Contains(t, md, "| Lycée A\\|x | 10.00 | 2 |")
	assert.Contains(t, md, "## Vide\n\n_Aucune donnée._")
	assert.Contains(t, md, "| Maths | 14.00 |")
	assert.Contains(t, md, "> note")
}

func TestJSONKeepsMissingAsNull(t *testing.T) {
	b, err := Render(samplePage(), FormatJSON)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(b, &out))
	metrics := out["metrics"].([]any)
	oral := metrics[1].(map[string]any)
	assert.Nil(t, oral["value"])
	assert.Nil(t, oral["variation_pct"])
	ecrit := metrics[0].(map[string]any)
	assert.Equal(t, 12.5, ecrit["value"])
}

func TestYAMLKeepsMissingAsNull(t *testing.T) {
	b, err := Render(samplePage(), "yml")
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, yaml.Unmarshal(b, &out))
	metrics := out["metrics"].([]any)
	assert.Nil(t, metrics[1].(map[string]any)["value"])
	charts := out["charts"].([]any)
	rows := charts[0].(map[string]any)["rows"].([]any)
	assert.Equal(t, 12.5, rows[0].(map[string]any)["mean"])
}

func TestHTMLWrapsMarkdown(t *testing.T) {
	b, err := Render(samplePage(), FormatHTML)
	require.NoError(t, err)
	s := string(b)
	assert.True(t, strings.HasPrefix(s, "<!DOCTYPE html>"))
	assert.Contains(t, s, "<title>Résultats EAF</title>")
	assert.Contains(t, s, "<table>")
	assert.Contains(t, s, "<strong>Lycée B</strong>")
}

func TestHTMLEscapesDataAndDropsRawHTML(t *testing.T) {
	p := samplePage()
	p.Highlight = "<script>alert(1)</script>"
	p.Notes = []string{`"<img src=x onerror=alert(1)>" n'apparaît pas`}
	p.Charts[0].Rows[1]["school"] = "<b>Lycée A</b> & co"
	p.Tables[0].Rows = [][]string{{"<i>Maths</i>", "14.00"}}

	s := string(HTML(p))
	assert.NotContains(t, s, "<script>")
	assert.NotContains(t, s, "<img")
	assert.NotContains(t, s, "<b>Lycée A</b>")
	assert.NotContains(t, s, "<i>Maths</i>")
	assert.Contains(t, s, "&lt;script&gt;")
	assert.Contains(t, s, "&lt;b&gt;Lycée A&lt;/b&gt; &amp; co")

	// Markdown output keeps the text as written.
	assert.Contains(t, Markdown(p), "<script>alert(1)</script>")
}

func TestRenderUnknownFormat(t *testing.T) {
	_, err := Render(samplePage(), "pdf")
	assert.Error(t, err)
	assert.Equal(t, ".md", Extension("markdown"))
	assert.Equal(t, ".yaml", Extension("yaml"))
	assert.Equal(t, "application/json", ContentType("json"))
}

func TestChartColumnsAndLookup(t *testing.T) {
	c := Chart{X: "subject", Group: "year", Y: "mean", Text: "mean"}
	assert.Equal(t, []string{"subject", "year", "mean"}, c.Columns())

	p := samplePage()
	got, ok := p.Chart("empty")
	require.True(t, ok)
	assert.Equal(t, KindScatter, got.Kind)
	_, ok = p.Chart("nope")
	assert.False(t, ok)
}
