// Package render turns page descriptions into Markdown, HTML, JSON or YAML.
//
// Charts are descriptions, not drawings: a kind, axis columns and the rows to
// plot. Whatever displays them (a browser, a notebook, a terminal table) owns
// presentation.
package render

import (
	"time"

	"github.com/volatiletech/null/v8"
)

// Chart kinds.
const (
	KindBar        = "bar"
	KindBarH       = "barh"
	KindGroupedBar = "grouped_bar"
	KindScatter    = "scatter"
	KindHeatmap    = "heatmap"
)

// Row keys with a fixed meaning across charts.
const (
	FieldHighlighted = "highlighted"
	FieldColor       = "color"
)

// Palette used by the original dashboard.
const (
	ColorCurrent   = "#1f77b4"
	ColorPrior     = "#ff7f0e"
	ColorHighlight = "#ff6347"
	ColorOther     = "#80c9e0"
)

// Chart describes one plot. X, Y, Group and Text name keys of Rows.
type Chart struct {
	ID    string `json:"id" yaml:"id"`
	Kind  string `json:"kind" yaml:"kind"`
	Title string `json:"title" yaml:"title"`
	X     string `json:"x" yaml:"x"`
	Y     string `json:"y" yaml:"y"`
	Group string `json:"group,omitempty" yaml:"group,omitempty"`
	Text  string `json:"text,omitempty" yaml:"text,omitempty"`
	// Max is the upper bound of the value axis when the scores have a known scale.
	Max  float64          `json:"max,omitempty" yaml:"max,omitempty"`
	Rows []map[string]any `json:"rows" yaml:"rows"`
}

// Table is a plain titled grid.
type Table struct {
	Title   string     `json:"title" yaml:"title"`
	Columns []string   `json:"columns" yaml:"columns"`
	Rows    [][]string `json:"rows" yaml:"rows"`
}

// Metric is a headline figure for the highlighted school.
type Metric struct {
	Label        string       `json:"label" yaml:"label"`
	Value        null.Float64 `json:"value" yaml:"value"`
	Prior        null.Float64 `json:"prior" yaml:"prior"`
	VariationPct null.Float64 `json:"variation_pct" yaml:"variation_pct"`
	Rank         int          `json:"rank,omitempty" yaml:"rank,omitempty"`
	Of           int          `json:"of,omitempty" yaml:"of,omitempty"`
}

// Page is the result of one render pass.
type Page struct {
	ID          string    `json:"id" yaml:"id"`
	Title       string    `json:"title" yaml:"title"`
	Year        int       `json:"year" yaml:"year"`
	PriorYear   int       `json:"prior_year" yaml:"prior_year"`
	Highlight   string    `json:"highlight" yaml:"highlight"`
	Schools     []string  `json:"schools" yaml:"schools"`
	Metrics     []Metric  `json:"metrics,omitempty" yaml:"metrics,omitempty"`
	Charts      []Chart   `json:"charts" yaml:"charts"`
	Tables      []Table   `json:"tables,omitempty" yaml:"tables,omitempty"`
	Notes       []string  `json:"notes,omitempty" yaml:"notes,omitempty"`
	PassID      string    `json:"pass_id" yaml:"pass_id"`
	GeneratedAt time.Time `json:"generated_at" yaml:"generated_at"`
}

// Chart returns the chart with the given id.
func (p *Page) Chart(id string) (Chart, bool) {
	for _, c := range p.Charts {
		if c.ID == id {
			return c, true
		}
	}
	return Chart{}, false
}

// Columns returns the row keys the chart plots, in display order.
func (c Chart) Columns() []string {
	var cols []string
	seen := map[string]bool{}
	for _, k := range []string{c.X, c.Group, c.Y, c.Text} {
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		cols = append(cols, k)
	}
	return cols
}
