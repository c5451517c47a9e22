package render

import (
	"bytes"
	"fmt"
	"html"
	"math"
	"strings"

	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/volatiletech/null/v8"
	"gopkg.in/yaml.v3"

	"github.com/MathieuBartozzi/resultats-efe-maroc-new-app/internal/utils"
)

// Formats accepted by Render.
const (
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
	FormatYAML     = "yaml"
	FormatHTML     = "html"
)

// Formats lists every output format.
var Formats = []string{FormatMarkdown, FormatJSON, FormatYAML, FormatHTML}

// ParseFormat normalizes a format name and its aliases.
func ParseFormat(format string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case FormatMarkdown, "md", "":
		return FormatMarkdown, nil
	case FormatJSON:
		return FormatJSON, nil
	case FormatYAML, "yml":
		return FormatYAML, nil
	case FormatHTML:
		return FormatHTML, nil
	default:
		return "", fmt.Errorf("unknown format %q (use %s)", format, strings.Join(Formats, "|"))
	}
}

// Render encodes p in the requested format.
func Render(p *Page, format string) ([]byte, error) {
	f, err := ParseFormat(format)
	if err != nil {
		return nil, err
	}
	switch f {
	case FormatJSON:
		return utils.PrettyJSON(p)
	case FormatYAML:
		return YAML(p)
	case FormatHTML:
		return HTML(p), nil
	default:
		return []byte(Markdown(p)), nil
	}
}

// Extension returns the file extension for a format.
func Extension(format string) string {
	switch strings.ToLower(format) {
	case FormatJSON:
		return ".json"
	case FormatYAML, "yml":
		return ".yaml"
	case FormatHTML:
		return ".html"
	default:
		return ".md"
	}
}

// ContentType returns the MIME type for a format.
func ContentType(format string) string {
	switch strings.ToLower(format) {
	case FormatJSON:
		return "application/json"
	case FormatYAML, "yml":
		return "application/yaml"
	case FormatHTML:
		return "text/html; charset=utf-8"
	default:
		return "text/markdown; charset=utf-8"
	}
}

// YAML encodes p as YAML. Missing values become null.
func YAML(p *Page) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(yamlPage(p)); err != nil {
		return nil, fmt.Errorf("marshal yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("marshal yaml: %w", err)
	}
	return buf.Bytes(), nil
}

// yamlPage swaps null.Float64 for *float64, which yaml.v3 writes as null.
func yamlPage(p *Page) map[string]any {
	metrics := make([]map[string]any, len(p.Metrics))
	for i, m := range p.Metrics {
		metrics[i] = map[string]any{
			"label":         m.Label,
			"value":         ptr(m.Value),
			"prior":         ptr(m.Prior),
			"variation_pct": ptr(m.VariationPct),
			"rank":          m.Rank,
			"of":            m.Of,
		}
	}
	charts := make([]map[string]any, len(p.Charts))
	for i, c := range p.Charts {
		rows := make([]map[string]any, len(c.Rows))
		for j, r := range c.Rows {
			out := make(map[string]any, len(r))
			for k, v := range r {
				if n, ok := v.(null.Float64); ok {
					out[k] = ptr(n)
					continue
				}
				out[k] = v
			}
			rows[j] = out
		}
		charts[i] = map[string]any{
			"id": c.ID, "kind": c.Kind, "title": c.Title,
			"x": c.X, "y": c.Y, "group": c.Group, "text": c.Text,
			"max": c.Max, "rows": rows,
		}
	}
	return map[string]any{
		"id":           p.ID,
		"title":        p.Title,
		"year":         p.Year,
		"prior_year":   p.PriorYear,
		"highlight":    p.Highlight,
		"schools":      p.Schools,
		"metrics":      metrics,
		"charts":       charts,
		"tables":       p.Tables,
		"notes":        p.Notes,
		"pass_id":      p.PassID,
		"generated_at": p.GeneratedAt,
	}
}

func ptr(n null.Float64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}

// Markdown renders the page as sectioned Markdown: metrics, then one table per chart.
func Markdown(p *Page) string {
	return markdownText(p, func(s string) string { return s })
}

// markdownText renders the page, passing every data-derived string through esc.
func markdownText(p *Page, esc func(string) string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", esc(p.Title))
	fmt.Fprintf(&b, "Session %d vs %d", p.Year, p.PriorYear)
	if p.Highlight != "" {
		fmt.Fprintf(&b, ", établissement mis en avant : **%s**", safeCell(esc(p.Highlight)))
	}
	b.WriteString("\n\n")
	for _, n := range p.Notes {
		fmt.Fprintf(&b, "> %s\n\n", esc(n))
	}

	if len(p.Metrics) > 0 {
		b.WriteString("## Indicateurs\n\n")
		b.WriteString("| Indicateur | Valeur | Évolution | Rang |\n|---|---|---|---|\n")
		for _, m := range p.Metrics {
			rank := ""
			if m.Rank > 0 {
				rank = fmt.Sprintf("%d/%d", m.Rank, m.Of)
			}
			fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", safeCell(esc(m.Label)), FormatValue(m.Value), FormatVariation(m.VariationPct), rank)
		}
		b.WriteString("\n")
	}

	for _, c := range p.Charts {
		fmt.Fprintf(&b, "## %s\n\n", esc(c.Title))
		cols := c.Columns()
		if len(c.Rows) == 0 || len(cols) == 0 {
			b.WriteString("_Aucune donnée._\n\n")
			continue
		}
		writeTable(&b, cols, chartCells(c, cols, esc), esc)
	}

	for _, t := range p.Tables {
		fmt.Fprintf(&b, "## %s\n\n", esc(t.Title))
		if len(t.Rows) == 0 {
			b.WriteString("_Aucune donnée._\n\n")
			continue
		}
		writeTable(&b, t.Columns, escapeRows(t.Rows, esc), esc)
	}
	return b.String()
}

func chartCells(c Chart, cols []string, esc func(string) string) [][]string {
	out := make([][]string, 0, len(c.Rows))
	for _, r := range c.Rows {
		cells := make([]string, len(cols))
		hl, _ := r[FieldHighlighted].(bool)
		for i, k := range cols {
			cells[i] = esc(formatAny(r[k]))
			if hl && cells[i] != "" {
				cells[i] = "**" + cells[i] + "**"
			}
		}
		out = append(out, cells)
	}
	return out
}

func escapeRows(rows [][]string, esc func(string) string) [][]string {
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = make([]string, len(r))
		for j, v := range r {
			out[i][j] = esc(v)
		}
	}
	return out
}

// writeTable escapes headers; rows arrive already escaped.
func writeTable(b *strings.Builder, cols []string, rows [][]string, esc func(string) string) {
	b.WriteString("|")
	for _, c := range cols {
		fmt.Fprintf(b, " %s |", safeCell(esc(c)))
	}
	b.WriteString("\n|")
	for range cols {
		b.WriteString("---|")
	}
	b.WriteString("\n")
	for _, r := range rows {
		b.WriteString("|")
		for _, v := range r {
			fmt.Fprintf(b, " %s |", safeCell(v))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
}

// HTML renders the Markdown form as a standalone HTML document. Text taken
// from the data or the request is escaped, and raw HTML is never emitted.
func HTML(p *Page) []byte {
	exts := parser.CommonExtensions | parser.AutoHeadingIDs | parser.NoEmptyLineBeforeBlock
	doc := parser.NewWithExtensions(exts).Parse([]byte(markdownText(p, html.EscapeString)))
	renderer := mdhtml.NewRenderer(mdhtml.RendererOptions{
		Flags: mdhtml.CommonFlags | mdhtml.HrefTargetBlank | mdhtml.SkipHTML,
	})
	body := markdown.Render(doc, renderer)

	var b bytes.Buffer
	b.WriteString("<!DOCTYPE html>\n<html lang=\"fr\">\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&b, "<title>%s</title>\n", html.EscapeString(p.Title))
	b.WriteString("<style>body{font-family:sans-serif;max-width:960px;margin:auto}table{border-collapse:collapse}td,th{border:1px solid #ccc;padding:2px 8px}strong{color:" + ColorHighlight + "}</style>\n")
	b.WriteString("</head>\n<body>\n")
	b.Write(body)
	b.WriteString("</body>\n</html>\n")
	return b.Bytes()
}

// FormatValue prints a mean with two decimals, or "n/a".
func FormatValue(v null.Float64) string {
	if !v.Valid || math.IsNaN(v.Float64) {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", v.Float64)
}

// FormatVariation prints a signed percentage, or "n/a".
func FormatVariation(v null.Float64) string {
	if !v.Valid {
		return "n/a"
	}
	return fmt.Sprintf("%+.1f %%", v.Float64)
}

func formatAny(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case null.Float64:
		return FormatValue(x)
	case float64:
		if math.IsNaN(x) {
			return "n/a"
		}
		return fmt.Sprintf("%.2f", x)
	case int:
		return fmt.Sprintf("%d", x)
	case string:
		return x
	case bool:
		if x {
			return "oui"
		}
		return ""
	default:
		return fmt.Sprint(x)
	}
}

// safeCell keeps a value on one table line.
func safeCell(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "|", "\\|")
	return strings.TrimSpace(s)
}
