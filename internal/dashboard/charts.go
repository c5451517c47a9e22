package dashboard

import (
	"strconv"

	"github.com/volatiletech/null/v8"

	"github.com/MathieuBartozzi/resultats-efe-maroc-new-app/internal/analysis"
	"github.com/MathieuBartozzi/resultats-efe-maroc-new-app/internal/render"
	"github.com/MathieuBartozzi/resultats-efe-maroc-new-app/internal/utils"
)

// Row keys used by the page charts.
const (
	keySchool    = "établissement"
	keyMean      = "moyenne"
	keyRank      = "rang"
	keySubject   = "épreuve"
	keyYear      = "année"
	keySpecialty = "spécialité"
)

// subject is one score column shown on a page.
type subject struct {
	Column string
	Label  string
	Max    float64
}

func subjectOf(t *analysis.Table, column string) subject {
	c, _ := t.Column(column)
	return subject{Column: column, Label: c.Label(), Max: c.Max}
}

// yearComparison builds a grouped bar of overall means, prior then current session per subject.
func (p *pass) yearComparison(id, title string, scale float64, role string, t *analysis.Table, subjects []subject) (render.Chart, error) {
	chart := comparisonChart(id, title, scale)
	for _, s := range subjects {
		rows, err := p.comparisonRows(role, t, s)
		if err != nil {
			return render.Chart{}, err
		}
		chart.Rows = append(chart.Rows, rows...)
	}
	return chart, nil
}

func comparisonChart(id, title string, scale float64) render.Chart {
	return render.Chart{
		ID: id, Kind: render.KindGroupedBar, Title: title,
		X: keySubject, Group: keyYear, Y: keyMean, Max: scale,
	}
}

// comparisonRows returns the prior and current overall means of one subject.
func (p *pass) comparisonRows(role string, t *analysis.Table, s subject) ([]map[string]any, error) {
	var rows []map[string]any
	for _, y := range []struct {
		year  int
		color string
	}{{p.cfg.PriorYear, render.ColorPrior}, {p.cfg.CurrentYear, render.ColorCurrent}} {
		aggs, err := p.aggregate(role, t, y.year, s.Column)
		if err != nil {
			return nil, err
		}
		rows = append(rows, map[string]any{
			keySubject:        s.Label,
			keyYear:           strconv.Itoa(y.year),
			keyMean:           aggs[0].Mean,
			render.FieldColor: y.color,
		})
	}
	return rows, nil
}

// schoolRanking ranks per-school means of one column for the current session.
func (p *pass) schoolRanking(role string, t *analysis.Table, column string) ([]analysis.Ranked, error) {
	aggs, err := p.aggregate(role, t, p.cfg.CurrentYear, column, analysis.ColSchool)
	if err != nil {
		return nil, err
	}
	return analysis.Rank(aggs, p.page.Highlight), nil
}

// rankingChart describes a horizontal bar per school, best first, labelled with its rank.
func rankingChart(id, title string, scale float64, ranked []analysis.Ranked) render.Chart {
	return rankingChartBy(id, title, keySchool, scale, ranked)
}

// rankingChartBy is rankingChart with the category key named by x.
func rankingChartBy(id, title, x string, scale float64, ranked []analysis.Ranked) render.Chart {
	chart := render.Chart{
		ID: id, Kind: render.KindBarH, Title: title,
		X: x, Y: keyMean, Text: keyRank, Max: scale,
	}
	for _, r := range ranked {
		chart.Rows = append(chart.Rows, rankingRow(x, r))
	}
	return chart
}

func rankingRow(x string, r analysis.Ranked) map[string]any {
	color := render.ColorOther
	if r.Highlighted {
		color = render.ColorHighlight
	}
	return map[string]any{
		x:                       r.Key,
		keyMean:                 r.Mean,
		keyRank:                 r.Rank,
		render.FieldHighlighted: r.Highlighted,
		render.FieldColor:       color,
	}
}

// schoolMetric compares the highlighted school's mean of column across both sessions.
func (p *pass) schoolMetric(label string, role string, t *analysis.Table, column string, ranked []analysis.Ranked) (render.Metric, error) {
	cur, err := p.schoolMean(role, t, p.cfg.CurrentYear, column)
	if err != nil {
		return render.Metric{}, err
	}
	prior, err := p.schoolMean(role, t, p.cfg.PriorYear, column)
	if err != nil {
		return render.Metric{}, err
	}
	c := analysis.Compare(p.page.Highlight, cur, prior, p.policy)
	return render.Metric{
		Label:        label,
		Value:        c.Current,
		Prior:        c.Prior,
		VariationPct: c.VariationPct,
		Rank:         analysis.RankOf(ranked, p.page.Highlight),
		Of:           len(ranked),
	}, nil
}

func (p *pass) schoolMean(role string, t *analysis.Table, year int, column string) (null.Float64, error) {
	aggs, err := p.aggregate(role, t, year, column, analysis.ColSchool)
	if err != nil {
		return null.Float64{}, err
	}
	a, _ := analysis.Find(aggs, p.page.Highlight)
	return a.Mean, nil
}

// scatterChart plots per-school means of two columns, skipping schools missing either.
func (p *pass) scatterChart(id, title, role string, t *analysis.Table, a, b subject) (render.Chart, error) {
	xs, err := p.aggregate(role, t, p.cfg.CurrentYear, a.Column, analysis.ColSchool)
	if err != nil {
		return render.Chart{}, err
	}
	ys, err := p.aggregate(role, t, p.cfg.CurrentYear, b.Column, analysis.ColSchool)
	if err != nil {
		return render.Chart{}, err
	}
	chart := render.Chart{
		ID: id, Kind: render.KindScatter, Title: title,
		X: a.Label, Y: b.Label, Text: keySchool,
	}
	for _, x := range xs {
		y, ok := analysis.Find(ys, x.Key)
		if !ok || !x.Mean.Valid || !y.Mean.Valid {
			continue
		}
		hl := x.Key == p.page.Highlight
		color := render.ColorOther
		if hl {
			color = render.ColorHighlight
		}
		chart.Rows = append(chart.Rows, map[string]any{
			keySchool:               x.Key,
			a.Label:                 x.Mean,
			b.Label:                 y.Mean,
			render.FieldHighlighted: hl,
			render.FieldColor:       color,
		})
	}
	return chart, nil
}

// heatmapChart lays a correlation matrix out as one row per cell.
func heatmapChart(id, title string, cm *analysis.CorrMatrix, labels []string) render.Chart {
	chart := render.Chart{
		ID: id, Kind: render.KindHeatmap, Title: title,
		X: "x", Y: "y", Text: "r", Max: 1,
	}
	grid := cm.Grid()
	for i := range grid {
		for j := range grid[i] {
			chart.Rows = append(chart.Rows, map[string]any{
				"x": labels[j],
				"y": labels[i],
				"r": grid[i][j],
				"n": cm.Observations(i, j),
			})
		}
	}
	return chart
}

// chartID derives a stable chart id from a prefix and a label.
func chartID(prefix, label string) string {
	if slug := utils.Slug(label); slug != "" {
		return prefix + "-" + slug
	}
	return prefix
}
