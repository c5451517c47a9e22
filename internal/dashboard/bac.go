package dashboard

import (
	"strconv"

	"github.com/MathieuBartozzi/resultats-efe-maroc-new-app/internal/analysis"
	"github.com/MathieuBartozzi/resultats-efe-maroc-new-app/internal/config"
	"github.com/MathieuBartozzi/resultats-efe-maroc-new-app/internal/render"
)

// BAC tab columns.
const (
	ColMean      = "moyenne"
	ColSpecialty = "spécialité"
)

const bacMax = 20

// bacComponent is one BAC exam and the tab holding it.
type bacComponent struct {
	label string
	role  string
	t     *analysis.Table
}

func buildBAC(p *pass) error {
	philo, err := p.table(config.RolePhilosophie, ColMean)
	if err != nil {
		return err
	}
	eds, err := p.table(config.RoleEDS, ColMean, ColSpecialty)
	if err != nil {
		return err
	}
	grandOral, err := p.table(config.RoleGrandOral, ColMean)
	if err != nil {
		return err
	}
	components := []bacComponent{
		{label: "Philosophie", role: config.RolePhilosophie, t: philo},
		{label: "EDS", role: config.RoleEDS, t: eds},
		{label: "Grand Oral", role: config.RoleGrandOral, t: grandOral},
	}

	summary := comparisonChart("moyennes", "Moyenne par épreuve", bacMax)
	for _, c := range components {
		rows, err := p.comparisonRows(c.role, c.t, subject{Column: ColMean, Label: c.label, Max: bacMax})
		if err != nil {
			return err
		}
		summary.Rows = append(summary.Rows, rows...)
	}
	p.page.Charts = append(p.page.Charts, summary)

	specs, err := p.aggregate(config.RoleEDS, eds, p.cfg.CurrentYear, ColMean, ColSpecialty)
	if err != nil {
		return err
	}
	p.page.Charts = append(p.page.Charts,
		rankingChartBy("specialites", "Classement des spécialités", keySpecialty, bacMax, analysis.Rank(specs, "")))

	if err := p.bacGlobal(components); err != nil {
		return err
	}

	for _, c := range []bacComponent{components[0], components[2]} {
		ranked, err := p.schoolRanking(c.role, c.t, ColMean)
		if err != nil {
			return err
		}
		m, err := p.schoolMetric(c.label, c.role, c.t, ColMean, ranked)
		if err != nil {
			return err
		}
		p.page.Metrics = append(p.page.Metrics, m)
		p.page.Charts = append(p.page.Charts, rankingChart(chartID("classement", c.label), c.label, bacMax, ranked))
	}

	table, err := p.specialtyTable(eds)
	if err != nil {
		return err
	}
	p.page.Tables = append(p.page.Tables, table)
	return nil
}

// globalMeans outer-joins the per-school means of every component for one
// session and ranks the combined means.
func (p *pass) globalMeans(components []bacComponent, year int) ([]analysis.Ranked, error) {
	parts := make([]analysis.Component, 0, len(components))
	for _, c := range components {
		aggs, err := p.aggregate(c.role, c.t, year, ColMean, analysis.ColSchool)
		if err != nil {
			return nil, err
		}
		parts = append(parts, analysis.Component{Name: c.label, Aggs: aggs})
	}
	merged := analysis.MergeComponents(parts)
	return analysis.Rank(analysis.MergedAggregates(merged, year), p.page.Highlight), nil
}

func (p *pass) bacGlobal(components []bacComponent) error {
	cur, err := p.globalMeans(components, p.cfg.CurrentYear)
	if err != nil {
		return err
	}
	prior, err := p.globalMeans(components, p.cfg.PriorYear)
	if err != nil {
		return err
	}
	p.page.Charts = append(p.page.Charts, rankingChart("classement-global",
		"Classement des moyennes globales (EDS, GO, Philo) par établissement", bacMax, cur))

	a, _ := analysis.Find(analysis.Unrank(cur), p.page.Highlight)
	b, _ := analysis.Find(analysis.Unrank(prior), p.page.Highlight)
	c := analysis.Compare(p.page.Highlight, a.Mean, b.Mean, p.policy)
	p.page.Metrics = append(p.page.Metrics, render.Metric{
		Label:        "Moyenne globale",
		Value:        c.Current,
		Prior:        c.Prior,
		VariationPct: c.VariationPct,
		Rank:         analysis.RankOf(cur, p.page.Highlight),
		Of:           len(cur),
	})
	return nil
}

// specialtyTable lists, for every specialty the highlighted school sat in the
// current session, its mean, its variation and its rank among the schools
// offering that specialty.
func (p *pass) specialtyTable(eds *analysis.Table) (render.Table, error) {
	table := render.Table{
		Title:   "Spécialités",
		Columns: []string{"Spécialité", "Moyenne", "Variation (%)", "Rang"},
	}
	cur, err := p.aggregate(config.RoleEDS, eds, p.cfg.CurrentYear, ColMean, analysis.ColSchool, ColSpecialty)
	if err != nil {
		return table, err
	}
	prior, err := p.aggregate(config.RoleEDS, eds, p.cfg.PriorYear, ColMean, analysis.ColSchool, ColSpecialty)
	if err != nil {
		return table, err
	}

	for _, a := range cur {
		if a.Keys[0] != p.page.Highlight {
			continue
		}
		spec := a.Keys[1]
		b, _ := analysis.FindKeys(prior, a.Keys...)
		c := analysis.Compare(p.page.Highlight, a.Mean, b.Mean, p.policy)

		var peers []analysis.Aggregate
		for _, o := range cur {
			if o.Keys[1] == spec {
				peers = append(peers, analysis.Aggregate{Key: o.Keys[0], Year: o.Year, Mean: o.Mean, Count: o.Count})
			}
		}
		rank := ""
		if r := analysis.RankOf(analysis.Rank(peers, p.page.Highlight), p.page.Highlight); r > 0 {
			rank = strconv.Itoa(r)
		}
		table.Rows = append(table.Rows, []string{
			spec,
			render.FormatValue(c.Current),
			render.FormatVariation(c.VariationPct),
			rank,
		})
	}
	if len(table.Rows) == 0 {
		p.page.Notes = append(p.page.Notes, "Aucune spécialité pour "+p.page.Highlight+" en "+strconv.Itoa(p.cfg.CurrentYear)+".")
	}
	return table, nil
}
