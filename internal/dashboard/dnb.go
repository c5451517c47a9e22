package dashboard

import (
	"fmt"

	"github.com/MathieuBartozzi/resultats-efe-maroc-new-app/internal/analysis"
	"github.com/MathieuBartozzi/resultats-efe-maroc-new-app/internal/config"
)

// DNBSubjects are the score columns of the DNB tab, in display order.
var DNBSubjects = []string{
	"Français (sur 100)",
	"Hist. Géo.EMC (sur 50)",
	"Mathématiques (sur 100)",
	"Sciences (sur 50)",
	"SO de projet (sur 100)",
	"Socle Commun (sur 400)",
	"DNL Hist. Géo. arabe (sur 50)",
	"Langue de la section (sur 50)",
}

// topPairs is how many of the most correlated subject pairs get a scatter chart.
const topPairs = 2

func buildDNB(p *pass) error {
	t, err := p.table(config.RoleDNB, DNBSubjects...)
	if err != nil {
		return err
	}
	subjects := make([]subject, len(DNBSubjects))
	for i, col := range DNBSubjects {
		subjects[i] = subjectOf(t, col)
	}

	for _, group := range byScale(subjects) {
		title := fmt.Sprintf("Épreuves finales sur %g", group[0].Max)
		if len(group) == 1 {
			title = group[0].Label
		}
		chart, err := p.yearComparison(chartID("moyennes", fmt.Sprintf("sur %g", group[0].Max)), title, group[0].Max, config.RoleDNB, t, group)
		if err != nil {
			return err
		}
		p.page.Charts = append(p.page.Charts, chart)
	}

	for _, s := range subjects {
		ranked, err := p.schoolRanking(config.RoleDNB, t, s.Column)
		if err != nil {
			return err
		}
		m, err := p.schoolMetric(s.Column, config.RoleDNB, t, s.Column, ranked)
		if err != nil {
			return err
		}
		p.page.Metrics = append(p.page.Metrics, m)
		p.page.Charts = append(p.page.Charts, rankingChart(chartID("classement", s.Label), s.Column, s.Max, ranked))
	}

	cm, err := analysis.Correlate(analysis.FilterYear(t, p.cfg.CurrentYear), DNBSubjects)
	if err != nil {
		return err
	}
	labels := make([]string, len(subjects))
	bySubject := make(map[string]subject, len(subjects))
	for i, s := range subjects {
		labels[i] = s.Label
		bySubject[s.Column] = s
	}
	p.page.Charts = append(p.page.Charts, heatmapChart("correlations", "Matrice de corrélation entre les épreuves", cm, labels))

	pairs := cm.TopPairs(topPairs)
	if len(pairs) == 0 {
		p.page.Notes = append(p.page.Notes, "Pas assez de données pour calculer les corrélations.")
	}
	for _, pc := range pairs {
		a, b := bySubject[pc.A], bySubject[pc.B]
		chart, err := p.scatterChart(chartID("correlation", a.Label+" "+b.Label),
			fmt.Sprintf("%s vs %s (r = %.2f)", pc.A, pc.B, pc.R), config.RoleDNB, t, a, b)
		if err != nil {
			return err
		}
		p.page.Charts = append(p.page.Charts, chart)
	}
	return nil
}

// byScale buckets subjects by their maximum score, keeping first-appearance order.
func byScale(subjects []subject) [][]subject {
	var order []float64
	groups := map[float64][]subject{}
	for _, s := range subjects {
		if _, ok := groups[s.Max]; !ok {
			order = append(order, s.Max)
		}
		groups[s.Max] = append(groups[s.Max], s)
	}
	out := make([][]subject, len(order))
	for i, m := range order {
		out[i] = groups[m]
	}
	return out
}
