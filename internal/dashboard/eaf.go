package dashboard

import (
	"github.com/MathieuBartozzi/resultats-efe-maroc-new-app/internal/config"
)

// EAF tab columns.
const (
	ColWritten = "écrit"
	ColOral    = "oral"
)

const eafMax = 20

func buildEAF(p *pass) error {
	t, err := p.table(config.RoleEAF, ColWritten, ColOral)
	if err != nil {
		return err
	}
	written := subject{Column: ColWritten, Label: "Écrit", Max: eafMax}
	oral := subject{Column: ColOral, Label: "Oral", Max: eafMax}

	chart, err := p.yearComparison("moyennes", "Épreuves anticipées sur 20", eafMax, config.RoleEAF, t, []subject{written, oral})
	if err != nil {
		return err
	}
	p.page.Charts = append(p.page.Charts, chart)

	for _, s := range []subject{written, oral} {
		ranked, err := p.schoolRanking(config.RoleEAF, t, s.Column)
		if err != nil {
			return err
		}
		m, err := p.schoolMetric(s.Label, config.RoleEAF, t, s.Column, ranked)
		if err != nil {
			return err
		}
		p.page.Metrics = append(p.page.Metrics, m)
		p.page.Charts = append(p.page.Charts, rankingChart(chartID("classement", s.Label), s.Label, eafMax, ranked))
	}

	scatter, err := p.scatterChart("ecrit-oral", "Écrit vs Oral", config.RoleEAF, t, written, oral)
	if err != nil {
		return err
	}
	p.page.Charts = append(p.page.Charts, scatter)
	return nil
}
