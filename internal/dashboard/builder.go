// Package dashboard assembles the BAC, DNB and EAF pages.
//
// Every Build call is one render pass: fetch the page's tabs (memoized by the
// source), filter them by session, aggregate, rank, compare and correlate, and
// return the chart descriptions. Fetched tables are shared and never modified.
package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/MathieuBartozzi/resultats-efe-maroc-new-app/internal/analysis"
	"github.com/MathieuBartozzi/resultats-efe-maroc-new-app/internal/config"
	"github.com/MathieuBartozzi/resultats-efe-maroc-new-app/internal/memo"
	"github.com/MathieuBartozzi/resultats-efe-maroc-new-app/internal/metrics"
	"github.com/MathieuBartozzi/resultats-efe-maroc-new-app/internal/render"
	"github.com/MathieuBartozzi/resultats-efe-maroc-new-app/internal/source"
)

// Page identifiers.
const (
	PageBAC = "bac"
	PageDNB = "dnb"
	PageEAF = "eaf"
)

// Pages lists the page identifiers in menu order.
var Pages = []string{PageBAC, PageDNB, PageEAF}

// UnknownPageError is returned for a page identifier outside Pages.
type UnknownPageError struct{ Page string }

func (e *UnknownPageError) Error() string {
	return fmt.Sprintf("unknown page %q (use %s)", e.Page, strings.Join(Pages, ", "))
}

type pageDef struct {
	title   string
	primary string
	build   func(*pass) error
}

var pageDefs = map[string]pageDef{
	PageBAC: {title: "Résultats Baccalauréat - EFE Maroc", primary: config.RolePhilosophie, build: buildBAC},
	PageDNB: {title: "Résultats DNB - EFE Maroc", primary: config.RoleDNB, build: buildDNB},
	PageEAF: {title: "Résultats des épreuves anticipées de français (EAF) - EFE Maroc", primary: config.RoleEAF, build: buildEAF},
}

// aggKey identifies one memoized aggregation.
type aggKey struct {
	Dataset string
	Tab     string
	Year    int
	Metric  string
	By      string
}

// Resetter is implemented by sources that cache, such as source.Memo.
type Resetter interface {
	Reset()
}

// Builder builds pages from a data source.
type Builder struct {
	src     source.Source
	cfg     *config.Global
	dataset string
	policy  analysis.VariationPolicy
	aggs    *memo.Cache[aggKey, []analysis.Aggregate]
	log     *slog.Logger
	now     func() time.Time
}

// NewBuilder returns a Builder reading dataset through src.
func NewBuilder(src source.Source, dataset string, cfg *config.Global, logger *slog.Logger) (*Builder, error) {
	if src == nil {
		return nil, fmt.Errorf("dashboard: nil source")
	}
	if cfg == nil {
		return nil, fmt.Errorf("dashboard: nil config")
	}
	policy, err := analysis.ParseVariationPolicy(cfg.VariationPolicy)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		src:     src,
		cfg:     cfg,
		dataset: dataset,
		policy:  policy,
		aggs:    memo.New[aggKey, []analysis.Aggregate]("aggregates"),
		log:     logger.With("component", "dashboard"),
		now:     time.Now,
	}, nil
}

// Reset drops memoized aggregates, and cached tables when the source caches.
func (b *Builder) Reset() {
	b.aggs.Reset()
	if r, ok := b.src.(Resetter); ok {
		r.Reset()
	}
}

// Build runs one render pass for page with the requested highlighted school.
func (b *Builder) Build(ctx context.Context, page, highlight string) (*render.Page, error) {
	def, ok := pageDefs[page]
	if !ok {
		return nil, &UnknownPageError{Page: page}
	}
	start := time.Now()
	passID := uuid.NewString()
	p := &pass{
		Builder: b,
		ctx:     ctx,
		log:     b.log.With("page", page, "pass_id", passID),
		page: &render.Page{
			ID:          page,
			Title:       def.title,
			Year:        b.cfg.CurrentYear,
			PriorYear:   b.cfg.PriorYear,
			PassID:      passID,
			GeneratedAt: b.now(),
		},
	}

	err := p.resolveHighlight(def.primary, highlight)
	if err == nil {
		err = def.build(p)
	}
	metrics.ObservePass(page, time.Since(start), err)
	if err != nil {
		p.log.Debug("render pass failed", "err", err)
		return nil, fmt.Errorf("build %s page: %w", page, err)
	}
	p.log.Debug("render pass done", "highlight", p.page.Highlight, "charts", len(p.page.Charts), "elapsed", time.Since(start))
	return p.page, nil
}

// Schools lists the highlight candidates of a page, in French collation order.
func (b *Builder) Schools(ctx context.Context, page string) ([]string, error) {
	def, ok := pageDefs[page]
	if !ok {
		return nil, &UnknownPageError{Page: page}
	}
	p := &pass{Builder: b, ctx: ctx, log: b.log}
	return p.schools(def.primary)
}

// pass carries the state of one render pass.
type pass struct {
	*Builder
	ctx  context.Context
	log  *slog.Logger
	page *render.Page
}

// table fetches a tab by role and checks its required columns.
func (p *pass) table(role string, required ...string) (*analysis.Table, error) {
	t, err := p.src.Fetch(p.ctx, p.dataset, p.cfg.Tab(role))
	if err != nil {
		return nil, err
	}
	cols := append([]string{analysis.ColSchool, analysis.ColSession}, required...)
	if err := t.Require(cols...); err != nil {
		return nil, fmt.Errorf("tab %s: %w", role, err)
	}
	return t, nil
}

// aggregate returns the memoized mean of metric for one session, grouped by
// the given columns (none for the overall mean).
func (p *pass) aggregate(role string, t *analysis.Table, year int, metric string, by ...string) ([]analysis.Aggregate, error) {
	key := aggKey{Dataset: p.dataset, Tab: p.cfg.Tab(role), Year: year, Metric: metric, By: strings.Join(by, "\x1f")}
	return p.aggs.Do(key, func() ([]analysis.Aggregate, error) {
		return analysis.GroupMean(analysis.FilterYear(t, year), metric, by...)
	})
}

func (p *pass) schools(role string) ([]string, error) {
	t, err := p.table(role)
	if err != nil {
		return nil, err
	}
	names, err := t.Distinct(analysis.ColSchool)
	if err != nil {
		return nil, err
	}
	sortFrench(names)
	return names, nil
}

// resolveHighlight validates the requested school against the page's primary
// tab. An empty or unknown request falls back to the first school.
func (p *pass) resolveHighlight(role, requested string) error {
	names, err := p.schools(role)
	if err != nil {
		return err
	}
	p.page.Schools = names
	requested = norm.NFC.String(strings.TrimSpace(requested))
	for _, n := range names {
		if norm.NFC.String(n) == requested {
			p.page.Highlight = n
			return nil
		}
	}
	if len(names) == 0 {
		p.page.Notes = append(p.page.Notes, "Aucun établissement dans les données.")
		return nil
	}
	p.page.Highlight = names[0]
	if requested == "" {
		p.page.Notes = append(p.page.Notes, fmt.Sprintf("Aucun établissement choisi : %s est mis en avant.", names[0]))
	} else {
		p.page.Notes = append(p.page.Notes, fmt.Sprintf("%q n'apparaît pas dans ces résultats : %s est mis en avant.", requested, names[0]))
	}
	return nil
}

func sortFrench(names []string) {
	// collate.Collator is not safe for concurrent use.
	c := collate.New(language.French)
	sort.SliceStable(names, func(i, j int) bool {
		return c.CompareString(names[i], names[j]) < 0
	})
}
