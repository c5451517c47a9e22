package analysis

import "sort"

// Ranked is an aggregate placed in a ranking for one year and metric.
type Ranked struct {
	Aggregate   `yaml:",inline"`
	Rank        int  `json:"rank" yaml:"rank"`
	Highlighted bool `json:"highlighted" yaml:"highlighted"`
}

// Rank orders aggregates by mean, highest first, and numbers them 1..n.
// Equal means keep their input order and still get consecutive ranks.
// Aggregates without data are left out. The row whose key equals highlight
// is flagged; an unknown highlight flags nothing.
func Rank(aggs []Aggregate, highlight string) []Ranked {
	out := make([]Ranked, 0, len(aggs))
	for _, a := range aggs {
		if !a.Mean.Valid {
			continue
		}
		out = append(out, Ranked{Aggregate: a})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Mean.Float64 > out[j].Mean.Float64
	})
	for i := range out {
		out[i].Rank = i + 1
		out[i].Highlighted = highlight != "" && out[i].Key == highlight
	}
	return out
}

// Unrank strips ranking data, e.g. to rank again under another highlight.
func Unrank(ranked []Ranked) []Aggregate {
	out := make([]Aggregate, len(ranked))
	for i, r := range ranked {
		out[i] = r.Aggregate
	}
	return out
}

// RankOf returns the rank of key, or 0 when it is not ranked.
func RankOf(ranked []Ranked, key string) int {
	for _, r := range ranked {
		if r.Key == key {
			return r.Rank
		}
	}
	return 0
}
