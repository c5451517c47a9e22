package analysis

import "github.com/volatiletech/null/v8"

// Component is one exam component's per-school aggregates.
type Component struct {
	Name string
	Aggs []Aggregate
}

// Merged is one school's row of an outer join across components.
type Merged struct {
	School string `json:"school" yaml:"school"`
	// Values follows the component order given to MergeComponents.
	Values   []null.Float64 `json:"values" yaml:"values"`
	Combined null.Float64   `json:"combined" yaml:"combined"`
}

// MergeComponents outer-joins components on school. Every school present in
// any component gets a row; absent components stay missing and are skipped by
// the combined mean rather than counted as zero.
func MergeComponents(components []Component) []Merged {
	var order []string
	rows := map[string]*Merged{}
	for ci, c := range components {
		for _, a := range c.Aggs {
			m := rows[a.Key]
			if m == nil {
				m = &Merged{School: a.Key, Values: make([]null.Float64, len(components))}
				rows[a.Key] = m
				order = append(order, a.Key)
			}
			if a.Mean.Valid {
				m.Values[ci] = a.Mean
			}
		}
	}

	out := make([]Merged, 0, len(order))
	for _, key := range order {
		m := rows[key]
		var vals []float64
		for _, v := range m.Values {
			if v.Valid {
				vals = append(vals, v.Float64)
			}
		}
		m.Combined = meanOf(vals)
		out = append(out, *m)
	}
	return out
}

// MergedAggregates exposes combined means as aggregates so they can be ranked.
func MergedAggregates(merged []Merged, year int) []Aggregate {
	out := make([]Aggregate, len(merged))
	for i, m := range merged {
		count := 0
		for _, v := range m.Values {
			if v.Valid {
				count++
			}
		}
		out[i] = Aggregate{Key: m.School, Keys: []string{m.School}, Year: year, Mean: m.Combined, Count: count}
	}
	return out
}
