package analysis

import (
	"fmt"
	"slices"
	"strings"

	"github.com/montanaflynn/stats"
	"github.com/volatiletech/null/v8"
)

// FilterYear returns the rows whose session equals year, preserving row order
// and columns. A table without a session column yields an empty result.
func FilterYear(t *Table, year int) *Table {
	out := t.derive(nil)
	out.Year = year
	j, ok := t.Index(ColSession)
	if !ok {
		return out
	}
	want := float64(year)
	for _, row := range t.Rows {
		if n := row[j].Num; n.Valid && n.Float64 == want {
			out.Rows = append(out.Rows, row)
		}
	}
	return out
}

// KeySep joins the group values of a multi-column Aggregate.Key. It is a
// control character so no spreadsheet value can contain it.
const KeySep = "\x1f"

// Aggregate is the mean of one value column for one group.
type Aggregate struct {
	Key  string   `json:"key" yaml:"key"`
	Keys []string `json:"keys,omitempty" yaml:"keys,omitempty"`
	// Year is 0 when the source table was not scoped to a session.
	Year  int          `json:"year,omitempty" yaml:"year,omitempty"`
	Mean  null.Float64 `json:"mean" yaml:"mean"`
	Count int          `json:"count" yaml:"count"`
}

// GroupMean computes the mean of value per distinct combination of the by
// columns, ignoring missing values. Groups come out in first-appearance order.
// With no by columns it returns a single overall aggregate with an empty key.
func GroupMean(t *Table, value string, by ...string) ([]Aggregate, error) {
	vi, err := t.mustIndex(value)
	if err != nil {
		return nil, err
	}
	byIdx := make([]int, len(by))
	for k, name := range by {
		if byIdx[k], err = t.mustIndex(name); err != nil {
			return nil, err
		}
	}

	type acc struct {
		keys []string
		vals []float64
	}
	var order []string
	groups := map[string]*acc{}
	if len(by) == 0 {
		order = append(order, "")
		groups[""] = &acc{}
	}
	for _, row := range t.Rows {
		keys := make([]string, len(byIdx))
		for k, j := range byIdx {
			keys[k] = row[j].Text
		}
		key := strings.Join(keys, KeySep)
		g := groups[key]
		if g == nil {
			g = &acc{keys: keys}
			groups[key] = g
			order = append(order, key)
		}
		if n := row[vi].Num; n.Valid {
			g.vals = append(g.vals, n.Float64)
		}
	}

	out := make([]Aggregate, 0, len(order))
	for _, key := range order {
		g := groups[key]
		out = append(out, Aggregate{
			Key:   key,
			Keys:  g.keys,
			Year:  t.Year,
			Mean:  meanOf(g.vals),
			Count: len(g.vals),
		})
	}
	return out, nil
}

// Mean is the overall mean of a column, invalid when no value is present.
func Mean(t *Table, value string) (null.Float64, error) {
	aggs, err := GroupMean(t, value)
	if err != nil {
		return null.Float64{}, err
	}
	return aggs[0].Mean, nil
}

// SchoolMeans is GroupMean keyed by school.
func SchoolMeans(t *Table, value string) ([]Aggregate, error) {
	aggs, err := GroupMean(t, value, ColSchool)
	if err != nil {
		return nil, fmt.Errorf("school means of %s: %w", value, err)
	}
	return aggs, nil
}

// FindKeys returns the aggregate whose group values equal keys.
func FindKeys(aggs []Aggregate, keys ...string) (Aggregate, bool) {
	for _, a := range aggs {
		if slices.Equal(a.Keys, keys) {
			return a, true
		}
	}
	return Aggregate{}, false
}

// Find returns the aggregate with the given key.
func Find(aggs []Aggregate, key string) (Aggregate, bool) {
	for _, a := range aggs {
		if a.Key == key {
			return a, true
		}
	}
	return Aggregate{}, false
}

func meanOf(vals []float64) null.Float64 {
	if len(vals) == 0 {
		return null.Float64{}
	}
	m, err := stats.Mean(vals)
	if err != nil {
		return null.Float64{}
	}
	return null.Float64From(m)
}
