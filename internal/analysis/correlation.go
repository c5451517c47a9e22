package analysis

import (
	"math"
	"sort"

	"github.com/volatiletech/null/v8"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// PairCorr is the Pearson correlation between two columns.
type PairCorr struct {
	A string  `json:"a" yaml:"a"`
	B string  `json:"b" yaml:"b"`
	R float64 `json:"r" yaml:"r"`
	// N is the number of rows where both columns had a value.
	N int `json:"n" yaml:"n"`
}

// CorrMatrix is a symmetric Pearson correlation matrix over an ordered column list.
// Undefined coefficients (fewer than two complete rows, or a constant column) are NaN.
type CorrMatrix struct {
	Columns []string
	m       *mat.SymDense
	n       [][]int
}

// Correlate computes the pairwise-complete Pearson correlation of cols.
// Each unordered pair is computed once and stored symmetrically.
func Correlate(t *Table, cols []string) (*CorrMatrix, error) {
	idx := make([]int, len(cols))
	for k, c := range cols {
		i, err := t.mustIndex(c)
		if err != nil {
			return nil, err
		}
		idx[k] = i
	}
	cm := &CorrMatrix{Columns: append([]string(nil), cols...), n: make([][]int, len(cols))}
	for i := range cm.n {
		cm.n[i] = make([]int, len(cols))
	}
	if len(cols) == 0 {
		return cm, nil
	}
	cm.m = mat.NewSymDense(len(cols), nil)

	for i := range cols {
		var count int
		for _, row := range t.Rows {
			if row[idx[i]].Num.Valid {
				count++
			}
		}
		cm.n[i][i] = count
		if count >= 2 {
			cm.m.SetSym(i, i, 1)
		} else {
			cm.m.SetSym(i, i, math.NaN())
		}
		for j := i + 1; j < len(cols); j++ {
			x, y := completePairs(t.Rows, idx[i], idx[j])
			cm.n[i][j], cm.n[j][i] = len(x), len(x)
			cm.m.SetSym(i, j, pearson(x, y))
		}
	}
	return cm, nil
}

func completePairs(rows [][]Cell, a, b int) (x, y []float64) {
	for _, row := range rows {
		va, vb := row[a].Num, row[b].Num
		if !va.Valid || !vb.Valid {
			continue
		}
		x = append(x, va.Float64)
		y = append(y, vb.Float64)
	}
	return x, y
}

func pearson(x, y []float64) float64 {
	if len(x) < 2 {
		return math.NaN()
	}
	r := stat.Correlation(x, y, nil)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return math.NaN()
	}
	return math.Max(-1, math.Min(1, r))
}

// Size returns the number of columns.
func (c *CorrMatrix) Size() int { return len(c.Columns) }

// At returns the coefficient for columns i and j.
func (c *CorrMatrix) At(i, j int) float64 { return c.m.At(i, j) }

// Observations returns how many complete rows backed the coefficient at i, j.
func (c *CorrMatrix) Observations(i, j int) int { return c.n[i][j] }

// Grid returns the matrix as rows of nullable values, NaN mapped to missing.
func (c *CorrMatrix) Grid() [][]null.Float64 {
	out := make([][]null.Float64, c.Size())
	for i := range out {
		out[i] = make([]null.Float64, c.Size())
		for j := range out[i] {
			if v := c.At(i, j); !math.IsNaN(v) {
				out[i][j] = null.Float64From(v)
			}
		}
	}
	return out
}

// TopPairs returns up to k off-diagonal pairs (i<j) with the largest |r|.
// Undefined coefficients are skipped; ties keep (i, j) iteration order.
func (c *CorrMatrix) TopPairs(k int) []PairCorr {
	var pairs []PairCorr
	for i := 0; i < c.Size(); i++ {
		for j := i + 1; j < c.Size(); j++ {
			r := c.At(i, j)
			if math.IsNaN(r) {
				continue
			}
			pairs = append(pairs, PairCorr{A: c.Columns[i], B: c.Columns[j], R: r, N: c.n[i][j]})
		}
	}
	sort.SliceStable(pairs, func(a, b int) bool {
		return math.Abs(pairs[a].R) > math.Abs(pairs[b].R)
	})
	if k >= 0 && len(pairs) > k {
		pairs = pairs[:k]
	}
	return pairs
}
