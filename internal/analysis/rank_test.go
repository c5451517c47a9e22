package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"
)

func aggs(pairs ...any) []Aggregate {
	var out []Aggregate
	for i := 0; i < len(pairs); i += 2 {
		a := Aggregate{Key: pairs[i].(string), Year: 2024}
		if v, ok := pairs[i+1].(float64); ok {
			a.Mean = null.Float64From(v)
			a.Count = 1
		}
		out = append(out, a)
	}
	return out
}

func TestRankTiesAreStableAndDense(t *testing.T) {
	ranked := Rank(aggs("A", 14.0, "B", 16.0, "C", 16.0), "B")
	require.Len(t, ranked, 3)

	assert.Equal(t, []string{"B", "C", "A"}, []string{ranked[0].Key, ranked[1].Key, ranked[2].Key})
	assert.Equal(t, []int{1, 2, 3}, []int{ranked[0].Rank, ranked[1].Rank, ranked[2].Rank})

	highlighted := 0
	for _, r := range ranked {
		if r.Highlighted {
			highlighted++
			assert.Equal(t, "B", r.Key)
		}
	}
	assert.Equal(t, 1, highlighted)
}

func TestRankEqualMeansGetConsecutiveRanks(t *testing.T) {
	ranked := Rank(aggs("X", 18.0, "Y", 18.0, "Z", 15.0), "")
	assert.Equal(t, []int{1, 2, 3}, []int{ranked[0].Rank, ranked[1].Rank, ranked[2].Rank})
	for _, r := range ranked {
		assert.False(t, r.Highlighted)
	}
}

func TestRankIsIdempotent(t *testing.T) {
	first := Rank(aggs("A", 11.0, "B", 13.0, "C", 13.0, "D", 9.5), "C")
	second := Rank(Unrank(first), "C")
	assert.Equal(t, first, second)
}

func TestRankOmitsNoDataAndUnknownHighlight(t *testing.T) {
	ranked := Rank(aggs("A", 10.0, "B", nil, "C", 12.0), "Nowhere")
	require.Len(t, ranked, 2)
	assert.Equal(t, "C", ranked[0].Key)
	assert.Equal(t, 0, RankOf(ranked, "B"))
	assert.Equal(t, 2, RankOf(ranked, "A"))
	for _, r := range ranked {
		assert.False(t, r.Highlighted)
	}
}

func TestRankEmpty(t *testing.T) {
	assert.Empty(t, Rank(nil, "A"))
}
