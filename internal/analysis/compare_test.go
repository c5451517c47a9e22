package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"
)

func TestVariationPct(t *testing.T) {
	assert.InDelta(t, 50.0, VariationPct(15, 10), 1e-9)
	assert.Equal(t, 0.0, VariationPct(10, 0))
	assert.InDelta(t, -20.0, VariationPct(8, 10), 1e-9)
}

func TestCompareZeroPolicy(t *testing.T) {
	c := Compare("Lycée A", null.Float64From(15), null.Float64From(10), VariationZero)
	assert.InDelta(t, 50.0, c.VariationPct.Float64, 1e-9)

	c = Compare("Lycée A", null.Float64From(10), null.Float64From(0), VariationZero)
	require.True(t, c.VariationPct.Valid)
	assert.Equal(t, 0.0, c.VariationPct.Float64)

	c = Compare("Lycée A", null.Float64From(10), null.Float64{}, VariationZero)
	require.True(t, c.VariationPct.Valid)
	assert.Equal(t, 0.0, c.VariationPct.Float64)
}

func TestCompareNAPolicy(t *testing.T) {
	c := Compare("Lycée A", null.Float64From(10), null.Float64From(0), VariationNA)
	assert.False(t, c.VariationPct.Valid)

	c = Compare("Lycée A", null.Float64From(12), null.Float64From(10), VariationNA)
	assert.InDelta(t, 20.0, c.VariationPct.Float64, 1e-9)
}

func TestCompareMissingCurrentPropagates(t *testing.T) {
	for _, p := range []VariationPolicy{VariationZero, VariationNA} {
		c := Compare("Lycée A", null.Float64{}, null.Float64From(10), p)
		assert.False(t, c.Current.Valid)
		assert.False(t, c.VariationPct.Valid, p.String())
	}
}

func TestParseVariationPolicy(t *testing.T) {
	p, err := ParseVariationPolicy("")
	require.NoError(t, err)
	assert.Equal(t, VariationZero, p)

	p, err = ParseVariationPolicy(" NA ")
	require.NoError(t, err)
	assert.Equal(t, VariationNA, p)

	_, err = ParseVariationPolicy("nan")
	assert.Error(t, err)
}
