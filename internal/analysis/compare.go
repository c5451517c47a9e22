package analysis

import (
	"fmt"
	"strings"

	"github.com/volatiletech/null/v8"
)

// VariationPolicy decides what a variation reports when the prior year has
// no usable baseline.
type VariationPolicy int

const (
	// VariationZero reports 0% when the prior value is missing or zero.
	VariationZero VariationPolicy = iota
	// VariationNA reports a missing variation instead.
	VariationNA
)

func (p VariationPolicy) String() string {
	if p == VariationNA {
		return "na"
	}
	return "zero"
}

// ParseVariationPolicy accepts "zero" (or "") and "na".
func ParseVariationPolicy(s string) (VariationPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "zero":
		return VariationZero, nil
	case "na", "n/a":
		return VariationNA, nil
	default:
		return VariationZero, fmt.Errorf("unknown variation policy %q (use zero|na)", s)
	}
}

// Comparison holds an entity's value for two sessions and the change between them.
type Comparison struct {
	Entity       string       `json:"entity" yaml:"entity"`
	Current      null.Float64 `json:"current" yaml:"current"`
	Prior        null.Float64 `json:"prior" yaml:"prior"`
	VariationPct null.Float64 `json:"variation_pct" yaml:"variation_pct"`
}

// Compare computes the percentage change from prior to current. A missing
// current value leaves both current and variation missing.
func Compare(entity string, current, prior null.Float64, policy VariationPolicy) Comparison {
	c := Comparison{Entity: entity, Current: current, Prior: prior}
	if !current.Valid {
		return c
	}
	if !prior.Valid || prior.Float64 == 0 {
		if policy == VariationZero {
			c.VariationPct = null.Float64From(0)
		}
		return c
	}
	c.VariationPct = null.Float64From(VariationPct(current.Float64, prior.Float64))
	return c
}

// VariationPct is (current-prior)/prior*100, or 0 when prior is 0.
func VariationPct(current, prior float64) float64 {
	if prior == 0 {
		return 0
	}
	return (current - prior) / prior * 100
}
