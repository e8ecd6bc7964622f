package fairness

import (
	"fmt"
	"math"
	"sort"

	"biasclean/domain/core"
)

// AttributeWeight pairs a protected attribute with its configured weight
type AttributeWeight struct {
	Attribute string  `json:"attribute" yaml:"attribute"`
	Weight    float64 `json:"weight" yaml:"weight"`
}

// WeightTable is a validated, name-ordered attribute weight mapping for one domain
type WeightTable struct {
	Domain  Domain            `json:"domain"`
	Entries []AttributeWeight `json:"entries"`
}

// NewWeightTable validates pairs against the domain's recognized attributes.
// Unknown names, duplicates, and weights outside [0,1] are rejected.
func NewWeightTable(domain Domain, pairs []AttributeWeight) (WeightTable, error) {
	if _, ok := domainWeights[domain]; !ok {
		return WeightTable{}, fmt.Errorf("%w: %q", core.ErrUnknownDomain, domain)
	}

	seen := make(map[string]bool, len(pairs))
	entries := make([]AttributeWeight, 0, len(pairs))
	for _, p := range pairs {
		if !domain.Recognizes(p.Attribute) {
			return WeightTable{}, fmt.Errorf("%w: %q in domain %s", core.ErrUnknownAttribute, p.Attribute, domain)
		}
		if seen[p.Attribute] {
			return WeightTable{}, fmt.Errorf("%w: %q", core.ErrDuplicateAttribute, p.Attribute)
		}
		if math.IsNaN(p.Weight) || p.Weight < 0 || p.Weight > 1 {
			return WeightTable{}, fmt.Errorf("%w: %s=%v", core.ErrInvalidWeight, p.Attribute, p.Weight)
		}
		seen[p.Attribute] = true
		entries = append(entries, p)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Attribute < entries[j].Attribute })
	return WeightTable{Domain: domain, Entries: entries}, nil
}

// WeightTableFromMap is a convenience for callers holding a plain map
func WeightTableFromMap(domain Domain, weights map[string]float64) (WeightTable, error) {
	pairs := make([]AttributeWeight, 0, len(weights))
	for name, w := range weights {
		pairs = append(pairs, AttributeWeight{Attribute: name, Weight: w})
	}
	return NewWeightTable(domain, pairs)
}

// Weight returns the configured weight for an attribute (0 when absent)
func (t WeightTable) Weight(attribute string) float64 {
	for _, e := range t.Entries {
		if e.Attribute == attribute {
			return e.Weight
		}
	}
	return 0
}

// Len returns the number of configured attributes
func (t WeightTable) Len() int { return len(t.Entries) }

// Total sums the configured weights
func (t WeightTable) Total() float64 {
	total := 0.0
	for _, e := range t.Entries {
		total += e.Weight
	}
	return total
}

// Authoritative resolves a table usable for scoring. A non-empty table whose
// weights are all zero falls back to uniform weights and is reported as not
// authoritative.
func (t WeightTable) Authoritative() (WeightTable, bool) {
	if len(t.Entries) == 0 || t.Total() > 0 {
		return t, true
	}
	uniform := 1.0 / float64(len(t.Entries))
	out := WeightTable{Domain: t.Domain, Entries: make([]AttributeWeight, len(t.Entries))}
	for i, e := range t.Entries {
		out.Entries[i] = AttributeWeight{Attribute: e.Attribute, Weight: uniform}
	}
	return out, false
}

// Map returns the table as attribute -> weight
func (t WeightTable) Map() map[string]float64 {
	out := make(map[string]float64, len(t.Entries))
	for _, e := range t.Entries {
		out[e.Attribute] = e.Weight
	}
	return out
}
