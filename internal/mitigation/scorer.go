// Package mitigation is the bias mitigation engine: it scores disparity,
// plans and synthesizes rebalanced candidates, selects among them and
// iterates until the composite score stops improving.
package mitigation

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"biasclean/domain/dataset"
	"biasclean/domain/fairness"
	"biasclean/internal/stats"
)

// ScoreResult is the scorer output for one dataset
type ScoreResult struct {
	Scores        []fairness.DisparityScore
	Composite     float64
	Attributes    []fairness.ProtectedAttribute
	PositiveLabel string
	Warnings      []string
}

// Vector returns the disparity ratio of every attribute that was not skipped
func (r ScoreResult) Vector() fairness.ScoreVector {
	v := make(fairness.ScoreVector, len(r.Scores))
	for _, s := range r.Scores {
		if !s.Skipped {
			v[s.Attribute] = s.DisparityRatio
		}
	}
	return v
}

// Active lists the attributes that count towards the composite
func (r ScoreResult) Active() []fairness.DisparityScore {
	var out []fairness.DisparityScore
	for _, s := range r.Scores {
		if s.Active() {
			out = append(out, s)
		}
	}
	return out
}

// Scorer measures per-attribute outcome disparity. It is pure.
type Scorer struct {
	Alpha         float64
	MinExpected   float64
	PositiveLabel string
}

// NewScorer builds a scorer from the run config
func NewScorer(cfg fairness.RunConfig) *Scorer {
	return &Scorer{
		Alpha:         cfg.Alpha,
		MinExpected:   cfg.MinExpectedCount,
		PositiveLabel: cfg.PositiveOutcome,
	}
}

// ResolvePositiveLabel picks the outcome label counted as positive:
// the configured label, else "1", else "true"/"yes", else the
// lexicographically last observed label.
func ResolvePositiveLabel(ds *dataset.Dataset, outcomeColumn, configured string) string {
	if configured != "" {
		return configured
	}
	seen := make(map[string]bool)
	for _, l := range ds.Labels(outcomeColumn) {
		if l != "" {
			seen[l] = true
		}
	}
	if seen["1"] {
		return "1"
	}
	labels := make([]string, 0, len(seen))
	for l := range seen {
		if strings.EqualFold(l, "true") || strings.EqualFold(l, "yes") {
			return l
		}
		labels = append(labels, l)
	}
	if len(labels) == 0 {
		return "1"
	}
	sort.Strings(labels)
	return labels[len(labels)-1]
}

// Score computes one DisparityScore per weight-table attribute
func (s *Scorer) Score(ds *dataset.Dataset, outcomeColumn string, weights fairness.WeightTable) ScoreResult {
	positive := s.PositiveLabel
	if positive == "" {
		positive = ResolvePositiveLabel(ds, outcomeColumn, "")
	}
	result := ScoreResult{PositiveLabel: positive}
	outcomes := ds.Labels(outcomeColumn)

	for _, entry := range weights.Entries {
		score, attr := s.scoreAttribute(ds, entry, outcomes, positive)
		if score.Warning != "" {
			result.Warnings = append(result.Warnings, score.Warning)
		}
		if score.Active() {
			result.Composite += score.Contribution
		}
		result.Scores = append(result.Scores, score)
		if !score.Skipped {
			result.Attributes = append(result.Attributes, attr)
		}
	}
	return result
}

func (s *Scorer) scoreAttribute(ds *dataset.Dataset, entry fairness.AttributeWeight, outcomes []string, positive string) (fairness.DisparityScore, fairness.ProtectedAttribute) {
	score := fairness.DisparityScore{
		Attribute: entry.Attribute,
		Weight:    entry.Weight,
		Test:      fairness.TestNone,
		PValue:    1,
		RateRatio: 1,
	}
	attr := fairness.ProtectedAttribute{Name: entry.Attribute, Weight: entry.Weight}

	if !ds.HasColumn(entry.Attribute) {
		score.Skipped = true
		score.Warning = fmt.Sprintf("protected attribute %q not found in dataset; skipped", entry.Attribute)
		return score, attr
	}

	categories := s.tabulate(ds.Labels(entry.Attribute), outcomes, positive)
	if len(categories) == 0 {
		score.Skipped = true
		score.Warning = fmt.Sprintf("protected attribute %q has no usable values; skipped", entry.Attribute)
		return score, attr
	}

	total, positives := 0, 0
	minRate, maxRate := math.Inf(1), math.Inf(-1)
	counts := make([]int, len(categories))
	attr.Rates = make(map[string]float64, len(categories))
	for i, c := range categories {
		total += c.Count
		positives += c.Positives
		counts[i] = c.Count
		minRate = math.Min(minRate, c.Rate)
		maxRate = math.Max(maxRate, c.Rate)
		attr.Categories = append(attr.Categories, c.Category)
		attr.Rates[c.Category] = c.Rate
	}
	for i := range categories {
		categories[i].Share = float64(categories[i].Count) / float64(total)
	}

	score.Categories = categories
	score.OverRepresented = fairness.DetectOverRepresented(categories)
	score.DisparityRatio = maxRate - minRate
	if maxRate > 0 {
		score.RateRatio = minRate / maxRate
	}
	score.Representation = stats.RepresentationDisparity(counts)

	switch {
	case len(categories) == 1:
		score.Indeterminate = true
		score.Warning = fmt.Sprintf("protected attribute %q has a single observed category; indeterminate", entry.Attribute)
	case positives == 0 || positives == total:
		// constant outcome: no association is possible
	case len(categories) == 2:
		a, c := categories[0], categories[1]
		res := stats.FisherExact(a.Positives, a.Count-a.Positives, c.Positives, c.Count-c.Positives)
		score.Test = fairness.TestFisherExact
		score.Statistic = res.Statistic
		score.PValue = res.PValue
	default:
		table := make([][]int, len(categories))
		for i, c := range categories {
			table[i] = []int{c.Positives, c.Count - c.Positives}
		}
		res := stats.ChiSquareIndependence(table)
		score.Test = fairness.TestChiSquare
		score.Statistic = res.Statistic
		if res.MinExpected < s.MinExpected {
			score.Indeterminate = true
			score.Warning = fmt.Sprintf("protected attribute %q: expected cell count %.2f below %.0f; indeterminate", entry.Attribute, res.MinExpected, s.MinExpected)
		} else {
			score.PValue = res.PValue
		}
	}

	if score.Active() {
		score.Contribution = score.Weight * score.DisparityRatio
		score.RequiresMitigation = score.PValue < s.Alpha
	}
	return score, attr
}

// tabulate counts outcomes per category; records missing either value are ignored
func (s *Scorer) tabulate(labels, outcomes []string, positive string) []fairness.CategoryStat {
	byCategory := make(map[string]*fairness.CategoryStat)
	for i, category := range labels {
		if category == "" || outcomes[i] == "" {
			continue
		}
		cs, ok := byCategory[category]
		if !ok {
			cs = &fairness.CategoryStat{Category: category}
			byCategory[category] = cs
		}
		cs.Count++
		if outcomes[i] == positive {
			cs.Positives++
		}
	}

	out := make([]fairness.CategoryStat, 0, len(byCategory))
	for _, cs := range byCategory {
		cs.Rate = float64(cs.Positives) / float64(cs.Count)
		out = append(out, *cs)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out
}
