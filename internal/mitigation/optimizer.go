package mitigation

import (
	"math"
	"sort"

	"biasclean/domain/core"
	"biasclean/domain/fairness"
)

// scoreTolerance absorbs float noise when comparing disparity ratios
const scoreTolerance = 1e-12

// Evaluation is a scored dataset competing in one iteration. The baseline
// evaluation has a nil Candidate.
type Evaluation struct {
	Candidate *Candidate
	Score     ScoreResult
	Vector    fairness.ScoreVector
	Records   int
}

// NewEvaluation wraps a score result; cand is nil for the baseline
func NewEvaluation(cand *Candidate, score ScoreResult, records int) Evaluation {
	return Evaluation{Candidate: cand, Score: score, Vector: score.Vector(), Records: records}
}

// ID returns the candidate ID, or core.BaselineCandidateID
func (e Evaluation) ID() core.CandidateID {
	if e.Candidate == nil {
		return core.BaselineCandidateID
	}
	return e.Candidate.ID
}

// Strategy returns the strategy name, or "baseline"
func (e Evaluation) Strategy() string {
	if e.Candidate == nil {
		return string(core.BaselineCandidateID)
	}
	return e.Candidate.Strategy.Name
}

func (e Evaluation) modifications() int {
	if e.Candidate == nil {
		return 0
	}
	return e.Candidate.Modifications()
}

func (e Evaluation) order() int {
	if e.Candidate == nil {
		return -1
	}
	return e.Candidate.Order
}

// Selection is the optimizer's verdict for one iteration
type Selection struct {
	Chosen                Evaluation
	IsBaseline            bool
	NonImproving          bool
	UnavoidableRegression bool
	// RegressionFlags lists objectives on which the chosen candidate is worse than the baseline
	RegressionFlags []string
	Summaries       []fairness.CandidateSummary
}

// Selector picks the dataset to carry into the next iteration
type Selector interface {
	Select(baseline Evaluation, candidates []Evaluation) Selection
}

// NewSelector returns the selector named by cfg.Objective
func NewSelector(cfg fairness.RunConfig) Selector {
	if cfg.Objective == fairness.ObjectiveSingle {
		return &SingleObjectiveSelector{Penalty: cfg.RegressionPenalty}
	}
	return &ParetoSelector{Penalty: cfg.RegressionPenalty, HighPriority: cfg.HighPriorityThreshold}
}

// objective is an attribute the optimizer compares on
type objective struct {
	attribute string
	weight    float64
}

// objectives are the attributes active at the iteration baseline
func objectives(baseline Evaluation) []objective {
	var out []objective
	for _, s := range baseline.Score.Scores {
		if s.Active() {
			out = append(out, objective{attribute: s.Attribute, weight: s.Weight})
		}
	}
	return out
}

// improvementScore is Σ w × (baseline − candidate) with regressions
// multiplied by penalty
func improvementScore(baseline, candidate fairness.ScoreVector, objs []objective, penalty float64) float64 {
	total := 0.0
	for _, o := range objs {
		delta := baseline[o.attribute] - candidate[o.attribute]
		if delta < 0 {
			delta *= penalty
		}
		total += o.weight * delta
	}
	return total
}

// dominates reports whether a is no worse than b on every objective and
// strictly better on at least one
func dominates(a, b fairness.ScoreVector, objs []objective) bool {
	strictly := false
	for _, o := range objs {
		av, bv := a[o.attribute], b[o.attribute]
		if av > bv+scoreTolerance {
			return false
		}
		if av < bv-scoreTolerance {
			strictly = true
		}
	}
	return strictly
}

// ParetoFront returns the indexes of candidates dominated neither by another
// candidate nor by the baseline
func ParetoFront(baseline Evaluation, candidates []Evaluation) []int {
	objs := objectives(baseline)
	var front []int
	for i, c := range candidates {
		if dominates(baseline.Vector, c.Vector, objs) {
			continue
		}
		dominated := false
		for j, other := range candidates {
			if i != j && dominates(other.Vector, c.Vector, objs) {
				dominated = true
				break
			}
		}
		if !dominated {
			front = append(front, i)
		}
	}
	return front
}

// ParetoSelector picks the best-scoring front member that regresses no
// attribute. Failing that it picks the best one that spares every
// high-priority attribute, and failing that the least-regressing one.
type ParetoSelector struct {
	Penalty      float64
	HighPriority float64
}

// Select implements Selector
func (p *ParetoSelector) Select(baseline Evaluation, candidates []Evaluation) Selection {
	objs := objectives(baseline)
	scores := make([]float64, len(candidates))
	for i, c := range candidates {
		scores[i] = improvementScore(baseline.Vector, c.Vector, objs, p.Penalty)
	}
	front := ParetoFront(baseline, candidates)
	sel := Selection{Summaries: summarize(candidates, front, scores)}

	if len(front) == 0 {
		return baselineSelection(sel, baseline)
	}

	var clean, eligible []int
	for _, i := range front {
		if len(regressions(baseline.Vector, candidates[i].Vector, objs)) == 0 {
			clean = append(clean, i)
		}
		if highPriorityRegression(baseline.Vector, candidates[i].Vector, objs, p.HighPriority) == 0 {
			eligible = append(eligible, i)
		}
	}
	byScore := func(a, b int) int { return compareFloat(scores[a], scores[b]) }

	var chosen int
	switch {
	case len(clean) > 0:
		chosen = best(clean, candidates, byScore)
	case len(eligible) > 0:
		chosen = best(eligible, candidates, byScore)
	default:
		regression := func(i int) float64 {
			return highPriorityRegression(baseline.Vector, candidates[i].Vector, objs, p.HighPriority)
		}
		chosen = best(front, candidates, func(a, b int) int {
			if c := compareFloat(regression(b), regression(a)); c != 0 {
				return c
			}
			return byScore(a, b)
		})
		sel.UnavoidableRegression = true
	}

	if scores[chosen] <= 0 {
		return baselineSelection(sel, baseline)
	}
	sel.Chosen = candidates[chosen]
	sel.RegressionFlags = regressions(baseline.Vector, sel.Chosen.Vector, objs)
	return sel
}

// SingleObjectiveSelector picks the lowest composite, ignoring per-attribute regressions
type SingleObjectiveSelector struct {
	Penalty float64
}

// Select implements Selector
func (s *SingleObjectiveSelector) Select(baseline Evaluation, candidates []Evaluation) Selection {
	objs := objectives(baseline)
	scores := make([]float64, len(candidates))
	all := make([]int, len(candidates))
	for i, c := range candidates {
		scores[i] = improvementScore(baseline.Vector, c.Vector, objs, s.Penalty)
		all[i] = i
	}
	sel := Selection{Summaries: summarize(candidates, ParetoFront(baseline, candidates), scores)}
	if len(candidates) == 0 {
		return baselineSelection(sel, baseline)
	}

	chosen := best(all, candidates, func(a, b int) int {
		return compareFloat(candidates[b].Score.Composite, candidates[a].Score.Composite)
	})
	if candidates[chosen].Score.Composite >= baseline.Score.Composite-scoreTolerance {
		return baselineSelection(sel, baseline)
	}
	sel.Chosen = candidates[chosen]
	sel.RegressionFlags = regressions(baseline.Vector, sel.Chosen.Vector, objs)
	return sel
}

func baselineSelection(sel Selection, baseline Evaluation) Selection {
	sel.Chosen = baseline
	sel.IsBaseline = true
	sel.NonImproving = true
	sel.UnavoidableRegression = false
	sel.RegressionFlags = nil
	return sel
}

// best returns the index maximizing better (positive means a beats b);
// ties go to fewer modifications, then earlier strategy order
func best(indexes []int, candidates []Evaluation, better func(a, b int) int) int {
	sorted := append([]int(nil), indexes...)
	sort.SliceStable(sorted, func(x, y int) bool {
		a, b := sorted[x], sorted[y]
		if c := better(a, b); c != 0 {
			return c > 0
		}
		if ma, mb := candidates[a].modifications(), candidates[b].modifications(); ma != mb {
			return ma < mb
		}
		return candidates[a].order() < candidates[b].order()
	})
	return sorted[0]
}

func compareFloat(a, b float64) int {
	switch {
	case a > b+scoreTolerance:
		return 1
	case a < b-scoreTolerance:
		return -1
	default:
		return 0
	}
}

// highPriorityRegression is the weighted amount by which a candidate is worse
// than the baseline on attributes at or above the threshold
func highPriorityRegression(baseline, candidate fairness.ScoreVector, objs []objective, threshold float64) float64 {
	total := 0.0
	for _, o := range objs {
		if o.weight < threshold {
			continue
		}
		if d := candidate[o.attribute] - baseline[o.attribute]; d > scoreTolerance {
			total += o.weight * d
		}
	}
	return total
}

func regressions(baseline, candidate fairness.ScoreVector, objs []objective) []string {
	var out []string
	for _, o := range objs {
		if candidate[o.attribute] > baseline[o.attribute]+scoreTolerance {
			out = append(out, o.attribute)
		}
	}
	return out
}

func summarize(candidates []Evaluation, front []int, scores []float64) []fairness.CandidateSummary {
	onFront := make(map[int]bool, len(front))
	for _, i := range front {
		onFront[i] = true
	}
	out := make([]fairness.CandidateSummary, len(candidates))
	for i, c := range candidates {
		summary := fairness.CandidateSummary{
			ID:          c.ID(),
			Strategy:    c.Strategy(),
			Scores:      c.Vector,
			Composite:   c.Score.Composite,
			Improvement: roundScore(scores[i]),
			OnFront:     onFront[i],
		}
		if c.Candidate != nil {
			summary.Added = c.Candidate.Added
			summary.Removed = c.Candidate.Removed
			summary.Violations = c.Candidate.Violations
		}
		out[i] = summary
	}
	return out
}

// roundScore trims float noise from report values
func roundScore(v float64) float64 {
	return math.Round(v*1e12) / 1e12
}
