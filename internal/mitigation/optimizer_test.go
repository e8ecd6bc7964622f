package mitigation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"biasclean/domain/core"
	"biasclean/domain/fairness"
)

var scenarioWeights = map[string]float64{
	fairness.AttrEthnicity: 0.25,
	fairness.AttrRace:      0.25,
	fairness.AttrGender:    0.05,
}

// evaluation builds a scored evaluation; strategy "" yields the baseline
func evaluation(strategy string, order, mods int, vector map[string]float64) Evaluation {
	var res ScoreResult
	for _, name := range []string{fairness.AttrEthnicity, fairness.AttrGender, fairness.AttrRace} {
		s := fairness.DisparityScore{Attribute: name, Weight: scenarioWeights[name], DisparityRatio: vector[name]}
		s.Contribution = s.Weight * s.DisparityRatio
		res.Composite += s.Contribution
		res.Scores = append(res.Scores, s)
	}
	if strategy == "" {
		return NewEvaluation(nil, res, 100)
	}
	cand := &Candidate{ID: core.CandidateID(strategy), Strategy: fairness.Strategy{Name: strategy}, Order: order, Added: mods}
	return NewEvaluation(cand, res, 100+mods)
}

func vec(eth, race, gender float64) map[string]float64 {
	return map[string]float64{fairness.AttrEthnicity: eth, fairness.AttrRace: race, fairness.AttrGender: gender}
}

func paretoSelector() *ParetoSelector {
	cfg := fairness.DefaultRunConfig("y")
	return NewSelector(cfg).(*ParetoSelector)
}

func TestParetoFront_Consistency(t *testing.T) {
	baseline := evaluation("", 0, 0, vec(0.3, 0.3, 0.1))
	candidates := []Evaluation{
		evaluation("conservative", 0, 5, vec(0.2, 0.2, 0.1)),
		evaluation("balanced", 1, 5, vec(0.25, 0.25, 0.1)),
		evaluation("aggressive", 2, 5, vec(0.35, 0.1, 0.1)),
	}

	front := ParetoFront(baseline, candidates)
	assert.Equal(t, []int{0, 2}, front)

	objs := objectives(baseline)
	for _, i := range front {
		for j := range candidates {
			assert.False(t, dominates(candidates[j].Vector, candidates[i].Vector, objs))
		}
		assert.False(t, dominates(baseline.Vector, candidates[i].Vector, objs))
	}

	sel := paretoSelector().Select(baseline, candidates)
	assert.Equal(t, "conservative", sel.Chosen.Strategy())
	assert.False(t, sel.IsBaseline)
	assert.False(t, sel.UnavoidableRegression)
	assert.Empty(t, sel.RegressionFlags)
	require.Len(t, sel.Summaries, 3)
	assert.True(t, sel.Summaries[0].OnFront)
	assert.False(t, sel.Summaries[1].OnFront)
}

func TestParetoSelector_AllDominatedSelectsBaseline(t *testing.T) {
	baseline := evaluation("", 0, 0, vec(0.3, 0.3, 0.1))
	sel := paretoSelector().Select(baseline, []Evaluation{
		evaluation("balanced", 0, 5, vec(0.35, 0.3, 0.1)),
	})
	assert.True(t, sel.IsBaseline)
	assert.True(t, sel.NonImproving)
	assert.Equal(t, core.BaselineCandidateID, sel.Chosen.ID())
}

func TestParetoSelector_UnavoidableRegressionIsFlagged(t *testing.T) {
	baseline := evaluation("", 0, 0, vec(0.3, 0.3, 0.1))
	sel := paretoSelector().Select(baseline, []Evaluation{
		evaluation("aggressive", 0, 5, vec(0.35, 0.05, 0.1)),
	})
	assert.False(t, sel.IsBaseline)
	assert.True(t, sel.UnavoidableRegression)
	assert.Equal(t, []string{fairness.AttrEthnicity}, sel.RegressionFlags)
}

func TestParetoSelector_LeastRegressingWins(t *testing.T) {
	baseline := evaluation("", 0, 0, vec(0.3, 0.3, 0.1))
	sel := paretoSelector().Select(baseline, []Evaluation{
		evaluation("conservative", 0, 5, vec(0.32, 0.1, 0.1)),
		evaluation("aggressive", 1, 5, vec(0.4, 0.0, 0.1)),
	})
	assert.Equal(t, "conservative", sel.Chosen.Strategy())
	assert.True(t, sel.UnavoidableRegression)
}

func TestParetoSelector_LowPriorityRegressionTolerated(t *testing.T) {
	baseline := evaluation("", 0, 0, vec(0.3, 0.3, 0.1))
	sel := paretoSelector().Select(baseline, []Evaluation{
		evaluation("balanced", 0, 5, vec(0.2, 0.2, 0.12)),
	})
	assert.Equal(t, "balanced", sel.Chosen.Strategy())
	assert.False(t, sel.UnavoidableRegression)
	assert.Equal(t, []string{fairness.AttrGender}, sel.RegressionFlags)
}

func TestParetoSelector_PrefersCandidateWithoutAnyRegression(t *testing.T) {
	baseline := evaluation("", 0, 0, vec(0.3, 0.3, 0.1))
	candidates := []Evaluation{
		evaluation("aggressive", 0, 5, vec(0.1, 0.1, 0.12)),
		evaluation("balanced", 1, 5, vec(0.25, 0.25, 0.09)),
	}
	require.Equal(t, []int{0, 1}, ParetoFront(baseline, candidates))

	sel := paretoSelector().Select(baseline, candidates)
	assert.Equal(t, "balanced", sel.Chosen.Strategy())
	assert.Empty(t, sel.RegressionFlags)
	assert.Greater(t, sel.Summaries[0].Improvement, sel.Summaries[1].Improvement, "higher score alone does not win")
}

func TestParetoSelector_NonPositiveScoreSelectsBaseline(t *testing.T) {
	baseline := evaluation("", 0, 0, vec(0.3, 0.3, 0.1))
	sel := paretoSelector().Select(baseline, []Evaluation{
		evaluation("balanced", 0, 5, vec(0.31, 0.29, 0.1)),
	})
	assert.True(t, sel.IsBaseline)
	assert.True(t, sel.NonImproving)
	assert.False(t, sel.UnavoidableRegression)
}

func TestParetoSelector_TieBreaks(t *testing.T) {
	baseline := evaluation("", 0, 0, vec(0.3, 0.3, 0.1))

	sel := paretoSelector().Select(baseline, []Evaluation{
		evaluation("conservative", 0, 10, vec(0.2, 0.2, 0.1)),
		evaluation("balanced", 1, 5, vec(0.2, 0.2, 0.1)),
	})
	assert.Equal(t, "balanced", sel.Chosen.Strategy(), "fewer modifications wins")

	sel = paretoSelector().Select(baseline, []Evaluation{
		evaluation("balanced", 1, 5, vec(0.2, 0.2, 0.1)),
		evaluation("conservative", 0, 5, vec(0.2, 0.2, 0.1)),
	})
	assert.Equal(t, "conservative", sel.Chosen.Strategy(), "earlier strategy wins")
}

func TestImprovementScore_PenalizesRegressions(t *testing.T) {
	baseline := evaluation("", 0, 0, vec(0.3, 0.3, 0.1))
	objs := objectives(baseline)

	gain := improvementScore(baseline.Vector, vec(0.3, 0.3, 0.0), objs, 3)
	loss := improvementScore(baseline.Vector, vec(0.3, 0.3, 0.2), objs, 3)
	assert.InDelta(t, 0.005, gain, 1e-12)
	assert.InDelta(t, -0.015, loss, 1e-12)
}

func TestObjectives_ExcludeIndeterminateAttributes(t *testing.T) {
	baseline := evaluation("", 0, 0, vec(0.3, 0.3, 0.1))
	baseline.Score.Scores[2].Indeterminate = true // Race

	objs := objectives(baseline)
	require.Len(t, objs, 2)
	for _, o := range objs {
		assert.NotEqual(t, fairness.AttrRace, o.attribute)
	}

	sel := paretoSelector().Select(baseline, []Evaluation{
		evaluation("balanced", 0, 5, vec(0.2, 0.9, 0.1)),
	})
	assert.Equal(t, "balanced", sel.Chosen.Strategy())
	assert.False(t, sel.UnavoidableRegression)
}

func TestSingleObjectiveSelector(t *testing.T) {
	cfg := fairness.DefaultRunConfig("y")
	cfg.Objective = fairness.ObjectiveSingle
	selector := NewSelector(cfg)
	_, ok := selector.(*SingleObjectiveSelector)
	require.True(t, ok)

	baseline := evaluation("", 0, 0, vec(0.3, 0.3, 0.1))
	sel := selector.Select(baseline, []Evaluation{
		evaluation("conservative", 0, 5, vec(0.25, 0.25, 0.1)),
		evaluation("aggressive", 1, 5, vec(0.4, 0.0, 0.1)),
	})
	assert.Equal(t, "aggressive", sel.Chosen.Strategy())
	assert.Contains(t, sel.RegressionFlags, fairness.AttrEthnicity)
	assert.False(t, sel.UnavoidableRegression)

	sel = selector.Select(baseline, []Evaluation{evaluation("balanced", 0, 5, vec(0.3, 0.3, 0.1))})
	assert.True(t, sel.IsBaseline)
}
