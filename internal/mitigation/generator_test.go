package mitigation

import (
	"context"
	"math/rand"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"biasclean/domain/dataset"
	"biasclean/domain/fairness"
	"biasclean/internal"
	"biasclean/internal/testkit"
)

func ethnicityPlan(budget int) Plan {
	return Plan{Items: []PlanItem{{Attribute: fairness.AttrEthnicity, Weight: 0.25, Budget: budget, Threshold: 1}}}
}

func newTestGenerator(t *testing.T, cfg fairness.RunConfig) *Generator {
	t.Helper()
	return NewGenerator(cfg, "1", weightTable(t, map[string]float64{fairness.AttrEthnicity: 0.25}), internal.NewDiscardLogger())
}

func generate(t *testing.T, g *Generator, ds *dataset.Dataset, plan Plan, strategy fairness.Strategy, seed int64) *Candidate {
	t.Helper()
	cand, err := g.Generate(context.Background(), GenerateInput{
		Dataset:  ds,
		Plan:     plan,
		Strategy: strategy,
		Baseline: g.Profile(ds),
		Rand:     rand.New(rand.NewSource(seed)),
	})
	require.NoError(t, err)
	return cand
}

func TestGenerator_OversamplesUnderRepresentedCells(t *testing.T) {
	ds := twoGroupDataset(t)
	before := ds.Fingerprint()
	cfg := testConfig()
	cfg.CorrelationTolerance = 0.2
	g := newTestGenerator(t, cfg)

	cand := generate(t, g, ds, ethnicityPlan(10), fairness.StrategyBalanced, 1)

	assert.Equal(t, before, ds.Fingerprint(), "input must not be mutated")
	assert.Equal(t, 10, cand.Added)
	assert.Zero(t, cand.Removed)
	assert.Empty(t, cand.Violations)
	assert.Equal(t, []string{fairness.AttrEthnicity}, cand.Passes)
	require.Equal(t, 210, cand.Dataset.Len())

	eth := cand.Dataset.Labels(fairness.AttrEthnicity)
	out := cand.Dataset.Labels("y")
	for i := 200; i < 210; i++ {
		if eth[i] == "A" {
			assert.Equal(t, "0", out[i], "record %d", i)
		} else {
			assert.Equal(t, "1", out[i], "record %d", i)
		}
	}

	scorer := NewScorer(cfg)
	weights := weightTable(t, map[string]float64{fairness.AttrEthnicity: 0.25})
	assert.Less(t, scorer.Score(cand.Dataset, "y", weights).Composite, scorer.Score(ds, "y", weights).Composite)
}

func TestGenerator_LowWeightAttributeIsRebalanced(t *testing.T) {
	var rows [][]string
	add := func(gender, outcome string, n int) {
		for i := 0; i < n; i++ {
			rows = append(rows, []string{gender, outcome, strconv.Itoa(len(rows) % 20)})
		}
	}
	add("Male", "1", 80)
	add("Male", "0", 80)
	add("Female", "1", 12)
	add("Female", "0", 28)
	ds, err := testkit.Table([]string{fairness.AttrGender, "y", "score"}, map[string]bool{"score": true}, rows...)
	require.NoError(t, err)

	weights := weightTable(t, map[string]float64{fairness.AttrGender: 0.05})
	cfg := testConfig()
	cfg.OutcomeTolerance = 0.1
	g := NewGenerator(cfg, "1", weights, internal.NewDiscardLogger())

	// gender ranked below a heavier attribute, as in the recidivism tables
	scores := []fairness.DisparityScore{
		{Attribute: fairness.AttrEthnicity, Weight: 0.25, DisparityRatio: 0.3},
		{Attribute: fairness.AttrGender, Weight: 0.05, DisparityRatio: 0.2},
	}
	planFor := func(a Allocator) Plan {
		item := a.Allocate(scores, ds.Len()).Items[1]
		require.Equal(t, fairness.AttrGender, item.Attribute)
		item.Budget = 10
		return Plan{Items: []PlanItem{item}}
	}

	legacy := generate(t, g, ds, planFor(Allocator{Ceiling: 0.05, Floor: 0.5}), fairness.StrategyBalanced, 1)
	assert.Zero(t, legacy.Modifications(), "a 0.6 threshold never reaches the female positive cell")

	cand := generate(t, g, ds, planFor(Allocator{Ceiling: 0.05}), fairness.StrategyBalanced, 1)
	assert.Greater(t, cand.Added, 0)
	assert.Empty(t, cand.Violations)

	scorer := NewScorer(cfg)
	scorer.PositiveLabel = "1"
	before, _ := fairness.ScoreFor(scorer.Score(ds, "y", weights).Scores, fairness.AttrGender)
	after, _ := fairness.ScoreFor(scorer.Score(cand.Dataset, "y", weights).Scores, fairness.AttrGender)
	assert.Less(t, after.DisparityRatio, before.DisparityRatio)
}

func TestGenerator_InterpolatesNumericFeatures(t *testing.T) {
	ds := twoGroupDataset(t)
	cfg := testConfig()
	cfg.CorrelationTolerance = 0.2
	cand := generate(t, newTestGenerator(t, cfg), ds, ethnicityPlan(10), fairness.StrategyBalanced, 3)

	scores := cand.Dataset.Numbers("score")
	for i := 200; i < cand.Dataset.Len(); i++ {
		assert.GreaterOrEqual(t, scores[i], 0.0)
		assert.LessOrEqual(t, scores[i], 19.0)
		assert.Equal(t, float64(int(scores[i])), scores[i], "integral columns stay integral")
	}
}

func TestGenerator_Deterministic(t *testing.T) {
	ds := twoGroupDataset(t)
	cfg := testConfig()
	cfg.CorrelationTolerance = 0.2
	g := newTestGenerator(t, cfg)

	a := generate(t, g, ds, ethnicityPlan(10), fairness.StrategyBalanced, 42)
	b := generate(t, g, ds, ethnicityPlan(10), fairness.StrategyBalanced, 42)
	assert.Equal(t, a.Dataset.Fingerprint(), b.Dataset.Fingerprint())
	assert.NotEqual(t, a.ID, b.ID)
}

func TestGenerator_AggressiveRemovesFromOverRepresentedCells(t *testing.T) {
	ds := twoGroupDataset(t)
	cfg := testConfig()
	cfg.ModificationCeiling = 0.11
	cfg.CorrelationTolerance = 0.2
	cand := generate(t, newTestGenerator(t, cfg), ds, ethnicityPlan(20), fairness.StrategyAggressive, 7)

	require.Empty(t, cand.Violations)
	assert.Equal(t, 7, cand.Removed)
	assert.Equal(t, 23, cand.Added)
	assert.Equal(t, 216, cand.Dataset.Len())
}

func TestGenerator_CorrelationViolationRevertsPass(t *testing.T) {
	ds := twoGroupDataset(t)
	cfg := testConfig()
	cfg.CorrelationTolerance = 0
	cand := generate(t, newTestGenerator(t, cfg), ds, ethnicityPlan(10), fairness.StrategyBalanced, 1)

	assert.Zero(t, cand.Modifications())
	require.Len(t, cand.Violations, 1)
	assert.Contains(t, cand.Violations[0], "correlation drift")
	assert.Equal(t, ds.Fingerprint(), cand.Dataset.Fingerprint())
}

func TestGenerator_OutcomeDriftViolation(t *testing.T) {
	rows := append(testkit.Repeat(50, "A", "1"), testkit.Repeat(50, "A", "0")...)
	rows = append(rows, testkit.Repeat(20, "B", "1")...)
	rows = append(rows, testkit.Repeat(80, "B", "0")...)
	ds, err := testkit.Table([]string{fairness.AttrEthnicity, "y"}, nil, rows...)
	require.NoError(t, err)

	cfg := testConfig()
	cfg.OutcomeTolerance = 0
	cand := generate(t, newTestGenerator(t, cfg), ds, ethnicityPlan(10), fairness.StrategyBalanced, 1)

	assert.Zero(t, cand.Added)
	require.Len(t, cand.Violations, 1)
	assert.Contains(t, cand.Violations[0], "outcome rate drift")
}

func TestGenerator_CeilingViolation(t *testing.T) {
	ds := twoGroupDataset(t)
	cfg := testConfig()
	cfg.ModificationCeiling = 0.01
	cand := generate(t, newTestGenerator(t, cfg), ds, ethnicityPlan(10), fairness.StrategyBalanced, 1)

	assert.Zero(t, cand.Added)
	require.Len(t, cand.Violations, 1)
	assert.Contains(t, cand.Violations[0], "exceed ceiling")
}

func TestGenerator_SingleRecordCellDuplicates(t *testing.T) {
	var rows [][]string
	for i := 0; i < 10; i++ {
		rows = append(rows, []string{"A", "1", strconv.Itoa(i), strconv.Itoa(2 * i)})
		rows = append(rows, []string{"A", "0", strconv.Itoa(i), strconv.Itoa(2*i + 1)})
	}
	for i := 0; i < 9; i++ {
		rows = append(rows, []string{"B", "0", strconv.Itoa(i), strconv.Itoa(i)})
	}
	rows = append(rows, []string{"B", "1", "7", "3"})
	ds, err := testkit.Table([]string{fairness.AttrEthnicity, "y", "score", "priors"},
		map[string]bool{"score": true, "priors": true}, rows...)
	require.NoError(t, err)

	cfg := testConfig()
	cfg.ModificationCeiling = 0.5
	cfg.OutcomeTolerance = 1
	cfg.CorrelationTolerance = 10
	cand := generate(t, newTestGenerator(t, cfg), ds, ethnicityPlan(10), fairness.StrategyBalanced, 1)

	require.Equal(t, 10, cand.Added)
	single := ds.Records[ds.Len()-1]
	duplicates := 0
	eth := cand.Dataset.Labels(fairness.AttrEthnicity)
	for i := ds.Len(); i < cand.Dataset.Len(); i++ {
		if eth[i] == "B" {
			duplicates++
			assert.Equal(t, single, cand.Dataset.Records[i])
		}
	}
	assert.Equal(t, 4, duplicates)
}

func TestGenerator_RequiresRandomStream(t *testing.T) {
	ds := twoGroupDataset(t)
	g := newTestGenerator(t, testConfig())
	_, err := g.Generate(context.Background(), GenerateInput{Dataset: ds, Plan: ethnicityPlan(10), Strategy: fairness.StrategyBalanced})
	assert.Error(t, err)
}

func TestSplitBudget(t *testing.T) {
	cells := []cell{{need: 30}, {need: 10}}
	assert.Equal(t, []int{30, 10}, splitBudget(cells, 100))
	assert.Equal(t, []int{8, 2}, splitBudget(cells, 10))
	assert.Equal(t, []int{6, 1}, splitBudget(cells, 7))
	assert.Equal(t, []int{0, 0}, splitBudget(cells, 0))
}
