package mitigation

import (
	"context"
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"biasclean/domain/core"
	"biasclean/domain/dataset"
	"biasclean/domain/fairness"
	"biasclean/internal"
	"biasclean/ports"
)

// Outcome is the tracker's terminal result
type Outcome struct {
	Dataset               *dataset.Dataset
	Baseline              ScoreResult
	Final                 ScoreResult
	State                 fairness.ConvergenceState
	Reason                string
	Trace                 []fairness.IterationRecord
	FinalFront            []fairness.CandidateSummary
	UnavoidableRegression bool
	CandidatesEvaluated   int
	Added                 int
	Removed               int
}

// Tracker drives INIT → ITERATING → CONVERGED | MAX_ITER | ABORTED for one run.
// A Tracker is single-use.
type Tracker struct {
	cfg       fairness.RunConfig
	weights   fairness.WeightTable
	scorer    *Scorer
	allocator Allocator
	generator CandidateGenerator
	selector  Selector
	rng       ports.RNGPort
	logger    *internal.Logger

	state fairness.ConvergenceState
	trace []fairness.IterationRecord
}

// NewTracker wires the components of one run
func NewTracker(cfg fairness.RunConfig, weights fairness.WeightTable, scorer *Scorer, generator CandidateGenerator, selector Selector, rng ports.RNGPort, logger *internal.Logger) *Tracker {
	return &Tracker{
		cfg:       cfg,
		weights:   weights,
		scorer:    scorer,
		allocator: Allocator{Ceiling: cfg.ModificationCeiling},
		generator: generator,
		selector:  selector,
		rng:       rng,
		logger:    logger.With("Tracker"),
		state:     fairness.StateInit,
	}
}

// State returns the current state
func (t *Tracker) State() fairness.ConvergenceState {
	return t.state
}

// Trace returns a copy of the iteration records so far
func (t *Tracker) Trace() []fairness.IterationRecord {
	return append([]fairness.IterationRecord(nil), t.trace...)
}

// Run iterates until a terminal state. Cancellation is not an error: the run
// ends ABORTED with the last committed dataset.
func (t *Tracker) Run(ctx context.Context, ds *dataset.Dataset, profile Profile) (*Outcome, error) {
	if t.state != fairness.StateInit {
		return nil, fmt.Errorf("tracker already used (state %s)", t.state)
	}

	baseline := t.scorer.Score(ds, t.cfg.OutcomeColumn, t.weights)
	out := &Outcome{Dataset: ds.Clone(), Baseline: baseline, Final: baseline}

	if len(baseline.Active()) == 0 || baseline.Composite < t.cfg.Epsilon {
		t.logger.Info("nothing to mitigate (composite %.4f, %d active attributes)", baseline.Composite, len(baseline.Active()))
		return t.finish(out, fairness.StateConverged, fairness.ReasonNothingToMitigate), nil
	}

	t.state = fairness.StateIterating
	minRecords := int(math.Ceil(t.cfg.RetentionFloor * float64(profile.Records)))
	current, currentScore := out.Dataset, baseline

	for iteration := 1; ; iteration++ {
		if ctx.Err() != nil {
			return t.finish(out, fairness.StateAborted, fairness.ReasonCancelled), nil
		}

		plan := t.allocator.Allocate(currentScore.Scores, current.Len())
		evals, err := t.candidates(ctx, iteration, current, plan, profile)
		if err != nil {
			if ctx.Err() != nil {
				return t.finish(out, fairness.StateAborted, fairness.ReasonCancelled), nil
			}
			return nil, err
		}
		out.CandidatesEvaluated += len(evals)

		sel := t.selector.Select(NewEvaluation(nil, currentScore, current.Len()), evals)
		out.FinalFront = sel.Summaries

		rec := fairness.IterationRecord{
			Index:                 iteration,
			CompositeBefore:       currentScore.Composite,
			CompositeAfter:        currentScore.Composite,
			ScoresBefore:          currentScore.Vector(),
			ScoresAfter:           currentScore.Vector(),
			ChosenCandidate:       sel.Chosen.ID(),
			Strategy:              sel.Chosen.Strategy(),
			RegressionFlags:       sel.RegressionFlags,
			UnavoidableRegression: sel.UnavoidableRegression,
			NonImproving:          sel.NonImproving,
			RecordsBefore:         current.Len(),
			RecordsAfter:          current.Len(),
			Front:                 sel.Summaries,
		}

		if !sel.IsBaseline && sel.Chosen.Records < minRecords {
			t.trace = append(t.trace, rec)
			t.logger.Warn("iteration %d: %s candidate keeps %d records, floor is %d", iteration, rec.Strategy, sel.Chosen.Records, minRecords)
			return t.finish(out, fairness.StateAborted, fairness.ReasonRetentionFloor), nil
		}

		improvement := 0.0
		if !sel.IsBaseline && sel.Chosen.Score.Composite < currentScore.Composite-scoreTolerance {
			improvement = currentScore.Composite - sel.Chosen.Score.Composite
			current, currentScore = sel.Chosen.Candidate.Dataset, sel.Chosen.Score

			rec.Committed = true
			rec.CompositeAfter = currentScore.Composite
			rec.ScoresAfter = currentScore.Vector()
			rec.RecordsAfter = current.Len()
			out.Dataset, out.Final = current, currentScore
			out.Added += sel.Chosen.Candidate.Added
			out.Removed += sel.Chosen.Candidate.Removed
			out.UnavoidableRegression = out.UnavoidableRegression || sel.UnavoidableRegression
		} else if !sel.IsBaseline {
			rec.ChosenCandidate = core.BaselineCandidateID
			rec.Strategy = string(core.BaselineCandidateID)
			rec.RegressionFlags = nil
			rec.UnavoidableRegression = false
			rec.NonImproving = true
		}
		t.trace = append(t.trace, rec)
		t.logger.Info("iteration %d: %s composite %.4f -> %.4f (%d records)", iteration, rec.Strategy, rec.CompositeBefore, rec.CompositeAfter, rec.RecordsAfter)

		switch {
		case iteration >= t.cfg.MaxIterations:
			return t.finish(out, fairness.StateMaxIter, fairness.ReasonMaxIterations), nil
		case rec.NonImproving:
			return t.finish(out, fairness.StateConverged, fairness.ReasonNonImproving), nil
		case improvement < t.cfg.Epsilon:
			return t.finish(out, fairness.StateConverged, fairness.ReasonBelowEpsilon), nil
		}
	}
}

// candidates generates and scores one candidate per strategy concurrently.
// Each strategy draws from its own stream keyed by (domain, iteration, strategy).
func (t *Tracker) candidates(ctx context.Context, iteration int, current *dataset.Dataset, plan Plan, profile Profile) ([]Evaluation, error) {
	evals := make([]Evaluation, len(t.cfg.Strategies))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(t.workers())

	for i, strategy := range t.cfg.Strategies {
		g.Go(func() error {
			key := ports.StreamKey{Domain: string(t.weights.Domain), Iteration: iteration, Strategy: strategy.Name}
			r, err := t.rng.Stream(gctx, key, t.cfg.Seed)
			if err != nil {
				return err
			}
			cand, err := t.generator.Generate(gctx, GenerateInput{
				Dataset:  current,
				Plan:     plan,
				Strategy: strategy,
				Order:    i,
				Baseline: profile,
				Rand:     r,
			})
			if err != nil {
				return fmt.Errorf("strategy %s: %w", strategy.Name, err)
			}
			score := t.scorer.Score(cand.Dataset, t.cfg.OutcomeColumn, t.weights)
			evals[i] = NewEvaluation(cand, score, cand.Dataset.Len())
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return evals, nil
}

func (t *Tracker) workers() int {
	if t.cfg.Workers > 0 {
		return t.cfg.Workers
	}
	return runtime.GOMAXPROCS(0)
}

func (t *Tracker) finish(out *Outcome, state fairness.ConvergenceState, reason string) *Outcome {
	t.state = state
	out.State = state
	out.Reason = reason
	out.Trace = t.Trace()
	t.logger.Info("run finished: %s (%s) after %d iterations", state, reason, len(out.Trace))
	return out
}
