package mitigation

import (
	"context"
	"fmt"
	"math"
	"time"

	"biasclean/domain/core"
	"biasclean/domain/dataset"
	"biasclean/domain/fairness"
	"biasclean/domain/run"
	"biasclean/internal"
	"biasclean/internal/stats"
	"biasclean/ports"
)

// ReadinessGainPercent is the mean alignment improvement a run needs to count as meaningful
const ReadinessGainPercent = 15.0

// Result is a mitigated dataset and its report
type Result struct {
	Dataset *dataset.Dataset
	Report  *fairness.Report
}

// Engine runs mitigation for any domain; the weight table carries the domain
type Engine struct {
	rng    ports.RNGPort
	logger *internal.Logger
}

// NewEngine creates an engine drawing randomness from rng
func NewEngine(rng ports.RNGPort, logger *internal.Logger) *Engine {
	if logger == nil {
		logger = internal.NewDiscardLogger()
	}
	return &Engine{rng: rng, logger: logger}
}

// Score validates the inputs and returns baseline disparity scores
func (e *Engine) Score(ds *dataset.Dataset, weights fairness.WeightTable, cfg fairness.RunConfig) (ScoreResult, []string, error) {
	if err := validateInput(ds, cfg); err != nil {
		return ScoreResult{}, nil, err
	}
	weights, warnings := effectiveWeights(weights)
	scorer := NewScorer(cfg)
	scorer.PositiveLabel = ResolvePositiveLabel(ds, cfg.OutcomeColumn, cfg.PositiveOutcome)
	return scorer.Score(ds, cfg.OutcomeColumn, weights), warnings, nil
}

// Run mitigates ds. Only invalid inputs return an error; every other failure
// is reported through the report's state and warnings.
func (e *Engine) Run(ctx context.Context, ds *dataset.Dataset, weights fairness.WeightTable, cfg fairness.RunConfig) (*Result, error) {
	if err := validateInput(ds, cfg); err != nil {
		return nil, err
	}
	started := time.Now().UTC()
	runID := core.NewRunID()
	_, authoritative := weights.Authoritative()
	weights, warnings := effectiveWeights(weights)

	input := ds.Fingerprint()
	replayCfg := cfg
	replayCfg.Workers = 0
	manifest, err := run.NewManifest(runID, string(weights.Domain), input, weights.Entries, replayCfg, cfg.Seed)
	if err != nil {
		return nil, err
	}

	positive := ResolvePositiveLabel(ds, cfg.OutcomeColumn, cfg.PositiveOutcome)
	scorer := NewScorer(cfg)
	scorer.PositiveLabel = positive
	generator := NewGenerator(cfg, positive, weights, e.logger)
	tracker := NewTracker(cfg, weights, scorer, generator, NewSelector(cfg), e.rng, e.logger)

	e.logger.Info("run %s: domain=%s records=%d attributes=%d objective=%s replay=%s", runID.String(), weights.Domain, ds.Len(), weights.Len(), cfg.Objective, manifest.Fingerprint.Short())
	outcome, err := tracker.Run(ctx, ds, generator.Profile(ds))
	if err != nil {
		return nil, err
	}

	report := &fairness.Report{
		RunID:                 runID,
		Domain:                weights.Domain,
		OutcomeColumn:         cfg.OutcomeColumn,
		Objective:             string(cfg.Objective),
		Seed:                  cfg.Seed,
		Weights:               weights.Entries,
		WeightsAuthoritative:  authoritative,
		Warnings:              dedupe(append(warnings, outcome.Baseline.Warnings...)),
		Attributes:            outcome.Baseline.Attributes,
		CompositeBefore:       outcome.Baseline.Composite,
		CompositeAfter:        outcome.Final.Composite,
		ScoresBefore:          outcome.Baseline.Scores,
		ScoresAfter:           outcome.Final.Scores,
		Trace:                 outcome.Trace,
		State:                 outcome.State,
		Reason:                outcome.Reason,
		UnavoidableRegression: outcome.UnavoidableRegression,
		FinalFront:            outcome.FinalFront,
		RecordsBefore:         ds.Len(),
		RecordsAfter:          outcome.Dataset.Len(),
		InputFingerprint:      input,
		OutputFingerprint:     outcome.Dataset.Fingerprint(),
		StartedAt:             started,
		CompletedAt:           time.Now().UTC(),
		Manifest:              manifest,
	}
	report.Alignment = AlignmentOf(report.ScoresBefore, report.ScoresAfter)
	report.Readiness = AssessReadiness(report.CompositeBefore, report.CompositeAfter, report.RecordsBefore, report.RecordsAfter, report.Alignment, cfg.RetentionFloor)

	return &Result{Dataset: outcome.Dataset, Report: report}, nil
}

// AssessReadiness applies the production criteria: retention at or above the
// floor and a mean alignment improvement above ReadinessGainPercent. Without
// significant attributes there is no alignment to gain.
func AssessReadiness(compositeBefore, compositeAfter float64, recordsBefore, recordsAfter int, alignment []fairness.Alignment, floor float64) fairness.Readiness {
	r := fairness.Readiness{}
	if recordsBefore > 0 {
		r.RetentionRate = float64(recordsAfter) / float64(recordsBefore)
		if change := math.Abs(float64(recordsAfter-recordsBefore)) / float64(recordsBefore); change > 0 {
			r.MitigationEfficiency = (compositeBefore - compositeAfter) / change
		}
	}
	r.ReductionPercent = stats.ImprovementPercent(compositeBefore, compositeAfter)
	if len(alignment) > 0 {
		sum := 0.0
		for _, a := range alignment {
			sum += a.ImprovementPercent
		}
		r.AlignmentGainPercent = sum / float64(len(alignment))
	}
	r.MeetsRetention = r.RetentionRate >= floor
	r.MeaningfulGain = len(alignment) > 0 && r.AlignmentGainPercent > ReadinessGainPercent
	r.ProductionReady = r.MeetsRetention && r.MeaningfulGain
	return r
}

// AlignmentOf measures, for every attribute that was active and significant
// at baseline, how far its category shares sit from uniform before and after.
// Both distances use the baseline category count.
func AlignmentOf(before, after []fairness.DisparityScore) []fairness.Alignment {
	var out []fairness.Alignment
	for _, b := range before {
		if !b.Active() || !b.RequiresMitigation {
			continue
		}
		k := len(b.Categories)
		a := fairness.Alignment{
			Attribute:      b.Attribute,
			DistanceBefore: stats.UniformDistance(shares(b.Categories), k),
		}
		a.DistanceAfter = a.DistanceBefore
		if s, ok := fairness.ScoreFor(after, b.Attribute); ok && !s.Skipped {
			a.DistanceAfter = stats.UniformDistance(shares(s.Categories), k)
		}
		a.ImprovementPercent = stats.ImprovementPercent(a.DistanceBefore, a.DistanceAfter)
		out = append(out, a)
	}
	return out
}

func shares(categories []fairness.CategoryStat) []float64 {
	out := make([]float64, len(categories))
	for i, c := range categories {
		out[i] = c.Share
	}
	return out
}

func validateInput(ds *dataset.Dataset, cfg fairness.RunConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if ds == nil || ds.Len() == 0 {
		return core.ErrEmptyDataset
	}
	if !ds.HasColumn(cfg.OutcomeColumn) {
		return fmt.Errorf("%w: %q", core.ErrMissingOutcome, cfg.OutcomeColumn)
	}
	for _, l := range ds.Labels(cfg.OutcomeColumn) {
		if l != "" {
			return nil
		}
	}
	return fmt.Errorf("%w: %q has no values", core.ErrMissingOutcome, cfg.OutcomeColumn)
}

func effectiveWeights(weights fairness.WeightTable) (fairness.WeightTable, []string) {
	effective, ok := weights.Authoritative()
	if ok || weights.Len() == 0 {
		return weights, nil
	}
	return effective, []string{"all attribute weights are zero; using uniform weights (not authoritative)"}
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
