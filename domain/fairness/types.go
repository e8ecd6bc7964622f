package fairness

import (
	"sort"
	"time"

	"biasclean/domain/core"
	"biasclean/domain/run"
)

// TestKind names the significance test behind a DisparityScore
type TestKind string

const (
	TestFisherExact TestKind = "fisher_exact"
	TestChiSquare   TestKind = "chi_square"
	TestNone        TestKind = "none"
)

// CategoryStat is the outcome breakdown for one category of a protected attribute
type CategoryStat struct {
	Category  string  `json:"category"`
	Count     int     `json:"count"`
	Positives int     `json:"positives"`
	Rate      float64 `json:"rate"`
	Share     float64 `json:"share"`
}

// ProtectedAttribute is a weighted attribute with its baseline category outcome rates
type ProtectedAttribute struct {
	Name       string             `json:"name"`
	Weight     float64            `json:"weight"`
	Categories []string           `json:"categories"`
	Rates      map[string]float64 `json:"rates"`
}

// DisparityScore is the scorer's verdict for one protected attribute.
// DisparityRatio is the max pairwise outcome-rate gap, always within [0,1].
type DisparityScore struct {
	Attribute          string         `json:"attribute"`
	Weight             float64        `json:"weight"`
	Test               TestKind       `json:"test"`
	Statistic          float64        `json:"statistic"`
	PValue             float64        `json:"p_value"`
	DisparityRatio     float64        `json:"disparity_ratio"`
	RateRatio          float64        `json:"rate_ratio"`
	Representation     float64        `json:"representation_disparity"`
	Contribution       float64        `json:"contribution"`
	Indeterminate      bool           `json:"indeterminate"`
	RequiresMitigation bool           `json:"requires_mitigation"`
	Skipped            bool           `json:"skipped"`
	Warning            string         `json:"warning,omitempty"`
	Categories         []CategoryStat `json:"categories,omitempty"`
	OverRepresented    []GroupExcess  `json:"over_represented,omitempty"`
}

// GroupExcess is a category holding more than the uniform share 1/k
type GroupExcess struct {
	Category    string  `json:"category"`
	Share       float64 `json:"share"`
	Expected    float64 `json:"expected"`
	ExcessRatio float64 `json:"excess_ratio"`
}

// DetectOverRepresented lists the categories whose share exceeds 1/k,
// largest excess first
func DetectOverRepresented(categories []CategoryStat) []GroupExcess {
	if len(categories) == 0 {
		return nil
	}
	expected := 1 / float64(len(categories))
	var out []GroupExcess
	for _, c := range categories {
		if c.Share > expected {
			out = append(out, GroupExcess{
				Category:    c.Category,
				Share:       c.Share,
				Expected:    expected,
				ExcessRatio: (c.Share - expected) / expected,
			})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ExcessRatio > out[j].ExcessRatio })
	return out
}

// Active reports whether the score participates in the composite
func (s DisparityScore) Active() bool {
	return s.Weight > 0 && !s.Skipped && !s.Indeterminate
}

// ScoreVector maps attribute name to disparity ratio
type ScoreVector map[string]float64

// CandidateSummary is the report-facing view of an evaluated candidate
type CandidateSummary struct {
	ID          core.CandidateID `json:"id"`
	Strategy    string           `json:"strategy"`
	Scores      ScoreVector      `json:"scores"`
	Composite   float64          `json:"composite"`
	Improvement float64          `json:"improvement"`
	Added       int              `json:"added"`
	Removed     int              `json:"removed"`
	OnFront     bool             `json:"on_front"`
	Violations  []string         `json:"violations,omitempty"`
}

// ConvergenceState is the tracker's state machine position
type ConvergenceState string

const (
	StateInit      ConvergenceState = "INIT"
	StateIterating ConvergenceState = "ITERATING"
	StateConverged ConvergenceState = "CONVERGED"
	StateMaxIter   ConvergenceState = "MAX_ITER"
	StateAborted   ConvergenceState = "ABORTED"
)

// Terminal reports whether no further transitions are possible
func (s ConvergenceState) Terminal() bool {
	return s == StateConverged || s == StateMaxIter || s == StateAborted
}

// Reasons attached to terminal states
const (
	ReasonNothingToMitigate = "nothing_to_mitigate"
	ReasonBelowEpsilon      = "improvement_below_epsilon"
	ReasonNonImproving      = "non_improving_iteration"
	ReasonMaxIterations     = "max_iterations_reached"
	ReasonRetentionFloor    = "retention_floor_violated"
	ReasonCancelled         = "cancelled"
)

// IterationRecord captures one tracker iteration. Records are appended to
// the trace once and never modified afterwards.
type IterationRecord struct {
	Index                 int                `json:"index"`
	CompositeBefore       float64            `json:"composite_before"`
	CompositeAfter        float64            `json:"composite_after"`
	ScoresBefore          ScoreVector        `json:"scores_before"`
	ScoresAfter           ScoreVector        `json:"scores_after"`
	ChosenCandidate       core.CandidateID   `json:"chosen_candidate"`
	Strategy              string             `json:"strategy"`
	RegressionFlags       []string           `json:"regression_flags,omitempty"`
	UnavoidableRegression bool               `json:"unavoidable_regression"`
	NonImproving          bool               `json:"non_improving"`
	Committed             bool               `json:"committed"`
	RecordsBefore         int                `json:"records_before"`
	RecordsAfter          int                `json:"records_after"`
	Front                 []CandidateSummary `json:"front"`
}

// Alignment is one significant attribute's distance from uniform
// representation before and after mitigation
type Alignment struct {
	Attribute          string  `json:"attribute"`
	DistanceBefore     float64 `json:"distance_before"`
	DistanceAfter      float64 `json:"distance_after"`
	ImprovementPercent float64 `json:"improvement_percent"`
}

// Readiness summarizes whether the mitigated dataset meets production criteria.
// MeaningfulGain is judged on AlignmentGainPercent, the mean Alignment improvement.
type Readiness struct {
	RetentionRate        float64 `json:"retention_rate"`
	ReductionPercent     float64 `json:"reduction_percent"`
	AlignmentGainPercent float64 `json:"alignment_gain_percent"`
	// MitigationEfficiency is composite reduction per unit of relative record-count change
	MitigationEfficiency float64 `json:"mitigation_efficiency"`
	MeetsRetention       bool    `json:"meets_retention"`
	MeaningfulGain       bool    `json:"meaningful_gain"`
	ProductionReady      bool    `json:"production_ready"`
}

// Report is the full outcome of a mitigation run
type Report struct {
	RunID                 core.RunID           `json:"run_id"`
	Domain                Domain               `json:"domain"`
	OutcomeColumn         string               `json:"outcome_column"`
	Objective             string               `json:"objective"`
	Seed                  int64                `json:"seed"`
	Weights               []AttributeWeight    `json:"weights"`
	WeightsAuthoritative  bool                 `json:"weights_authoritative"`
	Warnings              []string             `json:"warnings,omitempty"`
	Attributes            []ProtectedAttribute `json:"attributes"`
	CompositeBefore       float64              `json:"composite_before"`
	CompositeAfter        float64              `json:"composite_after"`
	ScoresBefore          []DisparityScore     `json:"scores_before"`
	ScoresAfter           []DisparityScore     `json:"scores_after"`
	Trace                 []IterationRecord    `json:"trace"`
	State                 ConvergenceState     `json:"state"`
	Reason                string               `json:"reason"`
	UnavoidableRegression bool                 `json:"unavoidable_regression"`
	FinalFront            []CandidateSummary   `json:"final_front"`
	RecordsBefore         int                  `json:"records_before"`
	RecordsAfter          int                  `json:"records_after"`
	InputFingerprint      core.Hash            `json:"input_fingerprint"`
	OutputFingerprint     core.Hash            `json:"output_fingerprint"`
	Alignment             []Alignment          `json:"alignment,omitempty"`
	Readiness             Readiness            `json:"readiness"`
	Manifest              run.Manifest         `json:"manifest"`
	StartedAt             time.Time            `json:"started_at"`
	CompletedAt           time.Time            `json:"completed_at"`
}

// ScoreFor finds an attribute's score in a score list
func ScoreFor(scores []DisparityScore, attribute string) (DisparityScore, bool) {
	for _, s := range scores {
		if s.Attribute == attribute {
			return s, true
		}
	}
	return DisparityScore{}, false
}
