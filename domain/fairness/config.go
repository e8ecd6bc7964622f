package fairness

import (
	"math"
	"strings"

	"biasclean/domain/core"
)

// Objective selects the optimizer variant
type Objective string

const (
	ObjectivePareto Objective = "pareto"
	ObjectiveSingle Objective = "single-objective"
)

// Strategy parameterizes one candidate generator pass
type Strategy struct {
	Name string `json:"name" yaml:"name"`
	// Aggressiveness scales the allocator's target-ratio threshold (capped at 1)
	Aggressiveness float64 `json:"aggressiveness" yaml:"aggressiveness"`
	// CeilingMultiplier scales both per-attribute budgets and the global modification ceiling
	CeilingMultiplier float64 `json:"ceiling_multiplier" yaml:"ceiling_multiplier"`
	// RemovalShare is the fraction of an attribute budget that may be spent removing records
	RemovalShare float64 `json:"removal_share" yaml:"removal_share"`
}

// Built-in strategies
var (
	StrategyConservative = Strategy{Name: "conservative", Aggressiveness: 0.8, CeilingMultiplier: 0.5}
	StrategyBalanced     = Strategy{Name: "balanced", Aggressiveness: 0.95, CeilingMultiplier: 1.0}
	StrategyAggressive   = Strategy{Name: "aggressive", Aggressiveness: 1.1, CeilingMultiplier: 1.5, RemovalShare: 0.25}
)

// DefaultStrategies returns conservative, balanced, aggressive
func DefaultStrategies() []Strategy {
	return []Strategy{StrategyConservative, StrategyBalanced, StrategyAggressive}
}

// StrategyByName resolves a built-in strategy
func StrategyByName(name string) (Strategy, bool) {
	for _, s := range DefaultStrategies() {
		if strings.EqualFold(s.Name, name) {
			return s, true
		}
	}
	return Strategy{}, false
}

// RunConfig holds every knob of a mitigation run
type RunConfig struct {
	OutcomeColumn         string     `json:"outcome_column" yaml:"outcome_column"`
	PositiveOutcome       string     `json:"positive_outcome,omitempty" yaml:"positive_outcome"`
	MaxIterations         int        `json:"max_iterations" yaml:"max_iterations"`
	ModificationCeiling   float64    `json:"modification_ceiling" yaml:"modification_ceiling"`
	RetentionFloor        float64    `json:"retention_floor" yaml:"retention_floor"`
	Seed                  int64      `json:"seed" yaml:"seed"`
	Strategies            []Strategy `json:"strategies" yaml:"strategies"`
	RegressionPenalty     float64    `json:"regression_penalty" yaml:"regression_penalty"`
	HighPriorityThreshold float64    `json:"high_priority_threshold" yaml:"high_priority_threshold"`
	Epsilon               float64    `json:"epsilon" yaml:"epsilon"`
	Alpha                 float64    `json:"alpha" yaml:"alpha"`
	MinExpectedCount      float64    `json:"min_expected_count" yaml:"min_expected_count"`
	OutcomeTolerance      float64    `json:"outcome_tolerance" yaml:"outcome_tolerance"`
	CorrelationTolerance  float64    `json:"correlation_tolerance" yaml:"correlation_tolerance"`
	Neighbors             int        `json:"neighbors" yaml:"neighbors"`
	Objective             Objective  `json:"objective" yaml:"objective"`
	Workers               int        `json:"workers" yaml:"workers"`
}

// DefaultRunConfig returns the production defaults
func DefaultRunConfig(outcomeColumn string) RunConfig {
	return RunConfig{
		OutcomeColumn:         outcomeColumn,
		MaxIterations:         5,
		ModificationCeiling:   0.05,
		RetentionFloor:        0.92,
		Seed:                  42,
		Strategies:            DefaultStrategies(),
		RegressionPenalty:     3.0,
		HighPriorityThreshold: 0.15,
		Epsilon:               0.001,
		Alpha:                 0.05,
		MinExpectedCount:      5,
		OutcomeTolerance:      0.02,
		CorrelationTolerance:  0.05,
		Neighbors:             5,
		Objective:             ObjectivePareto,
	}
}

// Validate checks ranges; it does not touch any dataset
func (c RunConfig) Validate() error {
	switch {
	case strings.TrimSpace(c.OutcomeColumn) == "":
		return core.NewRunConfigError("outcome_column", "is required")
	case c.MaxIterations < 1:
		return core.NewRunConfigError("max_iterations", "must be at least 1")
	case c.ModificationCeiling <= 0 || c.ModificationCeiling > 1:
		return core.NewRunConfigError("modification_ceiling", "must be within (0,1]")
	case c.RetentionFloor < 0 || c.RetentionFloor > 1:
		return core.NewRunConfigError("retention_floor", "must be within [0,1]")
	case len(c.Strategies) == 0:
		return core.NewRunConfigError("strategies", "must not be empty")
	case c.RegressionPenalty < 1:
		return core.NewRunConfigError("regression_penalty", "must be at least 1")
	case c.HighPriorityThreshold < 0 || c.HighPriorityThreshold > 1:
		return core.NewRunConfigError("high_priority_threshold", "must be within [0,1]")
	case math.IsNaN(c.Epsilon) || c.Epsilon < 0:
		return core.NewRunConfigError("epsilon", "must be non-negative")
	case c.Alpha <= 0 || c.Alpha >= 1:
		return core.NewRunConfigError("alpha", "must be within (0,1)")
	case c.MinExpectedCount < 0:
		return core.NewRunConfigError("min_expected_count", "must be non-negative")
	case c.OutcomeTolerance < 0:
		return core.NewRunConfigError("outcome_tolerance", "must be non-negative")
	case c.CorrelationTolerance < 0:
		return core.NewRunConfigError("correlation_tolerance", "must be non-negative")
	case c.Neighbors < 1:
		return core.NewRunConfigError("neighbors", "must be at least 1")
	case c.Objective != ObjectivePareto && c.Objective != ObjectiveSingle:
		return core.NewRunConfigError("objective", "must be pareto or single-objective")
	case c.Workers < 0:
		return core.NewRunConfigError("workers", "must be non-negative")
	}

	seen := make(map[string]bool, len(c.Strategies))
	for _, s := range c.Strategies {
		if s.Name == "" || seen[s.Name] {
			return core.NewRunConfigError("strategies", "names must be unique and non-empty")
		}
		if s.Aggressiveness <= 0 || s.CeilingMultiplier <= 0 {
			return core.NewRunConfigError("strategies", "aggressiveness and ceiling_multiplier must be positive")
		}
		if s.RemovalShare < 0 || s.RemovalShare >= 1 {
			return core.NewRunConfigError("strategies", "removal_share must be within [0,1)")
		}
		seen[s.Name] = true
	}
	return nil
}
