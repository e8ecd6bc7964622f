package ports

import (
	"context"
	"time"

	"biasclean/domain/core"
	"biasclean/domain/fairness"
)

// ReportRepository stores completed mitigation reports
type ReportRepository interface {
	// Save stores a report, replacing any report with the same run ID
	Save(ctx context.Context, report *fairness.Report) error

	// Get returns core.ErrReportNotFound when the run is unknown
	Get(ctx context.Context, runID core.RunID) (*fairness.Report, error)

	// List returns summaries, most recent first
	List(ctx context.Context, filters ReportFilters) ([]ReportSummary, error)
}

// ReportFilters for querying reports
type ReportFilters struct {
	Domain *fairness.Domain
	State  *fairness.ConvergenceState
	Limit  int
	Offset int
}

// ReportSummary is the list view of a stored report
type ReportSummary struct {
	RunID           core.RunID                `json:"run_id"`
	Domain          fairness.Domain           `json:"domain"`
	State           fairness.ConvergenceState `json:"state"`
	Reason          string                    `json:"reason"`
	CompositeBefore float64                   `json:"composite_before"`
	CompositeAfter  float64                   `json:"composite_after"`
	RecordsBefore   int                       `json:"records_before"`
	RecordsAfter    int                       `json:"records_after"`
	Iterations      int                       `json:"iterations"`
	ProductionReady bool                      `json:"production_ready"`
	CompletedAt     time.Time                 `json:"completed_at"`
}

// SummarizeReport builds the list view of a report
func SummarizeReport(r *fairness.Report) ReportSummary {
	return ReportSummary{
		RunID:           r.RunID,
		Domain:          r.Domain,
		State:           r.State,
		Reason:          r.Reason,
		CompositeBefore: r.CompositeBefore,
		CompositeAfter:  r.CompositeAfter,
		RecordsBefore:   r.RecordsBefore,
		RecordsAfter:    r.RecordsAfter,
		Iterations:      len(r.Trace),
		ProductionReady: r.Readiness.ProductionReady,
		CompletedAt:     r.CompletedAt,
	}
}

// Matches reports whether a summary passes the domain/state filters
func (f ReportFilters) Matches(s ReportSummary) bool {
	if f.Domain != nil && s.Domain != *f.Domain {
		return false
	}
	if f.State != nil && s.State != *f.State {
		return false
	}
	return true
}
