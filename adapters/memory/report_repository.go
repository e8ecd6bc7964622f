package memory

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"biasclean/domain/core"
	"biasclean/domain/fairness"
	"biasclean/ports"
)

// ReportRepository keeps reports in process memory. Reports are stored as
// JSON so callers never share state with the repository.
type ReportRepository struct {
	mu      sync.RWMutex
	reports map[core.RunID][]byte
	index   map[core.RunID]ports.ReportSummary
}

var _ ports.ReportRepository = (*ReportRepository)(nil)

// NewReportRepository creates an empty repository
func NewReportRepository() *ReportRepository {
	return &ReportRepository{
		reports: make(map[core.RunID][]byte),
		index:   make(map[core.RunID]ports.ReportSummary),
	}
}

// Save stores a report, replacing any report with the same run ID
func (r *ReportRepository) Save(ctx context.Context, report *fairness.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(report)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports[report.RunID] = data
	r.index[report.RunID] = ports.SummarizeReport(report)
	return nil
}

// Get returns a copy of the stored report
func (r *ReportRepository) Get(ctx context.Context, runID core.RunID) (*fairness.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	data, ok := r.reports[runID]
	r.mu.RUnlock()
	if !ok {
		return nil, core.ErrReportNotFound
	}

	var report fairness.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// List returns summaries, most recent first
func (r *ReportRepository) List(ctx context.Context, filters ports.ReportFilters) ([]ports.ReportSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := make([]ports.ReportSummary, 0, len(r.index))
	for _, s := range r.index {
		if filters.Matches(s) {
			out = append(out, s)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CompletedAt.Equal(out[j].CompletedAt) {
			return out[i].CompletedAt.After(out[j].CompletedAt)
		}
		return out[i].RunID > out[j].RunID
	})

	if filters.Offset > 0 {
		if filters.Offset >= len(out) {
			return []ports.ReportSummary{}, nil
		}
		out = out[filters.Offset:]
	}
	if filters.Limit > 0 && len(out) > filters.Limit {
		out = out[:filters.Limit]
	}
	return out, nil
}
