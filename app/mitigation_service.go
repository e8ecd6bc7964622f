package app

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"

	"biasclean/domain/core"
	"biasclean/domain/dataset"
	"biasclean/domain/fairness"
	"biasclean/internal"
	"biasclean/internal/errors"
	"biasclean/internal/metrics"
	"biasclean/internal/mitigation"
	"biasclean/ports"
)

// MitigationService runs scoring and mitigation and keeps the resulting reports
type MitigationService struct {
	engine   *mitigation.Engine
	reports  ports.ReportRepository
	renderer ports.ReportRenderer
	metrics  *metrics.Metrics
	slots    *semaphore.Weighted
	logger   *internal.Logger
}

// MitigationRequest defines the inputs of a score or mitigate call
type MitigationRequest struct {
	Dataset *dataset.Dataset
	Domain  string
	// Weights overrides the domain's default table when non-nil
	Weights map[string]float64
	Config  fairness.RunConfig
}

// ScoreResponse is the baseline assessment of a dataset
type ScoreResponse struct {
	Domain               fairness.Domain               `json:"domain"`
	Weights              []fairness.AttributeWeight    `json:"weights"`
	WeightsAuthoritative bool                          `json:"weights_authoritative"`
	PositiveLabel        string                        `json:"positive_label"`
	Composite            float64                       `json:"composite"`
	Scores               []fairness.DisparityScore     `json:"scores"`
	Attributes           []fairness.ProtectedAttribute `json:"attributes"`
	Records              int                           `json:"records"`
	Warnings             []string                      `json:"warnings,omitempty"`
}

// NewMitigationService creates a service allowing maxConcurrent simultaneous runs
func NewMitigationService(engine *mitigation.Engine, reports ports.ReportRepository, renderer ports.ReportRenderer, m *metrics.Metrics, maxConcurrent int, logger *internal.Logger) *MitigationService {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	if logger == nil {
		logger = internal.NewDiscardLogger()
	}
	return &MitigationService{
		engine:   engine,
		reports:  reports,
		renderer: renderer,
		metrics:  m,
		slots:    semaphore.NewWeighted(int64(maxConcurrent)),
		logger:   logger.With("MitigationService"),
	}
}

// ResolveWeights returns the domain table, or the overrides validated against the domain
func (s *MitigationService) ResolveWeights(domain string, overrides map[string]float64) (fairness.WeightTable, error) {
	d, err := fairness.ParseDomain(domain)
	if err != nil {
		return fairness.WeightTable{}, errors.FromDomain(err, "invalid domain")
	}
	if overrides == nil {
		table, err := d.DefaultWeights()
		return table, errors.FromDomain(err, "failed to load domain weights")
	}
	table, err := fairness.WeightTableFromMap(d, overrides)
	return table, errors.FromDomain(err, "invalid weight table")
}

// Score computes baseline disparity without modifying anything
func (s *MitigationService) Score(ctx context.Context, req MitigationRequest) (*ScoreResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	weights, err := s.ResolveWeights(req.Domain, req.Weights)
	if err != nil {
		return nil, err
	}
	res, warnings, err := s.engine.Score(req.Dataset, weights, req.Config)
	if err != nil {
		return nil, errors.FromDomain(err, "invalid score request")
	}
	s.metrics.IncrementScore(string(weights.Domain))

	_, authoritative := weights.Authoritative()
	return &ScoreResponse{
		Domain:               weights.Domain,
		Weights:              weights.Entries,
		WeightsAuthoritative: authoritative,
		PositiveLabel:        res.PositiveLabel,
		Composite:            res.Composite,
		Scores:               res.Scores,
		Attributes:           res.Attributes,
		Records:              req.Dataset.Len(),
		Warnings:             append(warnings, res.Warnings...),
	}, nil
}

// Mitigate runs the engine and stores the report. It fails fast with a BUSY
// error when the concurrency limit is reached.
func (s *MitigationService) Mitigate(ctx context.Context, req MitigationRequest) (*mitigation.Result, error) {
	weights, err := s.ResolveWeights(req.Domain, req.Weights)
	if err != nil {
		return nil, err
	}
	if !s.slots.TryAcquire(1) {
		s.metrics.IncrementRejected()
		return nil, errors.Busy("too many mitigation runs in progress")
	}
	defer s.slots.Release(1)

	started := time.Now()
	res, err := s.engine.Run(ctx, req.Dataset, weights, req.Config)
	if err != nil {
		return nil, errors.FromDomain(err, "mitigation run failed")
	}

	report := res.Report
	added, removed, candidates := RunTotals(report)
	s.metrics.ObserveRun(metrics.RunSummary{
		Domain:     string(report.Domain),
		State:      string(report.State),
		Iterations: len(report.Trace),
		Candidates: candidates,
		Added:      added,
		Removed:    removed,
		Duration:   time.Since(started),
	})
	s.logger.Info("run %s finished %s (%s): composite %.4f -> %.4f, records %d -> %d",
		report.RunID, report.State, report.Reason, report.CompositeBefore, report.CompositeAfter, report.RecordsBefore, report.RecordsAfter)

	if s.reports != nil {
		if err := s.reports.Save(ctx, report); err != nil {
			return res, errors.DatabaseError(fmt.Sprintf("failed to save report %s", report.RunID), err)
		}
	}
	return res, nil
}

// GetReport loads a stored report
func (s *MitigationService) GetReport(ctx context.Context, runID core.RunID) (*fairness.Report, error) {
	if s.reports == nil {
		return nil, errors.NotFound("report")
	}
	report, err := s.reports.Get(ctx, runID)
	if core.IsNotFoundError(err) {
		return nil, errors.WithCode(errors.CodeNotFound, err)
	}
	if err != nil {
		return nil, errors.DatabaseError("failed to load report", err)
	}
	return report, nil
}

// ListReports returns stored report summaries, most recent first
func (s *MitigationService) ListReports(ctx context.Context, filters ports.ReportFilters) ([]ports.ReportSummary, error) {
	if s.reports == nil {
		return []ports.ReportSummary{}, nil
	}
	out, err := s.reports.List(ctx, filters)
	if err != nil {
		return nil, errors.DatabaseError("failed to list reports", err)
	}
	return out, nil
}

// RenderReport renders a stored report as "markdown" or "html"
func (s *MitigationService) RenderReport(ctx context.Context, runID core.RunID, format string) ([]byte, error) {
	report, err := s.GetReport(ctx, runID)
	if err != nil {
		return nil, err
	}
	var out []byte
	switch format {
	case "markdown", "md":
		out, err = s.renderer.Markdown(report)
	case "html":
		out, err = s.renderer.HTML(report)
	default:
		return nil, errors.InvalidInput(fmt.Sprintf("unsupported report format %q", format))
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to render report")
	}
	return out, nil
}

// RunTotals sums the committed additions and removals of a run and counts
// every candidate it evaluated
func RunTotals(report *fairness.Report) (added, removed, candidates int) {
	for _, rec := range report.Trace {
		candidates += len(rec.Front)
		if !rec.Committed {
			continue
		}
		for _, c := range rec.Front {
			if c.ID == rec.ChosenCandidate {
				added += c.Added
				removed += c.Removed
				break
			}
		}
	}
	return added, removed, candidates
}
