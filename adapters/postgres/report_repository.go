package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"biasclean/domain/core"
	"biasclean/domain/fairness"
	"biasclean/ports"
)

// ReportDocument stores a report in a JSONB column
type ReportDocument struct {
	*fairness.Report
}

// Value implements driver.Valuer interface
func (d ReportDocument) Value() (driver.Value, error) {
	if d.Report == nil {
		return nil, nil
	}
	return json.Marshal(d.Report)
}

// Scan implements sql.Scanner interface
func (d *ReportDocument) Scan(value interface{}) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		d.Report = nil
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into report document", value)
	}

	var report fairness.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return fmt.Errorf("failed to decode report: %w", err)
	}
	d.Report = &report
	return nil
}

// summaryRow mirrors the indexed columns of mitigation_reports
type summaryRow struct {
	RunID           string    `db:"run_id"`
	Domain          string    `db:"domain"`
	State           string    `db:"state"`
	Reason          string    `db:"reason"`
	CompositeBefore float64   `db:"composite_before"`
	CompositeAfter  float64   `db:"composite_after"`
	RecordsBefore   int       `db:"records_before"`
	RecordsAfter    int       `db:"records_after"`
	Iterations      int       `db:"iterations"`
	ProductionReady bool      `db:"production_ready"`
	CompletedAt     time.Time `db:"completed_at"`
}

func (r summaryRow) summary() ports.ReportSummary {
	return ports.ReportSummary{
		RunID:           core.RunID(r.RunID),
		Domain:          fairness.Domain(r.Domain),
		State:           fairness.ConvergenceState(r.State),
		Reason:          r.Reason,
		CompositeBefore: r.CompositeBefore,
		CompositeAfter:  r.CompositeAfter,
		RecordsBefore:   r.RecordsBefore,
		RecordsAfter:    r.RecordsAfter,
		Iterations:      r.Iterations,
		ProductionReady: r.ProductionReady,
		CompletedAt:     r.CompletedAt,
	}
}

// ReportRepositoryImpl implements ports.ReportRepository for PostgreSQL
type ReportRepositoryImpl struct {
	db *sqlx.DB
}

// NewReportRepository creates a new PostgreSQL report repository
func NewReportRepository(db *sqlx.DB) ports.ReportRepository {
	return &ReportRepositoryImpl{db: db}
}

// Save upserts a report by run ID
func (r *ReportRepositoryImpl) Save(ctx context.Context, report *fairness.Report) error {
	s := ports.SummarizeReport(report)
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO mitigation_reports (run_id, domain, state, reason, composite_before, composite_after,
			records_before, records_after, iterations, production_ready, completed_at,
			input_fingerprint, output_fingerprint, report)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (run_id) DO UPDATE SET
			domain = EXCLUDED.domain,
			state = EXCLUDED.state,
			reason = EXCLUDED.reason,
			composite_before = EXCLUDED.composite_before,
			composite_after = EXCLUDED.composite_after,
			records_before = EXCLUDED.records_before,
			records_after = EXCLUDED.records_after,
			iterations = EXCLUDED.iterations,
			production_ready = EXCLUDED.production_ready,
			completed_at = EXCLUDED.completed_at,
			input_fingerprint = EXCLUDED.input_fingerprint,
			output_fingerprint = EXCLUDED.output_fingerprint,
			report = EXCLUDED.report
	`, string(s.RunID), string(s.Domain), string(s.State), s.Reason, s.CompositeBefore, s.CompositeAfter,
		s.RecordsBefore, s.RecordsAfter, s.Iterations, s.ProductionReady, s.CompletedAt,
		report.InputFingerprint.String(), report.OutputFingerprint.String(), ReportDocument{report})
	return err
}

// Get retrieves a report by run ID
func (r *ReportRepositoryImpl) Get(ctx context.Context, runID core.RunID) (*fairness.Report, error) {
	var doc ReportDocument
	err := r.db.GetContext(ctx, &doc, `SELECT report FROM mitigation_reports WHERE run_id = $1`, string(runID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrReportNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc.Report, nil
}

// List returns summaries, most recent first
func (r *ReportRepositoryImpl) List(ctx context.Context, filters ports.ReportFilters) ([]ports.ReportSummary, error) {
	query, args := listQuery(filters)
	var rows []summaryRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	out := make([]ports.ReportSummary, len(rows))
	for i, row := range rows {
		out[i] = row.summary()
	}
	return out, nil
}

func listQuery(filters ports.ReportFilters) (string, []interface{}) {
	var (
		where []string
		args  []interface{}
	)
	if filters.Domain != nil {
		args = append(args, string(*filters.Domain))
		where = append(where, fmt.Sprintf("domain = $%d", len(args)))
	}
	if filters.State != nil {
		args = append(args, string(*filters.State))
		where = append(where, fmt.Sprintf("state = $%d", len(args)))
	}

	query := `
		SELECT run_id, domain, state, reason, composite_before, composite_after,
			records_before, records_after, iterations, production_ready, completed_at
		FROM mitigation_reports`
	if len(where) > 0 {
		query += "\n\t\tWHERE " + strings.Join(where, " AND ")
	}
	query += "\n\t\tORDER BY completed_at DESC, run_id DESC"

	if filters.Limit > 0 {
		args = append(args, filters.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filters.Offset > 0 {
		args = append(args, filters.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}
	return query, args
}
