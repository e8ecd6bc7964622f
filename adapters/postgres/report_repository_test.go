package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"biasclean/domain/fairness"
	"biasclean/ports"
)

func TestReportDocument_ValueAndScan(t *testing.T) {
	report := &fairness.Report{
		RunID:          "run-1",
		Domain:         fairness.DomainJustice,
		State:          fairness.StateConverged,
		CompositeAfter: 0.05,
		CompletedAt:    time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	v, err := ReportDocument{report}.Value()
	require.NoError(t, err)

	var doc ReportDocument
	require.NoError(t, doc.Scan(v))
	require.NotNil(t, doc.Report)
	assert.Equal(t, report.RunID, doc.RunID)
	assert.Equal(t, report.CompositeAfter, doc.CompositeAfter)
	assert.True(t, report.CompletedAt.Equal(doc.CompletedAt))

	require.NoError(t, doc.Scan(string(v.([]byte))))
	assert.Equal(t, report.Domain, doc.Domain)

	require.NoError(t, doc.Scan(nil))
	assert.Nil(t, doc.Report)
	assert.Error(t, doc.Scan(42))

	nilValue, err := ReportDocument{}.Value()
	require.NoError(t, err)
	assert.Nil(t, nilValue)
}

func TestListQuery(t *testing.T) {
	query, args := listQuery(ports.ReportFilters{})
	assert.NotContains(t, query, "WHERE")
	assert.Contains(t, query, "ORDER BY completed_at DESC")
	assert.Empty(t, args)

	domain := fairness.DomainHealth
	state := fairness.StateAborted
	query, args = listQuery(ports.ReportFilters{Domain: &domain, State: &state, Limit: 10, Offset: 20})
	assert.Contains(t, query, "WHERE domain = $1 AND state = $2")
	assert.Contains(t, query, "LIMIT $3 OFFSET $4")
	assert.Equal(t, []interface{}{"health", "ABORTED", 10, 20}, args)
}
