package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveRun(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveRun(RunSummary{Domain: "justice", State: "CONVERGED", Iterations: 3, Candidates: 9, Added: 40, Removed: 5, Duration: time.Second})
	m.ObserveRun(RunSummary{Domain: "justice", State: "CONVERGED", Iterations: 1, Candidates: 3, Added: 2})
	m.IncrementScore("health")
	m.IncrementRejected()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues("justice", "CONVERGED")))
	assert.Equal(t, 42.0, testutil.ToFloat64(m.RecordsSynthesized))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.RecordsRemoved))
	assert.Equal(t, 12.0, testutil.ToFloat64(m.CandidatesEvaluated))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ScoreRequests.WithLabelValues("health")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsRejected))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveRun(RunSummary{Domain: "justice"})
	m.IncrementScore("justice")
	m.IncrementRejected()
}
