package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"biasclean/adapters/memory"
	"biasclean/ports"
)

func TestLoadReportFromFile(t *testing.T) {
	dir := t.TempDir()

	withID := filepath.Join(dir, "a.json")
	require.NoError(t, os.WriteFile(withID, []byte(`{"run_id":"run-1","domain":"health","state":"CONVERGED"}`), 0o644))
	report, err := loadReportFromFile(withID)
	require.NoError(t, err)
	assert.Equal(t, "run-1", report.RunID.String())

	noID := filepath.Join(dir, "b.json")
	require.NoError(t, os.WriteFile(noID, []byte(`{"domain":"finance"}`), 0o644))
	first, err := loadReportFromFile(noID)
	require.NoError(t, err)
	second, err := loadReportFromFile(noID)
	require.NoError(t, err)
	assert.NotEmpty(t, first.RunID)
	assert.Equal(t, first.RunID, second.RunID)

	other := filepath.Join(dir, "c.json")
	require.NoError(t, os.WriteFile(other, []byte(`{"name":"not a report"}`), 0o644))
	_, err = loadReportFromFile(other)
	assert.Error(t, err)
}

func TestImportReports(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "one.json"), []byte(`{"run_id":"r1","domain":"health"}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nested", "two.json"), []byte(`{"run_id":"r2","domain":"hiring"}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte(`{`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte(`ignored`), 0o644))

	repo := memory.NewReportRepository()
	importReports(context.Background(), repo, dir)

	list, err := repo.List(context.Background(), ports.ReportFilters{})
	require.NoError(t, err)
	assert.Len(t, list, 2)
}
