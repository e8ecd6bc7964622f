package migrations

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbedded(t *testing.T) {
	files, err := Embedded()
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "001", files[0].Version)
	assert.Equal(t, "mitigation_reports", files[0].Name)
	assert.Contains(t, files[0].SQL, "CREATE TABLE IF NOT EXISTS mitigation_reports")
	assert.Len(t, files[0].Checksum, 64)
	assert.Equal(t, "002", files[1].Version)
}

func TestLoadFiles_SortsAndSkipsInvalid(t *testing.T) {
	fsys := fstest.MapFS{
		"sql/010_later.sql":   {Data: []byte("SELECT 10;")},
		"sql/002_second.sql":  {Data: []byte("SELECT 2;")},
		"sql/README.md":       {Data: []byte("docs")},
		"sql/noversion.sql":   {Data: []byte("SELECT 0;")},
		"sql/001_initial.sql": {Data: []byte("SELECT 1;")},
	}
	files, err := LoadFiles(fsys)
	require.NoError(t, err)
	require.Len(t, files, 3)
	assert.Equal(t, []string{"001", "002", "010"}, []string{files[0].Version, files[1].Version, files[2].Version})
	assert.NotEqual(t, files[0].Checksum, files[1].Checksum)
}

func TestLoadFiles_RejectsDuplicateVersions(t *testing.T) {
	_, err := LoadFiles(fstest.MapFS{
		"a/001_one.sql": {Data: []byte("SELECT 1;")},
		"b/001_two.sql": {Data: []byte("SELECT 2;")},
	})
	assert.Error(t, err)
}
