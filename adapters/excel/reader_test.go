package excel

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"biasclean/domain/dataset"
	"biasclean/ports"
)

const sampleCSV = `Ethnicity, age ,two_year_recid,priors
African-American,25,1,3
Caucasian,41,0,NA
Hispanic,,1,0
`

func TestReadFrom_InfersKinds(t *testing.T) {
	reader := NewDataReader(DefaultReaderConfig(), nil)
	ds, err := reader.ReadFrom(context.Background(), strings.NewReader(sampleCSV), ports.FormatCSV)
	require.NoError(t, err)

	assert.Equal(t, 3, ds.Len())
	kinds := map[string]dataset.ColumnKind{}
	for _, c := range ds.Schema.Columns {
		kinds[c.Name] = c.Kind
	}
	assert.Equal(t, dataset.KindCategorical, kinds["Ethnicity"])
	assert.Equal(t, dataset.KindNumeric, kinds["age"], "headers are trimmed")
	assert.Equal(t, dataset.KindNumeric, kinds["two_year_recid"])
	assert.Equal(t, dataset.KindNumeric, kinds["priors"])

	assert.Equal(t, []string{"25", "41", ""}, ds.Labels("age"))
	assert.Equal(t, []string{"3", "", "0"}, ds.Labels("priors"))
	assert.Equal(t, []string{"1", "0", "1"}, ds.Labels("two_year_recid"))
}

func TestReadFrom_ForcedCategorical(t *testing.T) {
	cfg := DefaultReaderConfig()
	cfg.Categorical = []string{"two_year_recid"}
	ds, err := NewDataReader(cfg, nil).ReadFrom(context.Background(), strings.NewReader(sampleCSV), ports.FormatCSV)
	require.NoError(t, err)

	col, ok := ds.Column("two_year_recid")
	require.True(t, ok)
	assert.Equal(t, dataset.KindCategorical, col.Kind)
	assert.Equal(t, []string{"1", "0", "1"}, ds.Labels("two_year_recid"))
}

func TestReadFrom_Errors(t *testing.T) {
	reader := NewDataReader(DefaultReaderConfig(), nil)

	_, err := reader.ReadFrom(context.Background(), strings.NewReader("a,b\n"), ports.FormatCSV)
	assert.Error(t, err, "header only")

	_, err = reader.ReadFrom(context.Background(), strings.NewReader("a,a\n1,2\n"), ports.FormatCSV)
	assert.Error(t, err, "duplicate header")

	_, err = reader.Read(context.Background(), "data.parquet")
	assert.Error(t, err)

	_, err = reader.Read(context.Background(), filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	reader := NewDataReader(DefaultReaderConfig(), nil)
	src, err := reader.ReadFrom(ctx, strings.NewReader(sampleCSV), ports.FormatCSV)
	require.NoError(t, err)

	for _, name := range []string{"out.csv", "out.xlsx"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			require.NoError(t, NewDataWriter().Write(ctx, path, src))

			info, err := os.Stat(path)
			require.NoError(t, err)
			assert.Positive(t, info.Size())

			back, err := reader.Read(ctx, path)
			require.NoError(t, err)
			assert.Equal(t, src.Fingerprint(), back.Fingerprint())
		})
	}
}

func TestWriteTo_CSVNullsAreEmpty(t *testing.T) {
	ds, err := NewDataReader(DefaultReaderConfig(), nil).ReadFrom(context.Background(), strings.NewReader(sampleCSV), ports.FormatCSV)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, NewDataWriter().WriteTo(context.Background(), &buf, ports.FormatCSV, ds))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "Ethnicity,age,two_year_recid,priors", lines[0])
	assert.Equal(t, "Caucasian,41,0,", lines[2])
	assert.Equal(t, "Hispanic,,1,0", lines[3])
}
