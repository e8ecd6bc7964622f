package testkit

import (
	"fmt"

	"biasclean/adapters/rng"
	"biasclean/domain/dataset"
	"biasclean/domain/fairness"
	"biasclean/internal"
	"biasclean/ports"
)

// TestKit provides testing utilities and fixtures
type TestKit struct {
	rng    *rng.Adapter
	logger *internal.Logger
}

// NewTestKit creates a new test kit instance
func NewTestKit() *TestKit {
	return &TestKit{rng: rng.New(), logger: internal.NewDiscardLogger()}
}

// RNGAdapter returns a deterministic stream adapter
func (t *TestKit) RNGAdapter() ports.RNGPort {
	return t.rng
}

// Logger returns a logger that drops everything
func (t *TestKit) Logger() *internal.Logger {
	return t.logger
}

// UKDataset generates a population for a domain
func (t *TestKit) UKDataset(domain fairness.Domain, records int, seed int64) (*dataset.Dataset, error) {
	config := DefaultUKConfig()
	config.Domain = domain
	config.Records = records
	config.Seed = seed
	return NewUKDataGenerator(config).Generate()
}

// JusticeDataset generates the full-size recidivism dataset
func (t *TestKit) JusticeDataset() (*dataset.Dataset, error) {
	return NewJusticeDataGenerator(DefaultJusticeConfig()).Generate()
}

// Table builds a small categorical dataset from rows of labels. Numeric
// columns are declared by name in numeric and parsed with fmt.Sscan.
func Table(columns []string, numeric map[string]bool, rows ...[]string) (*dataset.Dataset, error) {
	cols := make([]dataset.Column, len(columns))
	for i, c := range columns {
		kind := dataset.KindCategorical
		if numeric[c] {
			kind = dataset.KindNumeric
		}
		cols[i] = dataset.Column{Name: c, Kind: kind}
	}
	schema, err := dataset.NewSchema(cols)
	if err != nil {
		return nil, err
	}

	records := make([]dataset.Record, len(rows))
	for r, row := range rows {
		rec := make(dataset.Record, len(row))
		for i, v := range row {
			switch {
			case v == "":
				rec[i] = dataset.Null()
			case i < len(cols) && cols[i].Kind == dataset.KindNumeric:
				var f float64
				if _, err := fmt.Sscan(v, &f); err != nil {
					return nil, fmt.Errorf("row %d column %s: %w", r, cols[i].Name, err)
				}
				rec[i] = dataset.Number(f)
			default:
				rec[i] = dataset.Text(v)
			}
		}
		records[r] = rec
	}
	return dataset.New(schema, records)
}

// Repeat returns n copies of row, for building skewed fixtures quickly
func Repeat(n int, row ...string) [][]string {
	out := make([][]string, n)
	for i := range out {
		out[i] = row
	}
	return out
}
