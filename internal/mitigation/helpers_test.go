package mitigation

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"biasclean/domain/dataset"
	"biasclean/domain/fairness"
	"biasclean/internal/testkit"
)

// twoGroupDataset has group A with a 70% positive rate and group B with 30%,
// plus two correlated numeric features.
func twoGroupDataset(t *testing.T) *dataset.Dataset {
	t.Helper()
	var rows [][]string
	add := func(group, outcome string, n int) {
		for i := 0; i < n; i++ {
			score := len(rows) % 20
			priors := 2*score + (len(rows)/20)%2
			rows = append(rows, []string{group, outcome, strconv.Itoa(score), strconv.Itoa(priors)})
		}
	}
	add("A", "1", 70)
	add("A", "0", 30)
	add("B", "1", 30)
	add("B", "0", 70)

	ds, err := testkit.Table([]string{fairness.AttrEthnicity, "y", "score", "priors"},
		map[string]bool{"score": true, "priors": true}, rows...)
	require.NoError(t, err)
	return ds
}

func weightTable(t *testing.T, pairs map[string]float64) fairness.WeightTable {
	t.Helper()
	table, err := fairness.WeightTableFromMap(fairness.DomainJustice, pairs)
	require.NoError(t, err)
	return table
}

func testConfig() fairness.RunConfig {
	cfg := fairness.DefaultRunConfig("y")
	cfg.Workers = 2
	return cfg
}
