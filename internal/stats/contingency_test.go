package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

// Fisher's "lady tasting tea" table has a known two-sided p of 34/70
func TestFisherExact_TeaTasting(t *testing.T) {
	res := FisherExact(3, 1, 1, 3)
	assert.InDelta(t, 34.0/70.0, res.PValue, 1e-9)
	assert.Equal(t, 1, res.DegreesOfFreedom)
	assert.InDelta(t, 2.0, res.MinExpected, 1e-12)
}

func TestFisherExact_ExtremeTable(t *testing.T) {
	// all successes in one row: p = 2 / C(10,5)
	res := FisherExact(5, 0, 0, 5)
	assert.InDelta(t, 2.0/252.0, res.PValue, 1e-9)
	assert.False(t, math.IsInf(res.Statistic, 0))
}

func TestFisherExact_DegenerateMargins(t *testing.T) {
	res := FisherExact(4, 0, 6, 0)
	assert.Equal(t, 1.0, res.PValue)

	res = FisherExact(0, 0, 0, 0)
	assert.Equal(t, 1.0, res.PValue)
}

func TestChiSquareIndependence_KnownStatistic(t *testing.T) {
	// rates .25/.5/.75 with 20 per row: chi2 = 10 on 2 df, p = exp(-5)
	table := [][]int{{5, 15}, {10, 10}, {15, 5}}
	res := ChiSquareIndependence(table)

	assert.InDelta(t, 10.0, res.Statistic, 1e-9)
	assert.Equal(t, 2, res.DegreesOfFreedom)
	assert.InDelta(t, math.Exp(-5), res.PValue, 1e-9)
	assert.InDelta(t, 10.0, res.MinExpected, 1e-9)
}

func TestChiSquareIndependence_NoAssociation(t *testing.T) {
	res := ChiSquareIndependence([][]int{{10, 10}, {10, 10}, {10, 10}})
	assert.InDelta(t, 0.0, res.Statistic, 1e-12)
	assert.InDelta(t, 1.0, res.PValue, 1e-12)
}

func TestChiSquareIndependence_DropsEmptyRows(t *testing.T) {
	res := ChiSquareIndependence([][]int{{5, 15}, {0, 0}, {15, 5}})
	assert.Equal(t, 1, res.DegreesOfFreedom)

	res = ChiSquareIndependence([][]int{{5, 0}, {7, 0}})
	assert.Equal(t, 1.0, res.PValue, "single outcome column has nothing to test")
}

func TestRepresentationDisparity(t *testing.T) {
	assert.InDelta(t, 0.0, RepresentationDisparity([]int{10, 10, 10}), 1e-12)

	// shares .75/.25 vs expected .5: (ln 1.5 + ln 2) / 2
	want := (math.Log(1.5) + math.Log(2)) / 2
	assert.InDelta(t, want, RepresentationDisparity([]int{30, 10}), 1e-12)
	assert.Equal(t, 0.0, RepresentationDisparity(nil))
}
