package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCorrelationMatrix_PerfectLinear(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5}
	y := []float64{2, 4, 6, 8, 10}
	z := []float64{5, 4, 3, 2, 1}

	m := CorrelationMatrix([][]float64{x, y, z})
	require.NotNil(t, m)
	assert.InDelta(t, 1.0, m.At(0, 1), 1e-9)
	assert.InDelta(t, -1.0, m.At(0, 2), 1e-9)
}

func TestCorrelationMatrix_SkipsNaNRows(t *testing.T) {
	x := []float64{1, 2, math.NaN(), 4, 5}
	y := []float64{1, 2, 100, 4, 5}

	m := CorrelationMatrix([][]float64{x, y})
	require.NotNil(t, m)
	assert.InDelta(t, 1.0, m.At(0, 1), 1e-9)
}

func TestCorrelationMatrix_TooSmall(t *testing.T) {
	assert.Nil(t, CorrelationMatrix([][]float64{{1, 2, 3}}))
	assert.Nil(t, CorrelationMatrix([][]float64{{1, 2}, {3, 4}}))
}

func TestMaxAbsDeviation(t *testing.T) {
	a := CorrelationMatrix([][]float64{{1, 2, 3, 4}, {1, 2, 3, 4}})
	b := CorrelationMatrix([][]float64{{1, 2, 3, 4}, {4, 3, 2, 1}})

	assert.InDelta(t, 2.0, MaxAbsDeviation(a, b), 1e-9)
	assert.Equal(t, 0.0, MaxAbsDeviation(a, a))
	assert.Equal(t, 0.0, MaxAbsDeviation(nil, b))
}
