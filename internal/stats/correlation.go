package stats

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// CorrelationMatrix computes the Pearson correlation matrix of the given
// feature columns (all of equal length). Rows holding a NaN in any column are
// skipped. Returns nil when fewer than two columns or three complete rows exist.
func CorrelationMatrix(columns [][]float64) *mat.SymDense {
	p := len(columns)
	if p < 2 {
		return nil
	}
	n := len(columns[0])

	data := make([]float64, 0, n*p)
	rows := 0
	for i := 0; i < n; i++ {
		complete := true
		for j := 0; j < p; j++ {
			if math.IsNaN(columns[j][i]) {
				complete = false
				break
			}
		}
		if !complete {
			continue
		}
		for j := 0; j < p; j++ {
			data = append(data, columns[j][i])
		}
		rows++
	}
	if rows < 3 {
		return nil
	}

	x := mat.NewDense(rows, p, data)
	var corr mat.SymDense
	stat.CorrelationMatrix(&corr, x, nil)
	return &corr
}

// MaxAbsDeviation is the largest absolute element-wise difference between two
// correlation matrices. NaN entries (zero-variance columns) count as 0.
func MaxAbsDeviation(a, b *mat.SymDense) float64 {
	if a == nil || b == nil {
		return 0
	}
	n := a.SymmetricDim()
	if b.SymmetricDim() != n {
		return math.Inf(1)
	}
	worst := 0.0
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := math.Abs(zeroNaN(a.At(i, j)) - zeroNaN(b.At(i, j)))
			if d > worst {
				worst = d
			}
		}
	}
	return worst
}

func zeroNaN(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return v
}
