// Package stats holds the significance tests and matrix statistics used by the
// disparity scorer and the synthesis constraints.
package stats

import (
	"math"

	"gonum.org/v1/gonum/stat/combin"
	"gonum.org/v1/gonum/stat/distuv"
)

// TestResult is the outcome of a contingency-table significance test
type TestResult struct {
	Statistic        float64
	PValue           float64
	DegreesOfFreedom int
	MinExpected      float64
}

// FisherExact runs a two-sided Fisher's exact test on the 2x2 table
//
//	[[a, b],
//	 [c, d]]
//
// Statistic is the Haldane-corrected odds ratio so it stays finite.
func FisherExact(a, b, c, d int) TestResult {
	r1, r2 := a+b, c+d
	c1 := a + c
	n := r1 + r2

	res := TestResult{
		Statistic:        (float64(a) + 0.5) * (float64(d) + 0.5) / ((float64(b) + 0.5) * (float64(c) + 0.5)),
		PValue:           1,
		DegreesOfFreedom: 1,
		MinExpected:      minExpected2x2(r1, r2, c1, n),
	}
	if n == 0 || r1 == 0 || r2 == 0 || c1 == 0 || c1 == n {
		return res
	}

	logDenom := combin.LogGeneralizedBinomial(float64(n), float64(c1))
	logProb := func(x int) float64 {
		return combin.LogGeneralizedBinomial(float64(r1), float64(x)) +
			combin.LogGeneralizedBinomial(float64(r2), float64(c1-x)) - logDenom
	}

	observed := logProb(a)
	lo := c1 - r2
	if lo < 0 {
		lo = 0
	}
	hi := c1
	if r1 < hi {
		hi = r1
	}

	// relative tolerance keeps tables tied with the observed one in the tail
	const relTol = 1e-7
	p := 0.0
	for x := lo; x <= hi; x++ {
		lp := logProb(x)
		if lp <= observed+relTol {
			p += math.Exp(lp)
		}
	}
	res.PValue = clampUnit(p)
	return res
}

func minExpected2x2(r1, r2, c1, n int) float64 {
	if n == 0 {
		return 0
	}
	c2 := n - c1
	m := math.Inf(1)
	for _, r := range []int{r1, r2} {
		for _, c := range []int{c1, c2} {
			e := float64(r) * float64(c) / float64(n)
			if e < m {
				m = e
			}
		}
	}
	return m
}

// ChiSquareIndependence runs Pearson's chi-square test of independence on an
// r x c table of observed counts. Empty rows and columns are dropped first.
func ChiSquareIndependence(table [][]int) TestResult {
	table = dropEmpty(table)
	rows := len(table)
	if rows < 2 || len(table[0]) < 2 {
		return TestResult{PValue: 1}
	}
	cols := len(table[0])

	rowTotals := make([]float64, rows)
	colTotals := make([]float64, cols)
	total := 0.0
	for i := range table {
		for j := range table[i] {
			v := float64(table[i][j])
			rowTotals[i] += v
			colTotals[j] += v
			total += v
		}
	}

	chiSq := 0.0
	minExp := math.Inf(1)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			expected := rowTotals[i] * colTotals[j] / total
			if expected < minExp {
				minExp = expected
			}
			diff := float64(table[i][j]) - expected
			chiSq += diff * diff / expected
		}
	}

	df := (rows - 1) * (cols - 1)
	dist := distuv.ChiSquared{K: float64(df)}
	return TestResult{
		Statistic:        chiSq,
		PValue:           clampUnit(dist.Survival(chiSq)),
		DegreesOfFreedom: df,
		MinExpected:      minExp,
	}
}

// dropEmpty removes all-zero rows and columns so expected counts stay positive
func dropEmpty(table [][]int) [][]int {
	if len(table) == 0 {
		return nil
	}
	cols := len(table[0])
	keepCol := make([]bool, cols)
	var rows [][]int
	for _, row := range table {
		sum := 0
		for j, v := range row {
			sum += v
			if v > 0 {
				keepCol[j] = true
			}
		}
		if sum > 0 {
			rows = append(rows, row)
		}
	}

	out := make([][]int, len(rows))
	for i, row := range rows {
		for j, v := range row {
			if keepCol[j] {
				out[i] = append(out[i], v)
			}
		}
	}
	return out
}

func clampUnit(p float64) float64 {
	if math.IsNaN(p) || p > 1 {
		return 1
	}
	if p < 0 {
		return 0
	}
	return p
}

// RepresentationDisparity is the mean absolute log ratio between each
// category's share and the uniform share. 0 means perfectly even representation.
func RepresentationDisparity(counts []int) float64 {
	total := 0
	k := 0
	for _, c := range counts {
		if c > 0 {
			total += c
			k++
		}
	}
	if k == 0 {
		return 0
	}
	expected := 1.0 / float64(k)
	sum := 0.0
	for _, c := range counts {
		if c == 0 {
			continue
		}
		share := float64(c) / float64(total)
		sum += math.Abs(math.Log(share / expected))
	}
	return sum / float64(k)
}
