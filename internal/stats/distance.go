package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Wasserstein1 is the first Wasserstein (earth mover's) distance between the
// empirical distributions of two equally weighted samples: the area between
// their CDFs. Empty samples have distance 0.
func Wasserstein1(u, v []float64) float64 {
	if len(u) == 0 || len(v) == 0 {
		return 0
	}
	us := sortedCopy(u)
	vs := sortedCopy(v)
	points := sortedCopy(append(append([]float64(nil), us...), vs...))

	total := 0.0
	for i := 0; i < len(points)-1; i++ {
		width := points[i+1] - points[i]
		if width == 0 {
			continue
		}
		fu := stat.CDF(points[i], stat.Empirical, us, nil)
		fv := stat.CDF(points[i], stat.Empirical, vs, nil)
		total += math.Abs(fu-fv) * width
	}
	return total
}

// UniformDistance is the Wasserstein distance between a set of category
// shares and k equal shares of 1/k. Passing the baseline category count as
// k keeps before/after distances comparable when categories vanish.
func UniformDistance(shares []float64, k int) float64 {
	if len(shares) == 0 || k <= 0 {
		return 0
	}
	uniform := make([]float64, k)
	for i := range uniform {
		uniform[i] = 1 / float64(k)
	}
	return Wasserstein1(shares, uniform)
}

// ImprovementPercent is the relative reduction from before to after, or 0
// when before is already 0
func ImprovementPercent(before, after float64) float64 {
	if before <= 0 {
		return 0
	}
	return (before - after) / before * 100
}

func sortedCopy(x []float64) []float64 {
	out := append([]float64(nil), x...)
	sort.Float64s(out)
	return out
}
