package aggregation

import (
	"math"
	"slices"
)

// quartiles returns Q1, median and Q3 of values using Tukey's hinges: the
// lower and upper halves both include the median when len(values) is odd.
func quartiles(values []float64) (q1, med, q3 float64) {
	if len(values) == 0 {
		return 0, 0, 0
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)

	n := len(sorted)
	half := (n + 1) / 2
	return median(sorted[:half]), median(sorted), median(sorted[n-half:])
}

// median expects sorted input.
func median(sorted []float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// zScore returns the two-sided critical value for a confidence level in
// (0,1), e.g. 0.95 -> 1.959964.
func zScore(level float64) float64 {
	return math.Sqrt2 * math.Erfinv(level)
}

// weightedStats returns the weighted mean, the weighted population variance
// and Kish's effective sample size.
func weightedStats(values, weights []float64) (mean, variance, effN float64) {
	var sumW, sumW2, sumWX float64
	for i, x := range values {
		w := weights[i]
		sumW += w
		sumW2 += w * w
		sumWX += w * x
	}
	if sumW == 0 {
		return 0, 0, 0
	}
	mean = sumWX / sumW

	var ss float64
	for i, x := range values {
		d := x - mean
		ss += weights[i] * d * d
	}
	return mean, ss / sumW, sumW * sumW / sumW2
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
