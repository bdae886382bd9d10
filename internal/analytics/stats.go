package analytics

import (
	"math"
	"sort"
)

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// stdDev is the population standard deviation (divides by n, not n-1).
func stdDev(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := mean(xs)
	var ss float64
	for _, x := range xs {
		d := x - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)))
}

// median sorts a copy and averages the two middle values on even counts.
func median(xs []float64) float64 {
	n := len(xs)
	if n == 0 {
		return 0
	}
	sorted := make([]float64, n)
	copy(sorted, xs)
	sort.Float64s(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// tailMean averages the last k elements, or everything when fewer exist.
func tailMean(xs []float64, k int) float64 {
	if len(xs) > k {
		xs = xs[len(xs)-k:]
	}
	return mean(xs)
}

// trendOf compares the mean of the last three values against the mean of
// the three before them. With fewer than six values, or a zero base, the
// sequence is reported stable. Changes under 5% are noise.
func trendOf(xs []float64) (direction string, pctChange float64) {
	if len(xs) < 6 {
		return TrendStable, 0
	}
	recent := mean(xs[len(xs)-3:])
	earlier := mean(xs[len(xs)-6 : len(xs)-3])
	if earlier == 0 {
		return TrendStable, 0
	}
	pct := (recent - earlier) / earlier * 100
	if math.Abs(pct) < 5 {
		return TrendStable, pct
	}
	if pct > 0 {
		return TrendIncreasing, pct
	}
	return TrendDecreasing, math.Abs(pct)
}

// confidenceInterval is the 95% parametric interval around the mean,
// with the lower bound clamped at zero.
func confidenceInterval(xs []float64) ConfidenceInterval {
	n := len(xs)
	if n == 0 {
		return ConfidenceInterval{}
	}
	m := mean(xs)
	margin := 1.96 * stdDev(xs) / math.Sqrt(float64(n))
	lower := m - margin
	if lower < 0 {
		lower = 0
	}
	return ConfidenceInterval{Lower: lower, Upper: m + margin}
}

// halvesTrend splits a series into first/second halves by count and
// compares the means: >1.2x is increasing, <0.8x is decreasing.
func halvesTrend(xs []float64) string {
	if len(xs) < 2 {
		return TrendStable
	}
	half := len(xs) / 2
	first := mean(xs[:half])
	second := mean(xs[half:])
	if first == 0 {
		if second > 0 {
			return TrendIncreasing
		}
		return TrendStable
	}
	switch {
	case second > 1.2*first:
		return TrendIncreasing
	case second < 0.8*first:
		return TrendDecreasing
	default:
		return TrendStable
	}
}

func round1(x float64) float64 {
	return math.Round(x*10) / 10
}

func clamp(x, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, x))
}
