package dsp

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Mean returns the arithmetic mean of vals, or 0 for an empty slice.
func Mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	return stat.Mean(vals, nil)
}

// StdDev returns the population standard deviation of vals. Fewer than two
// values yield 0.
func StdDev(vals []float64) float64 {
	if len(vals) < 2 {
		return 0
	}
	mean := stat.Mean(vals, nil)
	var sum float64
	for _, v := range vals {
		d := v - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(vals)))
}

// CoefficientOfVariation returns σ/μ of vals. A near-zero mean yields 0 to
// avoid blowing up ratios on DC-free signals.
func CoefficientOfVariation(vals []float64) float64 {
	mean := Mean(vals)
	if math.Abs(mean) < epsilon {
		return 0
	}
	return StdDev(vals) / math.Abs(mean)
}

// Percentile returns the p-th percentile (p in [0, 100]) of vals using
// linear interpolation between closest ranks. The input is not modified.
func Percentile(vals []float64, p float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)
	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[len(sorted)-1]
	}
	pos := p / 100 * float64(len(sorted)-1)
	lo := int(pos)
	frac := pos - float64(lo)
	if lo+1 >= len(sorted) {
		return sorted[lo]
	}
	return sorted[lo]*(1-frac) + sorted[lo+1]*frac
}

// Median returns the 50th percentile of vals.
func Median(vals []float64) float64 {
	return Percentile(vals, 50)
}

// Kurtosis returns the plain (non-excess) kurtosis of vals. A Gaussian
// signal scores 3. Fewer than four values yield 3 so degenerate inputs read
// as unremarkable rather than pathological.
func Kurtosis(vals []float64) float64 {
	if len(vals) < 4 {
		return 3
	}
	return stat.ExKurtosis(vals, nil) + 3
}

// Skewness returns the sample skewness of vals, or 0 for fewer than three
// values.
func Skewness(vals []float64) float64 {
	if len(vals) < 3 {
		return 0
	}
	return stat.Skew(vals, nil)
}

// GeometricMean returns the geometric mean of vals, clamping each term to
// epsilon so a single zero does not erase the rest.
func GeometricMean(vals ...float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vals {
		sum += math.Log(math.Max(v, epsilon))
	}
	return math.Exp(sum / float64(len(vals)))
}

// Clamp limits v to the range [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Clamp01 limits v to [0, 1].
func Clamp01(v float64) float64 {
	return Clamp(v, 0, 1)
}

// RangeScore maps v against a target band [lo, hi]: inside the band the
// score is 1, outside it decays linearly to 0 over one band-width. Used by
// the analyzers for "natural range" style scoring.
func RangeScore(v, lo, hi float64) float64 {
	if v >= lo && v <= hi {
		return 1
	}
	width := hi - lo
	if width < epsilon {
		return 0
	}
	var dist float64
	if v < lo {
		dist = lo - v
	} else {
		dist = v - hi
	}
	return Clamp01(1 - dist/width)
}
