package dsp

import (
	"math"
	"testing"
)

func TestMean(t *testing.T) {
	if got := Mean([]float64{2, 4, 6}); math.Abs(got-4) > 1e-12 {
		t.Errorf("Mean = %v, want 4", got)
	}
	if got := Mean(nil); got != 0 {
		t.Errorf("Mean(nil) = %v, want 0", got)
	}
}

func TestStdDev(t *testing.T) {
	// Population standard deviation of {2, 4} is 1.
	if got := StdDev([]float64{2, 4}); math.Abs(got-1) > 1e-12 {
		t.Errorf("StdDev = %v, want 1", got)
	}
	if got := StdDev([]float64{5}); got != 0 {
		t.Errorf("StdDev of one value = %v, want 0", got)
	}
	if got := StdDev([]float64{3, 3, 3, 3}); got != 0 {
		t.Errorf("StdDev of constant = %v, want 0", got)
	}
}

func TestCoefficientOfVariation(t *testing.T) {
	if got := CoefficientOfVariation([]float64{2, 4}); math.Abs(got-1.0/3) > 1e-12 {
		t.Errorf("CV = %v, want 1/3", got)
	}
	// Zero-mean input must not blow up.
	if got := CoefficientOfVariation([]float64{-1, 1}); got != 0 {
		t.Errorf("CV of zero-mean = %v, want 0", got)
	}
}

func TestPercentile(t *testing.T) {
	vals := []float64{4, 1, 3, 2}
	tests := []struct {
		p    float64
		want float64
	}{
		{0, 1},
		{50, 2.5},
		{100, 4},
		{25, 1.75},
	}
	for _, tc := range tests {
		if got := Percentile(vals, tc.p); math.Abs(got-tc.want) > 1e-12 {
			t.Errorf("Percentile(%v) = %v, want %v", tc.p, got, tc.want)
		}
	}
	// Input order must be preserved.
	if vals[0] != 4 {
		t.Error("Percentile mutated its input")
	}
	if got := Percentile(nil, 50); got != 0 {
		t.Errorf("Percentile(nil) = %v, want 0", got)
	}
}

func TestMedian(t *testing.T) {
	if got := Median([]float64{1, 2, 100}); math.Abs(got-2) > 1e-12 {
		t.Errorf("Median = %v, want 2", got)
	}
}

func TestKurtosis(t *testing.T) {
	if got := Kurtosis([]float64{1, 2}); got != 3 {
		t.Errorf("Kurtosis of short input = %v, want neutral 3", got)
	}
	// A sine's amplitude distribution is platykurtic, kurtosis 1.5.
	got := Kurtosis(sine(1000, 48000, 0.5, 0.5))
	if math.Abs(got-1.5) > 0.1 {
		t.Errorf("sine kurtosis = %v, want ~1.5", got)
	}
}

func TestSkewness(t *testing.T) {
	if got := Skewness([]float64{1, 2}); got != 0 {
		t.Errorf("Skewness of short input = %v, want 0", got)
	}
	// A symmetric signal has near-zero skew.
	if got := Skewness(sine(1000, 48000, 0.5, 0.5)); math.Abs(got) > 0.05 {
		t.Errorf("sine skewness = %v, want ~0", got)
	}
}

func TestGeometricMean(t *testing.T) {
	if got := GeometricMean(1, 1, 1); math.Abs(got-1) > 1e-9 {
		t.Errorf("GeometricMean(1,1,1) = %v, want 1", got)
	}
	if got := GeometricMean(0.25, 1); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("GeometricMean(0.25,1) = %v, want 0.5", got)
	}
	// A zero term is clamped, not annihilating.
	if got := GeometricMean(0, 1); got <= 0 {
		t.Errorf("GeometricMean(0,1) = %v, want > 0", got)
	}
	if got := GeometricMean(); got != 0 {
		t.Errorf("GeometricMean() = %v, want 0", got)
	}
}

func TestClamp(t *testing.T) {
	tests := []struct {
		v, lo, hi, want float64
	}{
		{0.5, 0, 1, 0.5},
		{-1, 0, 1, 0},
		{2, 0, 1, 1},
		{0, 0, 1, 0},
		{1, 0, 1, 1},
	}
	for _, tc := range tests {
		if got := Clamp(tc.v, tc.lo, tc.hi); got != tc.want {
			t.Errorf("Clamp(%v, %v, %v) = %v, want %v", tc.v, tc.lo, tc.hi, got, tc.want)
		}
	}
}

func TestRangeScore(t *testing.T) {
	tests := []struct {
		name      string
		v, lo, hi float64
		want      float64
	}{
		{"inside", 5, 0, 10, 1},
		{"at lo", 0, 0, 10, 1},
		{"at hi", 10, 0, 10, 1},
		{"half a width below", -5, 0, 10, 0.5},
		{"full width below", -10, 0, 10, 0},
		{"half a width above", 15, 0, 10, 0.5},
		{"far above", 100, 0, 10, 0},
		{"degenerate band", 5, 3, 3, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := RangeScore(tc.v, tc.lo, tc.hi); math.Abs(got-tc.want) > 1e-12 {
				t.Errorf("RangeScore(%v, %v, %v) = %v, want %v", tc.v, tc.lo, tc.hi, got, tc.want)
			}
		})
	}
}
