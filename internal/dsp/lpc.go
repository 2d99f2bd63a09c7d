package dsp

import (
	"errors"
	"math"
	"math/cmplx"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// ErrUnstableLPC is returned when the Levinson–Durbin recursion encounters a
// non-positive prediction error, which indicates a degenerate input signal.
var ErrUnstableLPC = errors.New("dsp: unstable lpc model")

// PreEmphasis applies a first-order high-pass filter y[n] = x[n] - α·x[n-1],
// flattening the spectral tilt of voiced speech before LPC analysis.
func PreEmphasis(samples []float64, alpha float64) []float64 {
	if len(samples) == 0 {
		return nil
	}
	out := make([]float64, len(samples))
	out[0] = samples[0]
	for i := 1; i < len(samples); i++ {
		out[i] = samples[i] - alpha*samples[i-1]
	}
	return out
}

// Autocorrelation returns the biased autocorrelation of samples for lags
// 0..maxLag inclusive.
func Autocorrelation(samples []float64, maxLag int) []float64 {
	if maxLag >= len(samples) {
		maxLag = len(samples) - 1
	}
	r := make([]float64, maxLag+1)
	for lag := 0; lag <= maxLag; lag++ {
		var sum float64
		for i := 0; i+lag < len(samples); i++ {
			sum += samples[i] * samples[i+lag]
		}
		r[lag] = sum
	}
	return r
}

// LevinsonDurbin solves the Toeplitz normal equations for an LPC model of
// the given order from the autocorrelation sequence r (which must have at
// least order+1 entries). It returns the full polynomial coefficients
// [1, a1, …, a_order] of the prediction-error filter.
func LevinsonDurbin(r []float64, order int) ([]float64, error) {
	if len(r) < order+1 {
		return nil, errors.New("dsp: autocorrelation too short for lpc order")
	}
	if r[0] < epsilon {
		return nil, ErrUnstableLPC
	}

	a := make([]float64, order+1)
	a[0] = 1
	e := r[0]

	for i := 1; i <= order; i++ {
		acc := r[i]
		for j := 1; j < i; j++ {
			acc += a[j] * r[i-j]
		}
		k := -acc / e

		// In-place reflection update.
		for j, l := 1, i-1; j <= l; j, l = j+1, l-1 {
			aj, al := a[j], a[l]
			a[j] = aj + k*al
			if j != l {
				a[l] = al + k*aj
			}
		}
		a[i] = k

		e *= 1 - k*k
		if e <= 0 {
			return nil, ErrUnstableLPC
		}
	}
	return a, nil
}

// FormantCandidates estimates vocal-tract resonance frequencies from an
// order-p LPC model of the pre-emphasized signal. The roots of the LPC
// polynomial are found as eigenvalues of its companion matrix; roots close
// to the unit circle with angles mapping into [loHz, hiHz) are returned in
// ascending frequency order.
func FormantCandidates(samples []float64, sampleRate, order int, loHz, hiHz float64) ([]float64, error) {
	if len(samples) <= order {
		return nil, errors.New("dsp: clip too short for formant analysis")
	}
	emphasized := PreEmphasis(samples, 0.97)
	r := Autocorrelation(emphasized, order)
	coeffs, err := LevinsonDurbin(r, order)
	if err != nil {
		return nil, err
	}

	roots := polynomialRoots(coeffs)
	var formants []float64
	for _, root := range roots {
		angle := cmplx.Phase(root)
		if angle <= 0 {
			continue // conjugate pair; keep the positive-frequency root
		}
		// Roots far inside the unit circle are bandwidth-dominated poles,
		// not resonances.
		if cmplx.Abs(root) < 0.7 {
			continue
		}
		freq := angle / (2 * math.Pi) * float64(sampleRate)
		if freq >= loHz && freq < hiHz {
			formants = append(formants, freq)
		}
	}
	sort.Float64s(formants)
	return formants, nil
}

// polynomialRoots returns the complex roots of the polynomial
// c[0]·z^n + c[1]·z^(n-1) + … + c[n] as eigenvalues of its companion matrix.
func polynomialRoots(coeffs []float64) []complex128 {
	n := len(coeffs) - 1
	if n < 1 || math.Abs(coeffs[0]) < epsilon {
		return nil
	}

	companion := mat.NewDense(n, n, nil)
	for j := 0; j < n; j++ {
		companion.Set(0, j, -coeffs[j+1]/coeffs[0])
	}
	for i := 1; i < n; i++ {
		companion.Set(i, i-1, 1)
	}

	var eig mat.Eigen
	if !eig.Factorize(companion, mat.EigenNone) {
		return nil
	}
	return eig.Values(nil)
}
