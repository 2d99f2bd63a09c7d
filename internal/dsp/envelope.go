package dsp

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Hilbert computes the analytic signal of samples via the FFT method:
// forward transform, zero the negative frequencies (doubling the positive
// ones), inverse transform.
func Hilbert(samples []float64) []complex128 {
	n := len(samples)
	if n < 2 {
		out := make([]complex128, n)
		for i, s := range samples {
			out[i] = complex(s, 0)
		}
		return out
	}

	fft := fourier.NewCmplxFFT(n)
	seq := make([]complex128, n)
	for i, s := range samples {
		seq[i] = complex(s, 0)
	}
	coeffs := fft.Coefficients(nil, seq)

	half := n / 2
	for i := 1; i < half; i++ {
		coeffs[i] *= 2
	}
	if n%2 != 0 {
		// Odd length: bin n/2 is a positive frequency, not Nyquist.
		coeffs[half] *= 2
	}
	for i := half + 1; i < n; i++ {
		coeffs[i] = 0
	}

	analytic := fft.Sequence(nil, coeffs)
	scale := complex(1/float64(n), 0) // gonum's transform pair is unnormalized
	for i := range analytic {
		analytic[i] *= scale
	}
	return analytic
}

// AnalyticEnvelope returns the instantaneous amplitude envelope of samples.
func AnalyticEnvelope(samples []float64) []float64 {
	analytic := Hilbert(samples)
	env := make([]float64, len(analytic))
	for i, c := range analytic {
		env[i] = cmplx.Abs(c)
	}
	return env
}

// InstantaneousPhase returns the unwrapped instantaneous phase of samples.
func InstantaneousPhase(samples []float64) []float64 {
	analytic := Hilbert(samples)
	phase := make([]float64, len(analytic))
	for i, c := range analytic {
		phase[i] = cmplx.Phase(c)
	}
	return UnwrapPhase(phase)
}

// UnwrapPhase removes 2π discontinuities from a wrapped phase sequence.
func UnwrapPhase(phase []float64) []float64 {
	if len(phase) == 0 {
		return nil
	}
	out := make([]float64, len(phase))
	out[0] = phase[0]
	offset := 0.0
	for i := 1; i < len(phase); i++ {
		d := phase[i] - phase[i-1]
		if d > math.Pi {
			offset -= 2 * math.Pi
		} else if d < -math.Pi {
			offset += 2 * math.Pi
		}
		out[i] = phase[i] + offset
	}
	return out
}

// OnsetStrength computes an energy-based onset-strength curve: half-wave
// rectified frame-to-frame differences of log frame energy over 10 ms hops.
// It returns the curve and the hop duration in seconds.
func OnsetStrength(samples []float64, sampleRate int) (strength []float64, hopSec float64) {
	hop := sampleRate / 100
	size := hop * 2
	energies := FrameEnergies(samples, size, hop)
	if len(energies) < 2 {
		return nil, 0
	}
	strength = make([]float64, len(energies)-1)
	prev := math.Log(math.Max(energies[0], epsilon))
	for i := 1; i < len(energies); i++ {
		cur := math.Log(math.Max(energies[i], epsilon))
		if d := cur - prev; d > 0 {
			strength[i-1] = d
		}
		prev = cur
	}
	return strength, float64(hop) / float64(sampleRate)
}
