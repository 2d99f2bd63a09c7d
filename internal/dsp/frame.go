// Package dsp implements the shared signal-processing primitives used by the
// segmentation and scoring pipeline: framing and energy measurement, FFT
// spectral analysis, autocorrelation pitch tracking, linear-predictive
// formant estimation, and analytic-signal envelope extraction.
//
// All functions operate on float64 PCM samples nominally in [-1, 1] and are
// deterministic: the same input always produces the same output. The package
// holds no global state and every function is safe for concurrent use.
package dsp

import "math"

// epsilon guards logarithms and divisions against zero-valued signals.
const epsilon = 1e-10

// DownmixMono averages interleaved multi-channel samples into a mono buffer.
// A channel count below 2 returns the input unchanged.
func DownmixMono(samples []float64, channels int) []float64 {
	if channels < 2 {
		return samples
	}
	frames := len(samples) / channels
	out := make([]float64, frames)
	for i := range frames {
		var sum float64
		for c := range channels {
			sum += samples[i*channels+c]
		}
		out[i] = sum / float64(channels)
	}
	return out
}

// PeakNormalize scales samples so the maximum absolute amplitude is 1.0 and
// returns the scaled copy together with the original peak. A silent buffer
// (peak below epsilon) is returned unchanged with a zero peak, so callers can
// detect silence without a separate pass.
func PeakNormalize(samples []float64) (normalized []float64, peak float64) {
	for _, s := range samples {
		if a := math.Abs(s); a > peak {
			peak = a
		}
	}
	if peak < epsilon {
		return samples, 0
	}
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = s / peak
	}
	return out, peak
}

// RMS returns the root-mean-square amplitude of samples. An empty slice
// yields 0.
func RMS(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += s * s
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// DB converts a linear amplitude to decibels, clamping the input to epsilon
// so silent windows map to a large negative value instead of -Inf.
func DB(amplitude float64) float64 {
	return 20 * math.Log10(math.Max(amplitude, epsilon))
}

// Frames slices samples into frames of the given size advancing by hop.
// The returned frames alias the input buffer; callers must not mutate them.
// A trailing remainder shorter than size is not emitted.
func Frames(samples []float64, size, hop int) [][]float64 {
	if size <= 0 || hop <= 0 || len(samples) < size {
		return nil
	}
	n := (len(samples)-size)/hop + 1
	frames := make([][]float64, 0, n)
	for start := 0; start+size <= len(samples); start += hop {
		frames = append(frames, samples[start:start+size])
	}
	return frames
}

// FrameEnergies returns the mean-square energy of each frame of the given
// size advancing by hop.
func FrameEnergies(samples []float64, size, hop int) []float64 {
	frames := Frames(samples, size, hop)
	energies := make([]float64, len(frames))
	for i, f := range frames {
		var sum float64
		for _, s := range f {
			sum += s * s
		}
		energies[i] = sum / float64(len(f))
	}
	return energies
}

// DecodePCM16 converts little-endian int16 PCM bytes to float64 samples in
// [-1, 1). Odd trailing bytes are ignored.
func DecodePCM16(pcm []byte) []float64 {
	n := len(pcm) / 2
	out := make([]float64, n)
	for i := range n {
		s := int16(pcm[i*2]) | int16(pcm[i*2+1])<<8
		out[i] = float64(s) / 32768
	}
	return out
}

// ZeroCrossingIntervals returns the distances, in samples, between successive
// sign changes of the signal.
func ZeroCrossingIntervals(samples []float64) []int {
	var intervals []int
	last := -1
	for i := 1; i < len(samples); i++ {
		if (samples[i-1] >= 0) != (samples[i] >= 0) {
			if last >= 0 {
				intervals = append(intervals, i-last)
			}
			last = i
		}
	}
	return intervals
}
