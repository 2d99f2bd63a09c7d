package dsp

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Spectrogram is a short-time magnitude spectrogram. Mag is indexed
// [frame][bin] with bins spanning 0..SampleRate/2 in steps of BinHz.
type Spectrogram struct {
	Mag        [][]float64
	BinHz      float64
	SampleRate int
	FrameSize  int
	Hop        int
}

// ComputeSpectrogram builds a Hann-windowed short-time magnitude spectrogram
// with the given frame size and hop, both in samples. Clips shorter than one
// frame produce an empty spectrogram.
func ComputeSpectrogram(samples []float64, sampleRate, frameSize, hop int) *Spectrogram {
	s := &Spectrogram{
		BinHz:      float64(sampleRate) / float64(frameSize),
		SampleRate: sampleRate,
		FrameSize:  frameSize,
		Hop:        hop,
	}
	frames := Frames(samples, frameSize, hop)
	if len(frames) == 0 {
		return s
	}

	fft := fourier.NewFFT(frameSize)
	window := hannWindow(frameSize)
	windowed := make([]float64, frameSize)
	coeffs := make([]complex128, frameSize/2+1)

	s.Mag = make([][]float64, len(frames))
	for i, frame := range frames {
		for j, v := range frame {
			windowed[j] = v * window[j]
		}
		fft.Coefficients(coeffs, windowed)
		mag := make([]float64, len(coeffs))
		for j, c := range coeffs {
			mag[j] = cmplxAbs(c)
		}
		s.Mag[i] = mag
	}
	return s
}

// Spectrum computes the magnitude spectrum of the whole clip in one FFT and
// returns the magnitudes together with the bin width in Hz.
func Spectrum(samples []float64, sampleRate int) (mag []float64, binHz float64) {
	if len(samples) < 2 {
		return nil, 0
	}
	fft := fourier.NewFFT(len(samples))
	coeffs := fft.Coefficients(nil, samples)
	mag = make([]float64, len(coeffs))
	for i, c := range coeffs {
		mag[i] = cmplxAbs(c)
	}
	return mag, float64(sampleRate) / float64(len(samples))
}

// BinRange converts a frequency band in Hz to an inclusive-exclusive bin
// index range [lo, hi) for a spectrum with nBins bins of width binHz.
func BinRange(nBins int, binHz, loHz, hiHz float64) (lo, hi int) {
	if binHz <= 0 || nBins == 0 {
		return 0, 0
	}
	lo = int(math.Ceil(loHz / binHz))
	hi = int(math.Ceil(hiHz / binHz))
	if lo < 0 {
		lo = 0
	}
	if hi > nBins {
		hi = nBins
	}
	if lo > hi {
		lo = hi
	}
	return lo, hi
}

// BandEnergy sums squared magnitudes over the [loHz, hiHz) band of a single
// magnitude spectrum.
func BandEnergy(mag []float64, binHz, loHz, hiHz float64) float64 {
	lo, hi := BinRange(len(mag), binHz, loHz, hiHz)
	var sum float64
	for _, m := range mag[lo:hi] {
		sum += m * m
	}
	return sum
}

// Centroid returns the magnitude-weighted mean frequency of a spectrum frame
// in Hz, or 0 for a silent frame.
func Centroid(mag []float64, binHz float64) float64 {
	var num, den float64
	for i, m := range mag {
		num += float64(i) * binHz * m
		den += m
	}
	if den < epsilon {
		return 0
	}
	return num / den
}

// Flatness returns the spectral flatness (Wiener entropy) of a magnitude
// frame: the ratio of geometric to arithmetic mean of the power spectrum.
// 1.0 is white noise, values near 0 are tonal.
func Flatness(mag []float64) float64 {
	if len(mag) == 0 {
		return 0
	}
	var logSum, sum float64
	for _, m := range mag {
		p := math.Max(m*m, epsilon)
		logSum += math.Log(p)
		sum += p
	}
	geo := math.Exp(logSum / float64(len(mag)))
	arith := sum / float64(len(mag))
	if arith < epsilon {
		return 0
	}
	return Clamp01(geo / arith)
}

// Contrast returns the mean spectral contrast of a magnitude frame across
// the given number of log-spaced sub-bands: the dB gap between each band's
// top and bottom quintile magnitudes.
func Contrast(mag []float64, bands int) float64 {
	if len(mag) < bands*2 || bands <= 0 {
		return 0
	}
	var total float64
	// Log-spaced band edges over the bin range, skipping DC.
	for b := range bands {
		lo := 1 + int(math.Pow(float64(len(mag)-1), float64(b)/float64(bands)))
		hi := 1 + int(math.Pow(float64(len(mag)-1), float64(b+1)/float64(bands)))
		if hi <= lo {
			hi = lo + 1
		}
		if hi > len(mag) {
			hi = len(mag)
		}
		band := mag[lo:hi]
		top := Percentile(band, 80)
		bottom := Percentile(band, 20)
		total += DB(top) - DB(bottom)
	}
	return total / float64(bands)
}

// Cepstra computes cepstral-style coefficients for every frame of the
// spectrogram: a DCT-II over the log-magnitude spectrum truncated to n
// coefficients. These capture coarse spectral shape and are the basis of the
// naturalness spectral-dynamics metric.
func Cepstra(s *Spectrogram, n int) [][]float64 {
	if len(s.Mag) == 0 {
		return nil
	}
	out := make([][]float64, len(s.Mag))
	for i, mag := range s.Mag {
		logMag := make([]float64, len(mag))
		for j, m := range mag {
			logMag[j] = math.Log(math.Max(m, epsilon))
		}
		out[i] = dctII(logMag, n)
	}
	return out
}

// SpectralTilt fits a line to log2(frequency) vs dB magnitude over [loHz,
// hiHz) and returns the slope in dB per octave.
func SpectralTilt(mag []float64, binHz, loHz, hiHz float64) float64 {
	lo, hi := BinRange(len(mag), binHz, loHz, hiHz)
	if lo == 0 {
		lo = 1 // log2 of DC is undefined
	}
	if hi-lo < 2 {
		return 0
	}
	var sx, sy, sxx, sxy float64
	n := float64(hi - lo)
	for i := lo; i < hi; i++ {
		x := math.Log2(float64(i) * binHz)
		y := DB(mag[i])
		sx += x
		sy += y
		sxx += x * x
		sxy += x * y
	}
	den := n*sxx - sx*sx
	if math.Abs(den) < epsilon {
		return 0
	}
	return (n*sxy - sx*sy) / den
}

// dctII computes the first n DCT-II coefficients of x. The transform length
// is small and fixed per call, so a direct O(n·len) loop is used.
func dctII(x []float64, n int) []float64 {
	if n > len(x) {
		n = len(x)
	}
	out := make([]float64, n)
	scale := math.Pi / float64(len(x))
	for k := range n {
		var sum float64
		for i, v := range x {
			sum += v * math.Cos(scale*(float64(i)+0.5)*float64(k))
		}
		out[k] = sum
	}
	return out
}

// hannWindow returns an n-point Hann window.
func hannWindow(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n-1))
	}
	return w
}

func cmplxAbs(c complex128) float64 {
	return math.Hypot(real(c), imag(c))
}
