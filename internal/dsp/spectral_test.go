package dsp

import (
	"math"
	"testing"
)

func TestSpectrum_TonePeakBin(t *testing.T) {
	// 4800 samples at 48 kHz give 10 Hz bins: a 1 kHz tone peaks at bin 100.
	samples := sine(1000, 48000, 0.1, 1)
	mag, binHz := Spectrum(samples, 48000)
	if math.Abs(binHz-10) > 1e-9 {
		t.Fatalf("binHz = %v, want 10", binHz)
	}
	if len(mag) != len(samples)/2+1 {
		t.Fatalf("bins = %d, want %d", len(mag), len(samples)/2+1)
	}

	peak := 0
	for i, m := range mag {
		if m > mag[peak] {
			peak = i
		}
	}
	if peak != 100 {
		t.Errorf("peak bin = %d (%.0f Hz), want 100 (1000 Hz)", peak, float64(peak)*binHz)
	}
}

func TestSpectrum_ShortInput(t *testing.T) {
	mag, binHz := Spectrum([]float64{0.5}, 48000)
	if mag != nil || binHz != 0 {
		t.Errorf("Spectrum on one sample = (%v, %v), want (nil, 0)", mag, binHz)
	}
}

func TestComputeSpectrogram(t *testing.T) {
	samples := sine(1000, 48000, 0.5, 1)
	spec := ComputeSpectrogram(samples, 48000, 1024, 512)

	wantFrames := (len(samples)-1024)/512 + 1
	if len(spec.Mag) != wantFrames {
		t.Fatalf("frames = %d, want %d", len(spec.Mag), wantFrames)
	}
	if len(spec.Mag[0]) != 1024/2+1 {
		t.Fatalf("bins = %d, want 513", len(spec.Mag[0]))
	}

	// Every frame's peak bin sits within one bin of the tone frequency.
	for i, mag := range spec.Mag {
		peak := 0
		for j, m := range mag {
			if m > mag[peak] {
				peak = j
			}
		}
		freq := float64(peak) * spec.BinHz
		if math.Abs(freq-1000) > 2*spec.BinHz {
			t.Fatalf("frame %d peak at %.1f Hz, want ~1000", i, freq)
		}
	}
}

func TestComputeSpectrogram_ShortClip(t *testing.T) {
	spec := ComputeSpectrogram(make([]float64, 100), 48000, 1024, 512)
	if len(spec.Mag) != 0 {
		t.Errorf("frames = %d, want 0 for a sub-frame clip", len(spec.Mag))
	}
}

func TestBinRange(t *testing.T) {
	tests := []struct {
		name           string
		nBins          int
		binHz          float64
		loHz, hiHz     float64
		wantLo, wantHi int
	}{
		{"exact edges", 100, 10, 200, 400, 20, 40},
		{"rounds up", 100, 10, 205, 395, 21, 40},
		{"clamps high", 100, 10, 500, 5000, 50, 100},
		{"zero binHz", 100, 0, 200, 400, 0, 0},
		{"inverted collapses", 100, 10, 900, 400, 40, 40},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			lo, hi := BinRange(tc.nBins, tc.binHz, tc.loHz, tc.hiHz)
			if lo != tc.wantLo || hi != tc.wantHi {
				t.Errorf("BinRange = (%d, %d), want (%d, %d)", lo, hi, tc.wantLo, tc.wantHi)
			}
		})
	}
}

func TestBandEnergy(t *testing.T) {
	// One hot bin at 100 Hz with binHz 10.
	mag := make([]float64, 50)
	mag[10] = 2
	if got := BandEnergy(mag, 10, 50, 150); math.Abs(got-4) > 1e-12 {
		t.Errorf("in-band energy = %v, want 4", got)
	}
	if got := BandEnergy(mag, 10, 200, 400); got != 0 {
		t.Errorf("out-of-band energy = %v, want 0", got)
	}
}

func TestCentroid(t *testing.T) {
	mag := make([]float64, 50)
	mag[10] = 1
	if got := Centroid(mag, 10); math.Abs(got-100) > 1e-9 {
		t.Errorf("Centroid = %v, want 100", got)
	}
	if got := Centroid(make([]float64, 50), 10); got != 0 {
		t.Errorf("Centroid of silence = %v, want 0", got)
	}
}

func TestFlatness(t *testing.T) {
	flat := make([]float64, 64)
	for i := range flat {
		flat[i] = 0.5
	}
	if got := Flatness(flat); math.Abs(got-1) > 1e-9 {
		t.Errorf("Flatness of flat spectrum = %v, want 1", got)
	}

	tonal := make([]float64, 64)
	tonal[10] = 1
	if got := Flatness(tonal); got > 0.01 {
		t.Errorf("Flatness of single bin = %v, want near 0", got)
	}
}

func TestCepstra(t *testing.T) {
	spec := ComputeSpectrogram(sine(1000, 48000, 0.5, 1), 48000, 1024, 512)
	ceps := Cepstra(spec, 13)
	if len(ceps) != len(spec.Mag) {
		t.Fatalf("cepstra frames = %d, want %d", len(ceps), len(spec.Mag))
	}
	for i, c := range ceps {
		if len(c) != 13 {
			t.Fatalf("frame %d coefficients = %d, want 13", i, len(c))
		}
	}
	if Cepstra(&Spectrogram{}, 13) != nil {
		t.Error("Cepstra of empty spectrogram must be nil")
	}
}

func TestSpectralTilt(t *testing.T) {
	// A flat spectrum has zero tilt.
	flat := make([]float64, 200)
	for i := range flat {
		flat[i] = 1
	}
	if got := SpectralTilt(flat, 10, 100, 1000); math.Abs(got) > 1e-9 {
		t.Errorf("tilt of flat spectrum = %v, want 0", got)
	}

	// Magnitude halving per octave is -6 dB per octave.
	sloped := make([]float64, 200)
	for i := 1; i < len(sloped); i++ {
		freq := float64(i) * 10
		sloped[i] = 100 / freq
	}
	got := SpectralTilt(sloped, 10, 100, 1000)
	if math.Abs(got+6.02) > 0.1 {
		t.Errorf("tilt = %v dB/octave, want ~-6.02", got)
	}
}

func TestContrast(t *testing.T) {
	// A spiky spectrum has high contrast, a flat one has none.
	flat := make([]float64, 128)
	for i := range flat {
		flat[i] = 1
	}
	if got := Contrast(flat, 6); math.Abs(got) > 1e-9 {
		t.Errorf("contrast of flat spectrum = %v, want 0", got)
	}
	if got := Contrast(make([]float64, 4), 6); got != 0 {
		t.Errorf("contrast of tiny spectrum = %v, want 0", got)
	}
}
