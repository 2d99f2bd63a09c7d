package analyze

import (
	"math"

	"github.com/soniclint/soniclint/internal/config"
	"github.com/soniclint/soniclint/internal/dsp"
)

const (
	naturalPitchLoHz = 80.0
	naturalPitchHiHz = 400.0

	// pitchHopSeconds matches the pitch tracker's 25 ms hop.
	pitchHopSeconds = 0.025

	// lowVoicingScore is the fixed result when a clip has too little voiced
	// content to measure prosody.
	lowVoicingScore = 0.3

	// insufficientEvidence is the neutral sub-score when a clip is too short
	// for a rhythm or spectral-dynamics estimate.
	insufficientEvidence = 0.5

	minVoicedFrames = 10
	minOnsets       = 4
)

// Naturalness scores prosodic liveliness: pitch variation, rhythmic
// patterning, and spectral dynamics, each against a "natural" band. Flat
// synthetic delivery lands low, erratic delivery lands low, human-like
// variation lands high. Safe for concurrent use.
type Naturalness struct {
	cfg config.NaturalnessConfig
}

// NewNaturalness creates a naturalness analyzer with the given tuning.
func NewNaturalness(cfg config.NaturalnessConfig) *Naturalness {
	return &Naturalness{cfg: cfg}
}

// Analyze scores one segment.
func (a *Naturalness) Analyze(samples []float64, sampleRate int) Result {
	pitch := a.pitchVariation(samples, sampleRate)
	rhythm := a.rhythm(samples, sampleRate)
	spectral := a.spectralDynamics(samples, sampleRate)

	score := dsp.Clamp01(a.cfg.PitchWeight*pitch +
		a.cfg.RhythmWeight*rhythm +
		a.cfg.SpectralWeight*spectral)
	return Result{Score: score, Band: a.band(score)}
}

func (a *Naturalness) band(score float64) string {
	switch {
	case score >= a.cfg.OKThreshold:
		return BandOK
	case score >= a.cfg.RoboticThreshold:
		return BandRobotic
	default:
		return BandMonotone
	}
}

// pitchVariation scores the coefficient of variation of the voiced pitch
// track against the natural band, blended 70/30 with the contour rate:
// direction changes of frame-to-frame pitch deltas per voiced second.
func (a *Naturalness) pitchVariation(samples []float64, sampleRate int) float64 {
	track := dsp.PitchTrack(samples, sampleRate, naturalPitchLoHz, naturalPitchHiHz)
	voiced := dsp.VoicedFrames(track)
	if len(voiced) < minVoicedFrames {
		return lowVoicingScore
	}

	cvScore := naturalBand(dsp.CoefficientOfVariation(voiced), a.cfg.PitchCV)

	changes := 0
	prevSign := 0
	for i := 1; i < len(voiced); i++ {
		sign := 0
		if d := voiced[i] - voiced[i-1]; d > 0 {
			sign = 1
		} else if d < 0 {
			sign = -1
		}
		if sign != 0 && prevSign != 0 && sign != prevSign {
			changes++
		}
		if sign != 0 {
			prevSign = sign
		}
	}
	voicedSec := float64(len(voiced)) * pitchHopSeconds
	contour := naturalBand(float64(changes)/voicedSec, a.cfg.ContourChangesPerSec)

	return 0.7*cvScore + 0.3*contour
}

// rhythm detects onsets from the energy onset-strength curve and scores the
// inter-onset interval CV against the natural band, blended 60/40 with the
// long-pause ratio (intervals more than double the mean).
func (a *Naturalness) rhythm(samples []float64, sampleRate int) float64 {
	strength, hopSec := dsp.OnsetStrength(samples, sampleRate)
	if len(strength) < 2 {
		return insufficientEvidence
	}

	// One onset per above-gate run: consecutive strong hops collapse into
	// the run's first hop.
	gate := dsp.Mean(strength) + dsp.StdDev(strength)
	var onsets []float64
	inRun := false
	for i, s := range strength {
		if s > gate {
			if !inRun {
				onsets = append(onsets, float64(i)*hopSec)
			}
			inRun = true
		} else {
			inRun = false
		}
	}
	if len(onsets) < minOnsets {
		return insufficientEvidence
	}

	intervals := make([]float64, len(onsets)-1)
	for i := 1; i < len(onsets); i++ {
		intervals[i-1] = onsets[i] - onsets[i-1]
	}
	ioiScore := naturalBand(dsp.CoefficientOfVariation(intervals), a.cfg.OnsetIntervalCV)

	mean := dsp.Mean(intervals)
	long := 0
	for _, iv := range intervals {
		if iv > 2*mean {
			long++
		}
	}
	pauseScore := naturalBand(float64(long)/float64(len(intervals)), a.cfg.PauseRatio)

	return 0.6*ioiScore + 0.4*pauseScore
}

// spectralDynamics scores the mean relative cepstral delta (spectral flux)
// and the spectral-centroid CV against their natural bands, blended 60/40.
func (a *Naturalness) spectralDynamics(samples []float64, sampleRate int) float64 {
	spec := dsp.ComputeSpectrogram(samples, sampleRate, spectrogramFrame, spectrogramFrame/2)
	ceps := dsp.Cepstra(spec, 13)
	if len(ceps) < 3 {
		return insufficientEvidence
	}

	var deltaSum, magSum float64
	for i := 1; i < len(ceps); i++ {
		for k := range ceps[i] {
			deltaSum += math.Abs(ceps[i][k] - ceps[i-1][k])
			magSum += math.Abs(ceps[i][k])
		}
	}
	flux := 0.0
	if magSum > 0 {
		flux = deltaSum / magSum
	}
	fluxScore := naturalBand(flux, a.cfg.SpectralFlux)

	centroids := make([]float64, len(spec.Mag))
	for i, mag := range spec.Mag {
		centroids[i] = dsp.Centroid(mag, spec.BinHz)
	}
	centroidScore := naturalBand(dsp.CoefficientOfVariation(centroids), a.cfg.CentroidCV)

	return 0.6*fluxScore + 0.4*centroidScore
}

// naturalBand scores v against a natural range: inside the band scores 1,
// below it ramps linearly up from 0, above it decays over one upper-bound
// width.
func naturalBand(v float64, r config.Range) float64 {
	switch {
	case r.Hi <= r.Lo:
		return 0
	case v < r.Lo:
		return dsp.Clamp01(v / r.Lo)
	case v <= r.Hi:
		return 1
	default:
		return dsp.Clamp01(1 - (v-r.Hi)/r.Hi)
	}
}
