package analyze

import (
	"encoding/binary"
	"hash/fnv"
	"math"

	"github.com/soniclint/soniclint/internal/config"
	"github.com/soniclint/soniclint/internal/dsp"
)

// articulationBands are the eight speech bands of the articulation index with
// their importance weights. The weights sum to 1.
var articulationBands = []struct {
	loHz, hiHz float64
	weight     float64
}{
	{200, 400, 0.05},
	{400, 600, 0.10},
	{600, 800, 0.15},
	{800, 1200, 0.20},
	{1200, 1800, 0.20},
	{1800, 2500, 0.15},
	{2500, 3400, 0.10},
	{3400, 4800, 0.05},
}

const (
	snrFrameSeconds = 0.02
	snrFloorDB      = -10.0
	snrCeilDB       = 40.0
	defaultSNRDB    = 20.0

	clarityLoHz = 200.0
	clarityHiHz = 4000.0

	// partialClarity is the fixed score for frames without enough spectral
	// peaks to measure peak-to-mean clarity.
	partialClarity = 0.3
)

// Intelligibility scores how clearly speech content reads through the mix:
// a VAD-derived SNR estimate, spectral clarity in the speech band, and an
// articulation index over eight weighted bands.
//
// Not safe for concurrent use: the instance owns a feature cache keyed by a
// buffer fingerprint so the clarity and articulation sub-metrics share one
// spectral pass. The cache is cleared when Analyze returns.
type Intelligibility struct {
	cfg      config.IntelligibilityConfig
	features map[uint64]*clipFeatures
}

// clipFeatures holds the spectral features computed once per buffer.
type clipFeatures struct {
	spec  *dsp.Spectrogram
	mag   []float64
	binHz float64
}

// NewIntelligibility creates an intelligibility analyzer with the given
// weights and band thresholds.
func NewIntelligibility(cfg config.IntelligibilityConfig) *Intelligibility {
	return &Intelligibility{
		cfg:      cfg,
		features: make(map[uint64]*clipFeatures),
	}
}

// Analyze scores one segment. A silent buffer scores (0.0, unacceptable).
func (a *Intelligibility) Analyze(samples []float64, sampleRate int) Result {
	defer clear(a.features)

	normalized, peak := dsp.PeakNormalize(samples)
	if peak == 0 {
		return Result{Score: 0, Band: BandUnacceptable}
	}

	snrScore, snrDB := a.snr(normalized, sampleRate)
	clarity := a.clarity(normalized, sampleRate)
	articulation := a.articulation(normalized, sampleRate)

	score := dsp.Clamp01(a.cfg.SNRWeight*snrScore +
		a.cfg.ClarityWeight*clarity +
		a.cfg.ArticulationWeight*articulation)

	duration := float64(len(samples)) / float64(sampleRate)
	confidence := dsp.GeometricMean(
		(snrDB-snrFloorDB)/(snrCeilDB-snrFloorDB),
		math.Min(duration, 1),
		dsp.Clamp01(peak/0.1),
	)
	return Result{Score: score, Band: a.band(score), Confidence: confidence}
}

func (a *Intelligibility) band(score float64) string {
	switch {
	case score >= a.cfg.AcceptableThreshold:
		return BandAcceptable
	case score >= a.cfg.DegradedThreshold:
		return BandDegraded
	default:
		return BandUnacceptable
	}
}

// snr estimates the signal-to-noise ratio by splitting 20 ms frames (50%
// overlap) into speech and noise classes at twice the 30th energy percentile.
// The doubled percentile is intentional: it keeps frames barely above the
// noise floor in the noise class instead of inflating the speech estimate.
// An empty class falls back to a fixed 20 dB; the result is clamped to
// [-10, 40] dB and mapped linearly to [0, 1].
func (a *Intelligibility) snr(samples []float64, sampleRate int) (score, snrDB float64) {
	size := int(snrFrameSeconds * float64(sampleRate))
	energies := dsp.FrameEnergies(samples, size, size/2)

	snrDB = defaultSNRDB
	if len(energies) >= 2 {
		threshold := dsp.Percentile(energies, 30)
		var speech, noise []float64
		for _, e := range energies {
			if e > 2*threshold {
				speech = append(speech, e)
			} else {
				noise = append(noise, e)
			}
		}
		if len(speech) > 0 && len(noise) > 0 {
			if den := dsp.Mean(noise); den > 0 {
				snrDB = 10 * math.Log10(dsp.Mean(speech)/den)
			} else {
				snrDB = snrCeilDB
			}
		}
	}

	snrDB = dsp.Clamp(snrDB, snrFloorDB, snrCeilDB)
	return (snrDB - snrFloorDB) / (snrCeilDB - snrFloorDB), snrDB
}

// clarity averages a per-frame peak-to-mean measure over the 200-4000 Hz
// band: bins at or above 30% of the frame maximum count as peaks, and frames
// with at least two peaks score min(meanPeak/meanMag/10, 1). Frames without
// enough peaks take the fixed partial score.
func (a *Intelligibility) clarity(samples []float64, sampleRate int) float64 {
	f := a.clipFeatures(samples, sampleRate)
	if len(f.spec.Mag) == 0 {
		return partialClarity
	}

	var total float64
	frames := 0
	for _, mag := range f.spec.Mag {
		lo, hi := dsp.BinRange(len(mag), f.spec.BinHz, clarityLoHz, clarityHiHz)
		band := mag[lo:hi]
		if len(band) == 0 {
			continue
		}

		var frameMax float64
		for _, m := range band {
			if m > frameMax {
				frameMax = m
			}
		}

		var peakSum, bandSum float64
		peaks := 0
		for _, m := range band {
			bandSum += m
			if m >= 0.3*frameMax {
				peakSum += m
				peaks++
			}
		}

		if peaks >= 2 && bandSum > 0 {
			meanPeak := peakSum / float64(peaks)
			meanMag := bandSum / float64(len(band))
			total += math.Min(meanPeak/meanMag/10, 1)
		} else {
			total += partialClarity
		}
		frames++
	}
	if frames == 0 {
		return partialClarity
	}
	return total / float64(frames)
}

// articulation computes the weighted articulation index: each band's share
// of total spectral energy divided by 80% of its importance weight, capped
// at 1, summed weight-normalized.
func (a *Intelligibility) articulation(samples []float64, sampleRate int) float64 {
	f := a.clipFeatures(samples, sampleRate)
	total := spectralEnergy(f.mag)
	if total <= 0 {
		return 0
	}

	var sum, weights float64
	for _, b := range articulationBands {
		share := dsp.BandEnergy(f.mag, f.binHz, b.loHz, b.hiHz) / total
		sum += b.weight * math.Min(share/(0.8*b.weight), 1)
		weights += b.weight
	}
	return sum / weights
}

// clipFeatures returns the cached spectral features for a buffer, computing
// them on first use within the current Analyze call.
func (a *Intelligibility) clipFeatures(samples []float64, sampleRate int) *clipFeatures {
	key := fingerprint(samples)
	if f, ok := a.features[key]; ok {
		return f
	}
	mag, binHz := dsp.Spectrum(samples, sampleRate)
	f := &clipFeatures{
		spec:  dsp.ComputeSpectrogram(samples, sampleRate, spectrogramFrame, spectrogramFrame/2),
		mag:   mag,
		binHz: binHz,
	}
	a.features[key] = f
	return f
}

// fingerprint hashes a sample buffer with FNV-1a over the raw float bits.
func fingerprint(samples []float64) uint64 {
	h := fnv.New64a()
	var buf [8]byte
	for _, s := range samples {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(s))
		h.Write(buf[:])
	}
	return h.Sum64()
}
