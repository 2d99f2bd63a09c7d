package analyze

import (
	"math"

	"github.com/soniclint/soniclint/internal/config"
	"github.com/soniclint/soniclint/internal/dsp"
)

const (
	formantLoHz = 200.0
	formantHiHz = 4000.0

	// trackLoHz extends the pitch search down to vocal-fry territory so fry
	// archetypes are measurable.
	trackLoHz = 30.0
	trackHiHz = 500.0
)

// Archetype scores how closely a voice matches its character archetype
// profile: pitch placement, formant structure, texture, and the special
// features the voice direction calls for. A segment without an archetype
// binding conforms trivially.
type Archetype struct {
	cfg      config.ArchetypeConfig
	registry *ProfileRegistry
}

// NewArchetype creates an archetype-conformity analyzer backed by the given
// profile registry. The registry may be nil, in which case every non-empty
// archetype id is unknown.
func NewArchetype(cfg config.ArchetypeConfig, registry *ProfileRegistry) *Archetype {
	return &Archetype{cfg: cfg, registry: registry}
}

// Analyze scores one segment against the profile for archetypeID. An empty
// id means no profile applies and conformity is perfect by definition; an
// unknown id scores a fixed (0.5, too_flat); an empty clip scores
// (0.0, misaligned).
func (a *Archetype) Analyze(samples []float64, sampleRate int, archetypeID string) Result {
	if archetypeID == "" {
		return Result{Score: 1, Band: BandOnProfile}
	}
	profile, ok := a.registry.Lookup(archetypeID)
	if !ok {
		return Result{Score: 0.5, Band: BandTooFlat}
	}
	if len(samples) == 0 {
		return Result{Score: 0, Band: BandMisaligned}
	}

	pitch := a.pitchConformity(samples, sampleRate, profile)
	formant := a.formantConformity(samples, sampleRate, profile)
	texture := a.textureConformity(samples, sampleRate, profile)
	features := a.featureConformity(samples, sampleRate, profile)

	score := dsp.Clamp01(a.cfg.PitchWeight*pitch +
		a.cfg.FormantWeight*formant +
		a.cfg.TextureWeight*texture +
		a.cfg.FeatureWeight*features)
	return Result{Score: score, Band: a.band(score)}
}

func (a *Archetype) band(score float64) string {
	switch {
	case score >= a.cfg.TooCleanThreshold:
		return BandTooClean
	case score >= a.cfg.OnProfileThreshold:
		return BandOnProfile
	case score >= a.cfg.TooFlatThreshold:
		return BandTooFlat
	default:
		return BandMisaligned
	}
}

// pitchConformity blends a piecewise-linear penalty on the deviation of the
// mean voiced pitch from the profile target (full score within one sigma,
// zero beyond three) 60/40 with the fraction of voiced frames inside the
// profile's pitch range.
func (a *Archetype) pitchConformity(samples []float64, sampleRate int, p *ArchetypeProfile) float64 {
	voiced := dsp.VoicedFrames(dsp.PitchTrack(samples, sampleRate, trackLoHz, trackHiHz))
	if len(voiced) == 0 {
		return lowVoicingScore
	}

	sigma := math.Max(p.PitchStdHz, 1)
	dev := math.Abs(dsp.Mean(voiced) - p.PitchMeanHz)
	var meanScore float64
	switch {
	case dev <= sigma:
		meanScore = 1
	case dev >= 3*sigma:
		meanScore = 0
	default:
		meanScore = 1 - (dev-sigma)/(2*sigma)
	}

	inRange := 0
	for _, f := range voiced {
		if f >= p.PitchRange.Lo && f <= p.PitchRange.Hi {
			inRange++
		}
	}
	return 0.6*meanScore + 0.4*float64(inRange)/float64(len(voiced))
}

// formantConformity compares LPC formant candidates against the profile's
// named targets, scoring each deviation in units of the target's standard
// deviation with zero beyond three sigma. Missing candidates score zero for
// their target.
func (a *Archetype) formantConformity(samples []float64, sampleRate int, p *ArchetypeProfile) float64 {
	if len(p.Formants) == 0 {
		return 1
	}
	candidates, err := dsp.FormantCandidates(samples, sampleRate, a.cfg.LPCOrder, formantLoHz, formantHiHz)
	if err != nil {
		return 0
	}

	var total float64
	for i, target := range p.Formants {
		if i >= len(candidates) {
			break
		}
		sigma := math.Max(target.StdHz, 1)
		if dev := math.Abs(candidates[i]-target.MeanHz) / sigma; dev < 3 {
			total += 1 - dev/3
		}
	}
	return total / float64(len(p.Formants))
}

// textureConformity blends roughness (20-150 Hz envelope modulation depth),
// breathiness (>3 kHz vs 0.5-3 kHz energy ratio), and spectral tilt against
// the profile's expectations, weighted 0.4/0.3/0.3.
func (a *Archetype) textureConformity(samples []float64, sampleRate int, p *ArchetypeProfile) float64 {
	env := dsp.AnalyticEnvelope(samples)
	mean := dsp.Mean(env)
	ac := make([]float64, len(env))
	for i, e := range env {
		ac[i] = e - mean
	}
	envMag, envBinHz := dsp.Spectrum(ac, sampleRate)
	var modDepth float64
	if total := spectralEnergy(envMag); total > 0 {
		modDepth = dsp.BandEnergy(envMag, envBinHz, 20, 150) / total
	}
	roughness := dsp.RangeScore(modDepth, p.Roughness.Lo, p.Roughness.Hi)

	mag, binHz := dsp.Spectrum(samples, sampleRate)
	speech := dsp.BandEnergy(mag, binHz, 500, 3000)
	var ratio float64
	if speech > 0 {
		ratio = dsp.BandEnergy(mag, binHz, 3000, float64(sampleRate)/2) / speech
	}
	breathiness := dsp.RangeScore(ratio, p.Breathiness.Lo, p.Breathiness.Hi)

	tolerance := p.TiltToleranceDB
	if tolerance <= 0 {
		tolerance = 6
	}
	tilt := dsp.SpectralTilt(mag, binHz, 100, float64(sampleRate)/2)
	tiltScore := dsp.Clamp01(1 - math.Abs(tilt-p.TiltDBPerOctave)/tolerance)

	return 0.4*roughness + 0.3*breathiness + 0.3*tiltScore
}

// featureConformity averages the named special-feature detector scores. A
// profile without special features scores 1.
func (a *Archetype) featureConformity(samples []float64, sampleRate int, p *ArchetypeProfile) float64 {
	if len(p.SpecialFeatures) == 0 {
		return 1
	}
	mag, binHz := dsp.Spectrum(samples, sampleRate)

	var total float64
	n := 0
	for _, feature := range p.SpecialFeatures {
		score, ok := a.featureScore(feature, samples, sampleRate, mag, binHz)
		if !ok {
			continue
		}
		total += score
		n++
	}
	if n == 0 {
		return 1
	}
	return total / float64(n)
}

// featureScore runs one named detector. Unknown feature names report ok=false
// and are skipped.
func (a *Archetype) featureScore(feature string, samples []float64, sampleRate int, mag []float64, binHz float64) (float64, bool) {
	switch feature {
	case "vocal_fry":
		voiced := dsp.VoicedFrames(dsp.PitchTrack(samples, sampleRate, trackLoHz, trackHiHz))
		if len(voiced) == 0 {
			return 0, true
		}
		fry := 0
		for _, f := range voiced {
			if f >= 30 && f <= 80 {
				fry++
			}
		}
		// A third of voiced frames in fry territory is a fully fried voice.
		return dsp.Clamp01(float64(fry) / float64(len(voiced)) / 0.3), true

	case "whisper":
		spec := dsp.ComputeSpectrogram(samples, sampleRate, spectrogramFrame, spectrogramFrame/2)
		if len(spec.Mag) == 0 {
			return 0, true
		}
		var sum float64
		for _, m := range spec.Mag {
			sum += dsp.Flatness(m)
		}
		return sum / float64(len(spec.Mag)), true

	case "nasal":
		core := dsp.BandEnergy(mag, binHz, 200, 400)
		neighbors := dsp.BandEnergy(mag, binHz, 100, 200) + dsp.BandEnergy(mag, binHz, 400, 800)
		if neighbors <= 0 {
			return 0, true
		}
		return dsp.Clamp01(core / neighbors), true

	case "low_resonance":
		mid := dsp.BandEnergy(mag, binHz, 500, 2000)
		if mid <= 0 {
			return 0, true
		}
		// A low/mid ratio of 2 or more reads as fully chest-resonant.
		return dsp.Clamp01(dsp.BandEnergy(mag, binHz, 0, 500) / mid / 2), true

	case "clear_articulation":
		spec := dsp.ComputeSpectrogram(samples, sampleRate, spectrogramFrame, spectrogramFrame/2)
		if len(spec.Mag) == 0 {
			return 0, true
		}
		var sum float64
		for _, m := range spec.Mag {
			sum += dsp.Contrast(m, 6)
		}
		// 30 dB of mean spectral contrast maps to a full score.
		return dsp.Clamp01(sum / float64(len(spec.Mag)) / 30), true
	}
	return 0, false
}
