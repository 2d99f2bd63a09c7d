package analyze

import (
	"math"

	"github.com/soniclint/soniclint/internal/config"
	"github.com/soniclint/soniclint/internal/dsp"
)

// quantLevels is the distinct-sample-value count below which output reads as
// bit-crushed.
const quantLevels = 256

// EffectsMetadata carries optional effects-processor state for the parameter
// stability detector: the current control parameters, a short history of
// past parameter snapshots, and the processor's reported error count.
type EffectsMetadata struct {
	Params     map[string]float64
	History    []map[string]float64
	ErrorCount int
}

// Stability scores whether the effects processor degraded a segment:
// sample-level glitches, processing artifacts, signal continuity, overall
// signal quality, and control-parameter sanity. Segments the processor never
// touched are stable by definition. Safe for concurrent use.
type Stability struct {
	cfg config.StabilityConfig
}

// NewStability creates a stability analyzer with the given tuning.
func NewStability(cfg config.StabilityConfig) *Stability {
	return &Stability{cfg: cfg}
}

// Analyze scores one segment. effectsApplied=false returns (1.0, stable)
// without touching the samples; fx may be nil.
func (a *Stability) Analyze(samples []float64, sampleRate int, effectsApplied bool, fx *EffectsMetadata) Result {
	if !effectsApplied {
		return Result{Score: 1, Band: BandStable}
	}
	if len(samples) == 0 {
		return Result{Score: 0, Band: BandUnstable}
	}

	score := dsp.Clamp01(a.cfg.GlitchWeight*a.glitchScore(samples, sampleRate) +
		a.cfg.ArtifactWeight*a.artifactScore(samples, sampleRate) +
		a.cfg.ContinuityWeight*a.continuityScore(samples) +
		a.cfg.QualityWeight*a.qualityScore(samples) +
		a.cfg.ParameterWeight*a.parameterScore(fx))

	band := BandUnstable
	if score >= a.cfg.StableThreshold {
		band = BandStable
	}
	return Result{Score: score, Band: band}
}

// glitchScore counts sample-level discontinuities: first-difference outliers
// beyond three standard deviations plus analytic-envelope frame jumps beyond
// three standard deviations. Each event halves the remaining score, so a
// single glitch already disqualifies a clip from a clean rating.
func (a *Stability) glitchScore(samples []float64, sampleRate int) float64 {
	if len(samples) < 3 {
		return 1
	}

	diffs := make([]float64, len(samples)-1)
	for i := range diffs {
		diffs[i] = samples[i+1] - samples[i]
	}
	events := outliers(diffs, 3)

	env := dsp.AnalyticEnvelope(samples)
	frameEnv := frameMeans(env, sampleRate/100)
	if len(frameEnv) >= 3 {
		jumps := make([]float64, len(frameEnv)-1)
		for i := range jumps {
			jumps[i] = frameEnv[i+1] - frameEnv[i]
		}
		events += outliers(jumps, 3)
	}

	return 1 / float64(1+events)
}

// artifactScore averages four processing-artifact checks: clipping ratio,
// DC offset against tolerance, distinct-value density (quantization), and
// aliasing energy above 90% of Nyquist.
func (a *Stability) artifactScore(samples []float64, sampleRate int) float64 {
	n := float64(len(samples))

	clipped := 0
	var sum float64
	distinct := make(map[float64]struct{}, quantLevels)
	for _, s := range samples {
		if math.Abs(s) >= 0.99 {
			clipped++
		}
		sum += s
		if len(distinct) < quantLevels {
			distinct[s] = struct{}{}
		}
	}

	// 1% of clipped samples zeroes the sub-score.
	clipScore := dsp.Clamp01(1 - float64(clipped)/n*100)

	tolerance := math.Max(a.cfg.DCOffsetTolerance, 1e-3)
	dcScore := 1.0
	if dc := math.Abs(sum / n); dc > tolerance {
		dcScore = dsp.Clamp01(1 - (dc-tolerance)/tolerance)
	}

	quantScore := dsp.Clamp01(float64(len(distinct)) / quantLevels)

	mag, binHz := dsp.Spectrum(samples, sampleRate)
	nyquist := float64(sampleRate) / 2
	aliasScore := 1.0
	if total := spectralEnergy(mag); total > 0 {
		frac := dsp.BandEnergy(mag, binHz, 0.9*nyquist, nyquist+binHz) / total
		aliasScore = dsp.Clamp01(1 - frac*10)
	}

	return (clipScore + dcScore + quantScore + aliasScore) / 4
}

// continuityScore flags unwrapped analytic-phase jumps exceeding pi beyond
// the median progression, blended 60/40 with a zero-crossing-interval CV
// check.
func (a *Stability) continuityScore(samples []float64) float64 {
	if len(samples) < 8 {
		return 1
	}

	phase := dsp.InstantaneousPhase(samples)
	prog := make([]float64, len(phase)-1)
	for i := range prog {
		prog[i] = phase[i+1] - phase[i]
	}
	median := dsp.Median(prog)
	jumps := 0
	for _, p := range prog {
		if math.Abs(p-median) > math.Pi {
			jumps++
		}
	}
	jumpScore := 1 / float64(1+jumps)

	zcScore := 1.0
	if intervals := dsp.ZeroCrossingIntervals(samples); len(intervals) >= 2 {
		vals := make([]float64, len(intervals))
		for i, iv := range intervals {
			vals[i] = float64(iv)
		}
		zcScore = dsp.Clamp01(1 - dsp.CoefficientOfVariation(vals))
	}

	return 0.6*jumpScore + 0.4*zcScore
}

// qualityScore averages four whole-signal health checks: p95/p5 dynamic
// range against the healthy band, the silence floor against the RMS level,
// amplitude kurtosis against the healthy band, and a skewness penalty.
func (a *Stability) qualityScore(samples []float64) float64 {
	abs := make([]float64, len(samples))
	for i, s := range samples {
		abs[i] = math.Abs(s)
	}
	p95 := math.Max(dsp.Percentile(abs, 95), 1e-6)
	p5 := math.Max(dsp.Percentile(abs, 5), 1e-6)
	dr := 20 * math.Log10(p95/p5)
	drScore := dsp.RangeScore(dr, a.cfg.DynamicRangeDB.Lo, a.cfg.DynamicRangeDB.Hi)

	floorScore := 0.0
	if rms := dsp.RMS(samples); rms > 0 {
		floorScore = dsp.Clamp01(2 * (1 - p5/rms))
	}

	kurtScore := dsp.RangeScore(dsp.Kurtosis(samples), a.cfg.Kurtosis.Lo, a.cfg.Kurtosis.Hi)
	skewScore := dsp.Clamp01(1 - math.Abs(dsp.Skewness(samples))/2)

	return (drScore + floorScore + kurtScore + skewScore) / 4
}

// parameterScore checks effects-processor control parameters against their
// configured operating ranges, penalizes large jumps across the parameter
// history, and penalizes reported errors. Absent metadata scores 1.
func (a *Stability) parameterScore(fx *EffectsMetadata) float64 {
	if fx == nil {
		return 1
	}

	var rangeScores []float64
	for name, val := range fx.Params {
		r, ok := a.cfg.ParamRanges[name]
		if !ok {
			continue
		}
		rangeScores = append(rangeScores, dsp.RangeScore(val, r.Lo, r.Hi))
	}
	inRange := 1.0
	if len(rangeScores) > 0 {
		inRange = dsp.Mean(rangeScores)
	}

	var jumpPenalty float64
	for i := 1; i < len(fx.History); i++ {
		for name, val := range fx.History[i] {
			prev, ok := fx.History[i-1][name]
			if !ok {
				continue
			}
			r, ok := a.cfg.ParamRanges[name]
			if !ok || r.Hi <= r.Lo {
				continue
			}
			if math.Abs(val-prev)/(r.Hi-r.Lo) > 0.5 {
				jumpPenalty += 0.1
			}
		}
	}

	return dsp.Clamp01(inRange - jumpPenalty - 0.1*float64(fx.ErrorCount))
}

// outliers counts values more than k standard deviations from the mean.
func outliers(vals []float64, k float64) int {
	mean := dsp.Mean(vals)
	std := dsp.StdDev(vals)
	if std <= 0 {
		return 0
	}
	n := 0
	for _, v := range vals {
		if math.Abs(v-mean) > k*std {
			n++
		}
	}
	return n
}

// frameMeans averages vals over consecutive frames of the given size.
func frameMeans(vals []float64, size int) []float64 {
	if size <= 0 || len(vals) < size {
		return nil
	}
	out := make([]float64, 0, len(vals)/size)
	for start := 0; start+size <= len(vals); start += size {
		out = append(out, dsp.Mean(vals[start:start+size]))
	}
	return out
}
