// Package analyze implements the four segment quality analyzers:
// intelligibility, naturalness, archetype conformity, and effects-processor
// stability. Each analyzer maps a mono sample buffer to a score in [0, 1]
// plus a named band; band edges are inclusive on the greater-or-equal side.
//
// All analyzers are deterministic. The intelligibility analyzer owns a
// per-call feature cache and is therefore not safe for concurrent use; the
// scoring coordinator gives each worker its own analyzer set.
package analyze

// Result is one analyzer's verdict for a segment.
type Result struct {
	Score float64 `json:"score"`
	Band  string  `json:"band"`

	// Confidence is only set by the intelligibility analyzer.
	Confidence float64 `json:"confidence,omitempty"`
}

// Band names per metric.
const (
	BandAcceptable   = "acceptable"
	BandDegraded     = "degraded"
	BandUnacceptable = "unacceptable"

	BandOK       = "ok"
	BandRobotic  = "robotic"
	BandMonotone = "monotone"

	BandTooClean   = "too_clean"
	BandOnProfile  = "on_profile"
	BandTooFlat    = "too_flat"
	BandMisaligned = "misaligned"

	BandStable   = "stable"
	BandUnstable = "unstable"
)

// Metric names used in score records and notifications.
const (
	MetricIntelligibility = "intelligibility"
	MetricNaturalness     = "naturalness"
	MetricArchetype       = "archetype_conformity"
	MetricStability       = "simulator_stability"
)

// spectrogramFrame is the short-time analysis frame length in samples, with
// a 50% hop. At 48 kHz this is roughly 21 ms per frame.
const spectrogramFrame = 1024

// spectralEnergy sums squared magnitudes over a whole spectrum.
func spectralEnergy(mag []float64) float64 {
	var sum float64
	for _, m := range mag {
		sum += m * m
	}
	return sum
}
